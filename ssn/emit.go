package ssn

import (
	"fmt"
	"regexp"
	"strings"
)

var safeIdentRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9$]*$`)

// QuoteName renders name the way it must appear inside a
// synchronous_standby_names value: verbatim if it already matches the safe
// identifier pattern, otherwise double-quoted with internal quotes escaped
// by doubling them.
func QuoteName(name string) string {
	if safeIdentRE.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Format assembles a synchronous_standby_names value from the given member
// names, following §4.1's emit rules:
//   - a "*" anywhere in names collapses the whole value to "*"
//   - with multiSync support and more than one name, the priority form
//     "N (name1,name2,...)" is emitted, where N is the number of names
//   - a single name is emitted scalar, quoted per QuoteName
//   - no names at all yields the empty string, disabling synchronous
//     replication
func Format(names []string, multiSync bool) string {
	for _, n := range names {
		if n == "*" {
			return "*"
		}
	}

	switch {
	case len(names) == 0:
		return ""
	case multiSync && len(names) > 1:
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = QuoteName(n)
		}
		return fmt.Sprintf("%d (%s)", len(names), strings.Join(quoted, ","))
	default:
		return QuoteName(names[0])
	}
}
