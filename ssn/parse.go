package ssn

import (
	"strconv"

	"github.com/apecloud/pgsync/ciset"
)

// Parse parses a synchronous_standby_names GUC value into a structured
// Value. An empty or all-whitespace value parses to Empty().
//
// As a documented quirk inherited from the source this grammar is ported
// from: the reserved words FIRST and ANY are accepted unquoted as plain
// member names inside a list (e.g. "first,any" parses to members
// {first, any} with Num=1, SyncType=priority). Whether this matches
// PostgreSQL's own grammar is an open question; the behavior is preserved
// here rather than "fixed".
func Parse(value string) (Value, error) {
	toks := lex(value)
	if len(toks) == 0 {
		return Empty(), nil
	}

	syncType := Priority
	num := 1
	var list []token

	switch {
	case matchesHeader(toks, KindAny) && toks[len(toks)-1].kind == KindRParen:
		syncType = Quorum
		n, err := strconv.Atoi(toks[1].lexeme)
		if err != nil {
			return Value{}, newParseError(toks[1], "invalid number")
		}
		num = n
		list = toks[3 : len(toks)-1]
	case matchesHeader(toks, KindFirst) && toks[len(toks)-1].kind == KindRParen:
		syncType = Priority
		n, err := strconv.Atoi(toks[1].lexeme)
		if err != nil {
			return Value{}, newParseError(toks[1], "invalid number")
		}
		num = n
		list = toks[3 : len(toks)-1]
	case len(toks) >= 2 && toks[0].kind == KindNum && toks[1].kind == KindLParen && toks[len(toks)-1].kind == KindRParen:
		syncType = Priority
		n, err := strconv.Atoi(toks[0].lexeme)
		if err != nil {
			return Value{}, newParseError(toks[0], "invalid number")
		}
		num = n
		list = toks[2 : len(toks)-1]
	default:
		list = toks
	}

	members, hasStar, err := parseList(list)
	if err != nil {
		return Value{}, err
	}

	return Value{SyncType: syncType, HasStar: hasStar, Num: num, Members: members}, nil
}

// matchesHeader reports whether toks begins with [kind, NUM, LPAREN, ...].
func matchesHeader(toks []token, kind Kind) bool {
	return len(toks) >= 3 && toks[0].kind == kind && toks[1].kind == KindNum && toks[2].kind == KindLParen
}

// parseList validates the comma-separated member list: even positions are
// names, odd positions are commas, and the final token must be a name (no
// trailing comma).
func parseList(list []token) (ciset.Set, bool, error) {
	members := ciset.New()
	hasStar := false

	for i, t := range list {
		if i%2 == 1 {
			if i == len(list)-1 {
				return ciset.Set{}, false, newParseError(t, "unexpected trailing token")
			}
			if t.kind != KindComma {
				return ciset.Set{}, false, newParseError(t, "expected comma")
			}
			continue
		}

		switch {
		case t.kind == KindStar:
			members.Add("*")
			hasStar = true
		case t.kind == KindDquot:
			members.Add(unquoteDquot(t.lexeme))
		case t.isName():
			members.Add(t.lexeme)
		default:
			return ciset.Set{}, false, newParseError(t, "unexpected token")
		}
	}

	return members, hasStar, nil
}

// unquoteDquot strips the surrounding quotes from a DQUOT lexeme and
// collapses every "" escape to a single embedded ".
func unquoteDquot(lexeme string) string {
	inner := lexeme[1 : len(lexeme)-1]
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '"' && i+1 < len(inner) && inner[i+1] == '"' {
			out = append(out, '"')
			i++
			continue
		}
		out = append(out, inner[i])
	}
	return string(out)
}
