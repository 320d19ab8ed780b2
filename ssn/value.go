package ssn

import "github.com/apecloud/pgsync/ciset"

// Type is the synchronization mode encoded in a parsed SSN value.
type Type string

const (
	Off      Type = "off"
	Priority Type = "priority"
	Quorum   Type = "quorum"
)

// Value is the structured form of a synchronous_standby_names string.
type Value struct {
	SyncType Type
	HasStar  bool
	Num      int
	Members  ciset.Set
}

// Empty constructs a fresh canonical empty Value: (off, false, 0, ∅). It is
// always a new set, never a shared sentinel, so callers are free to mutate
// the result.
func Empty() Value {
	return Value{SyncType: Off, Members: ciset.New()}
}
