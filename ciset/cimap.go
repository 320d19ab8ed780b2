package ciset

import "strings"

// Map is a case-insensitive map from member name to an arbitrary value,
// used by the readiness tracker to record the walsender pid a replica
// became ready under.
type Map[V any] struct {
	m map[string]entry[V]
}

type entry[V any] struct {
	name  string
	value V
}

// NewMap returns an empty Map.
func NewMap[V any]() Map[V] {
	return Map[V]{m: make(map[string]entry[V])}
}

func foldKey(name string) string {
	return strings.ToLower(name)
}

// Set stores value under name, folding case.
func (m Map[V]) Set(name string, value V) {
	m.m[foldKey(name)] = entry[V]{name: name, value: value}
}

// Get returns the value stored for name and whether it was present.
func (m Map[V]) Get(name string) (V, bool) {
	e, ok := m.m[foldKey(name)]
	return e.value, ok
}

// Delete removes name if present.
func (m Map[V]) Delete(name string) {
	delete(m.m, foldKey(name))
}

// Has reports whether name is present, case-insensitively.
func (m Map[V]) Has(name string) bool {
	_, ok := m.m[foldKey(name)]
	return ok
}

// Len returns the number of entries.
func (m Map[V]) Len() int {
	return len(m.m)
}

// Keys returns the original-spelling keys in unspecified order.
func (m Map[V]) Keys() []string {
	out := make([]string, 0, len(m.m))
	for _, e := range m.m {
		out = append(out, e.name)
	}
	return out
}

// PruneToSet deletes every entry whose name is not a member of keep.
func (m Map[V]) PruneToSet(keep Set) {
	for k, e := range m.m {
		if !keep.Has(e.name) {
			delete(m.m, k)
		}
	}
}
