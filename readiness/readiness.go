// Package readiness implements the catch-up gate (§4.3): the set of
// replicas that have provably reached the log position recorded at the
// last synchronous_standby_names change, and so may be trusted as
// synchronous for failover purposes.
package readiness

import (
	"github.com/jackc/pglogrepl"

	"github.com/apecloud/pgsync/ciset"
	"github.com/apecloud/pgsync/replview"
)

// Tracker holds ready_replicas: a mapping from member name to the walsender
// pid of a connection verified to have crossed the gate under the current
// configuration.
type Tracker struct {
	ready ciset.Map[int]
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{ready: ciset.NewMap[int]()}
}

// PruneToMembers drops every ready name absent from members, enforcing I1.
// Called whenever the SSN value changes.
func (t *Tracker) PruneToMembers(members ciset.Set) {
	t.ready.PruneToSet(members)
}

// IsReady reports whether name has crossed the gate.
func (t *Tracker) IsReady(name string) bool {
	return t.ready.Has(name)
}

// PID returns the walsender pid name became ready under, if ready.
func (t *Tracker) PID(name string) (int, bool) {
	return t.ready.Get(name)
}

// Len returns the number of ready replicas.
func (t *Tracker) Len() int {
	return t.ready.Len()
}

// Update applies §4.3 to each replica in the view: a member not yet ready
// becomes ready if the DCS /sync key already lists it (syncMatches), or if
// it reports sync_state=sync at an LSN at or past primaryFlushLSN. members
// is parsed_ssn.Members; replicas outside it are ignored, preserving I1.
// A replica tagged nosync never reaches this tracker in the first place,
// since replview.Build already excludes it (I4).
func (t *Tracker) Update(view replview.View, members ciset.Set, syncMatches func(name string) bool, primaryFlushLSN pglogrepl.LSN) {
	for _, r := range view.Replicas {
		if !members.Has(r.ApplicationName) {
			continue
		}
		if t.ready.Has(r.ApplicationName) {
			// Already ready; tolerate pid churn on reconnect without
			// revoking readiness. The recorded pid is left untouched.
			continue
		}
		if syncMatches(r.ApplicationName) {
			t.ready.Set(r.ApplicationName, r.PID)
			continue
		}
		if r.SyncState == replview.StateSync && r.LSN >= primaryFlushLSN {
			t.ready.Set(r.ApplicationName, r.PID)
		}
	}
}
