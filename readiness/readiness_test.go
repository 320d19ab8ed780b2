package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apecloud/pgsync/ciset"
	"github.com/apecloud/pgsync/replview"
)

func noSync(string) bool { return false }

func TestUpdateGatesOnLSN(t *testing.T) {
	tr := New()
	members := ciset.Of("a", "b")
	view := replview.View{Replicas: []replview.Replica{
		{ApplicationName: "a", SyncState: replview.StateSync, LSN: 200, PID: 1},
		{ApplicationName: "b", SyncState: replview.StatePotential, LSN: 180, PID: 2},
	}}
	tr.Update(view, members, noSync, 150)
	assert.True(t, tr.IsReady("a"))
	assert.False(t, tr.IsReady("b"))
	pid, ok := tr.PID("A")
	assert.True(t, ok)
	assert.Equal(t, 1, pid)
}

func TestUpdateRejectsLaggingSync(t *testing.T) {
	tr := New()
	members := ciset.Of("a")
	view := replview.View{Replicas: []replview.Replica{
		{ApplicationName: "a", SyncState: replview.StateSync, LSN: 100, PID: 1},
	}}
	tr.Update(view, members, noSync, 150)
	assert.False(t, tr.IsReady("a"))
}

func TestUpdateDCSBypassesGate(t *testing.T) {
	tr := New()
	members := ciset.Of("a")
	view := replview.View{Replicas: []replview.Replica{
		{ApplicationName: "a", SyncState: replview.StateQuorum, LSN: 1, PID: 1},
	}}
	syncMatches := func(name string) bool { return name == "a" }
	tr.Update(view, members, syncMatches, 999999)
	assert.True(t, tr.IsReady("a"))
}

func TestUpdateIgnoresNonMembers(t *testing.T) {
	tr := New()
	members := ciset.Of("a")
	view := replview.View{Replicas: []replview.Replica{
		{ApplicationName: "b", SyncState: replview.StateSync, LSN: 1000, PID: 1},
	}}
	tr.Update(view, members, noSync, 0)
	assert.False(t, tr.IsReady("b"))
	assert.Equal(t, 0, tr.Len())
}

func TestPruneToMembersEnforcesI1(t *testing.T) {
	tr := New()
	members := ciset.Of("a", "b")
	view := replview.View{Replicas: []replview.Replica{
		{ApplicationName: "a", SyncState: replview.StateSync, LSN: 10, PID: 1},
		{ApplicationName: "b", SyncState: replview.StateSync, LSN: 10, PID: 2},
	}}
	tr.Update(view, members, noSync, 0)
	assert.Equal(t, 2, tr.Len())

	tr.PruneToMembers(ciset.Of("a"))
	assert.True(t, tr.IsReady("a"))
	assert.False(t, tr.IsReady("b"))
}

func TestReadyStaysReadyDespitePIDChurn(t *testing.T) {
	tr := New()
	members := ciset.Of("a")
	view1 := replview.View{Replicas: []replview.Replica{
		{ApplicationName: "a", SyncState: replview.StateSync, LSN: 10, PID: 111},
	}}
	tr.Update(view1, members, noSync, 0)
	assert.True(t, tr.IsReady("a"))

	// Reconnect under a new walsender pid and a state that would no longer
	// pass the gate on its own; readiness is retained and the originally
	// recorded pid is left untouched, matching the write-once semantics of
	// the gate this tracker ports.
	view2 := replview.View{Replicas: []replview.Replica{
		{ApplicationName: "a", SyncState: replview.StateAsync, LSN: 5, PID: 222},
	}}
	tr.Update(view2, members, noSync, 0)
	assert.True(t, tr.IsReady("a"))
	pid, _ := tr.PID("a")
	assert.Equal(t, 111, pid)
}
