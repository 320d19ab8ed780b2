package replview

import (
	"testing"

	"github.com/jackc/pglogrepl"
	"github.com/stretchr/testify/assert"
)

func members(names ...string) []Member {
	out := make([]Member, len(names))
	for i, n := range names {
		out[i] = Member{Name: n, IsRunning: true}
	}
	return out
}

func TestColumnForSynchronousCommit(t *testing.T) {
	assert.Equal(t, ColumnReplay, ColumnForSynchronousCommit("remote_apply"))
	assert.Equal(t, ColumnWrite, ColumnForSynchronousCommit("remote_write"))
	assert.Equal(t, ColumnFlush, ColumnForSynchronousCommit("on"))
	assert.Equal(t, ColumnFlush, ColumnForSynchronousCommit("local"))
	assert.Equal(t, ColumnFlush, ColumnForSynchronousCommit("off"))
}

func TestBuildFiltersNotRunningAndNoSync(t *testing.T) {
	rows := []StatRow{
		{ApplicationName: "a", SyncState: StateAsync, FlushLSN: 100},
		{ApplicationName: "b", SyncState: StateAsync, FlushLSN: 100},
		{ApplicationName: "c", SyncState: StateAsync, FlushLSN: 100},
	}
	m := []Member{
		{Name: "a", IsRunning: true},
		{Name: "b", IsRunning: false},
		{Name: "c", IsRunning: true, NoSync: true},
	}
	v := Build(rows, m, ColumnFlush, 0)
	assert.Len(t, v.Replicas, 1)
	assert.Equal(t, "a", v.Replicas[0].ApplicationName)
}

func TestBuildFiltersNullLSN(t *testing.T) {
	rows := []StatRow{
		{ApplicationName: "a", SyncState: StateAsync, FlushLSN: 0},
	}
	v := Build(rows, members("a"), ColumnFlush, 0)
	assert.Empty(t, v.Replicas)
}

func TestBuildFiltersUnknownMember(t *testing.T) {
	rows := []StatRow{
		{ApplicationName: "ghost", SyncState: StateAsync, FlushLSN: 100},
	}
	v := Build(rows, members("a"), ColumnFlush, 0)
	assert.Empty(t, v.Replicas)
}

func TestBuildRanksSyncStateThenLSNDescending(t *testing.T) {
	rows := []StatRow{
		{ApplicationName: "a", SyncState: StateAsync, FlushLSN: 500},
		{ApplicationName: "b", SyncState: StateSync, FlushLSN: 100},
		{ApplicationName: "c", SyncState: StateQuorum, FlushLSN: 400},
		{ApplicationName: "d", SyncState: StatePotential, FlushLSN: 300},
	}
	v := Build(rows, members("a", "b", "c", "d"), ColumnFlush, 0)
	names := []string{v.Replicas[0].ApplicationName, v.Replicas[1].ApplicationName, v.Replicas[2].ApplicationName, v.Replicas[3].ApplicationName}
	assert.Equal(t, []string{"b", "c", "d", "a"}, names)
}

func TestBuildMaxLSNUsesLastOperationWhenFewerThanTwo(t *testing.T) {
	rows := []StatRow{
		{ApplicationName: "a", SyncState: StateAsync, FlushLSN: 100},
	}
	v := Build(rows, members("a"), ColumnFlush, pglogrepl.LSN(9999))
	assert.Equal(t, pglogrepl.LSN(9999), v.MaxLSN)
}

func TestBuildMaxLSNIsMaxAmongReplicasWhenTwoOrMore(t *testing.T) {
	rows := []StatRow{
		{ApplicationName: "a", SyncState: StateAsync, FlushLSN: 100},
		{ApplicationName: "b", SyncState: StateAsync, FlushLSN: 2500},
	}
	v := Build(rows, members("a", "b"), ColumnFlush, pglogrepl.LSN(1))
	assert.Equal(t, pglogrepl.LSN(2500), v.MaxLSN)
}

func TestBuildCaseInsensitiveApplicationNameMatch(t *testing.T) {
	rows := []StatRow{
		{ApplicationName: "Alice", SyncState: StateAsync, FlushLSN: 100},
	}
	v := Build(rows, members("ALICE"), ColumnFlush, 0)
	assert.Len(t, v.Replicas, 1)
}
