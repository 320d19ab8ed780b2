// Package replview joins live PostgreSQL replication statistics with
// cluster membership from the DCS, producing the ranked replica view the
// sync controller selects candidates from.
package replview

import (
	"sort"
	"strings"

	"github.com/jackc/pglogrepl"
)

// SyncState mirrors the pg_stat_replication.sync_state values. The string
// labels are spelled out explicitly (rather than relying on lexical order
// happening to match) because §4.2 requires sync > quorum > potential >
// async regardless of how Go would compare the raw strings.
type SyncState string

const (
	StateAsync     SyncState = "async"
	StatePotential SyncState = "potential"
	StateQuorum    SyncState = "quorum"
	StateSync      SyncState = "sync"
)

var statePriority = map[SyncState]int{
	StateSync:      3,
	StateQuorum:    2,
	StatePotential: 1,
	StateAsync:     0,
}

// Replica is the join of a pg_stat_replication row with its DCS member.
type Replica struct {
	PID             int
	ApplicationName string
	SyncState       SyncState
	LSN             pglogrepl.LSN
	NoFailover      bool
}

// Member is the subset of DCS member data the replica view needs.
type Member struct {
	Name       string
	IsRunning  bool
	NoSync     bool
	NoFailover bool
}

// StatRow is a single row read from pg_stat_replication, with all three LSN
// columns available so the caller can pick the one that matches the
// effective synchronous_commit setting.
type StatRow struct {
	PID             int
	ApplicationName string
	SyncState       SyncState
	WriteLSN        pglogrepl.LSN
	FlushLSN        pglogrepl.LSN
	ReplayLSN       pglogrepl.LSN
}

// LSNColumn identifies which pg_stat_replication LSN column to use.
type LSNColumn int

const (
	ColumnFlush LSNColumn = iota
	ColumnWrite
	ColumnReplay
)

// ColumnForSynchronousCommit implements §4.2's column-selection table.
func ColumnForSynchronousCommit(synchronousCommit string) LSNColumn {
	switch strings.ToLower(synchronousCommit) {
	case "remote_apply":
		return ColumnReplay
	case "remote_write":
		return ColumnWrite
	default:
		return ColumnFlush
	}
}

func (c LSNColumn) selectFrom(row StatRow) (pglogrepl.LSN, bool) {
	switch c {
	case ColumnReplay:
		return row.ReplayLSN, row.ReplayLSN != 0
	case ColumnWrite:
		return row.WriteLSN, row.WriteLSN != 0
	default:
		return row.FlushLSN, row.FlushLSN != 0
	}
}

// View is the ranked, filtered set of replicas eligible for synchronous
// standby selection, plus the MaxLSN baseline used by the lag filter.
type View struct {
	Replicas []Replica
	MaxLSN   pglogrepl.LSN
}

// Build joins stat rows against DCS members and ranks the result per §4.2.
//
// lastOperation is the primary's own current write position, used as the
// MaxLSN baseline when fewer than two replicas are admitted — this keeps a
// single lagging replica from being flagged as lagged against itself.
func Build(rows []StatRow, members []Member, column LSNColumn, lastOperation pglogrepl.LSN) View {
	byName := make(map[string]Member, len(members))
	for _, m := range members {
		byName[strings.ToLower(m.Name)] = m
	}

	var replicas []Replica
	for _, row := range rows {
		lsn, ok := column.selectFrom(row)
		if !ok {
			continue
		}
		member, found := byName[strings.ToLower(row.ApplicationName)]
		if !found || !member.IsRunning || member.NoSync {
			continue
		}
		replicas = append(replicas, Replica{
			PID:             row.PID,
			ApplicationName: row.ApplicationName,
			SyncState:       row.SyncState,
			LSN:             lsn,
			NoFailover:      member.NoFailover,
		})
	}

	sort.SliceStable(replicas, func(i, j int) bool {
		pi, pj := statePriority[replicas[i].SyncState], statePriority[replicas[j].SyncState]
		if pi != pj {
			return pi > pj
		}
		return replicas[i].LSN > replicas[j].LSN
	})

	maxLSN := lastOperation
	if len(replicas) >= 2 {
		maxLSN = 0
		for _, r := range replicas {
			if r.LSN > maxLSN {
				maxLSN = r.LSN
			}
		}
	}

	return View{Replicas: replicas, MaxLSN: maxLSN}
}
