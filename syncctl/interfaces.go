// Package syncctl implements the top-level synchronous replication
// controller: it fuses the DCS cluster snapshot, live replication
// statistics, and its own prior decisions into the candidate and sync node
// sets, and drives the database's synchronous_standby_names GUC to match.
package syncctl

import (
	"context"

	"github.com/jackc/pglogrepl"

	"github.com/apecloud/pgsync/replview"
)

// ReplicationRow is a single row of pg_stat_replication, as read from the
// database client collaborator.
type ReplicationRow struct {
	PID             int
	ApplicationName string
	SyncState       replview.SyncState
	WriteLSN        pglogrepl.LSN
	FlushLSN        pglogrepl.LSN
	ReplayLSN       pglogrepl.LSN
}

// GlobalConfig is the subset of cluster-wide configuration the controller
// needs to bound its candidate selection.
type GlobalConfig struct {
	SynchronousNodeCount int
	MaximumLagOnSyncnode int64
}

// DatabaseClient is the database process/SQL collaborator this controller
// consumes. Production code is backed by pgstat.Client and pgconf.Writer;
// tests provide a fake.
type DatabaseClient interface {
	SynchronousCommit(ctx context.Context) (string, error)
	SynchronousStandbyNames(ctx context.Context) (string, error)
	PgStatReplication(ctx context.Context) ([]ReplicationRow, error)
	LastOperation(ctx context.Context) (pglogrepl.LSN, error)
	PrimaryTimeline(ctx context.Context) (int, error)
	Query(ctx context.Context, sql string) error
	ResetClusterInfoState(token uint64)
	SupportsMultipleSync() bool
	State() string
	IsLeader(ctx context.Context) (bool, error)
	SetSynchronousStandbyNames(ctx context.Context, value *string) (bool, error)
	GlobalConfig() GlobalConfig
}

// Member is the subset of DCS member data the controller needs.
type Member struct {
	Name       string
	IsRunning  bool
	NoSync     bool
	NoFailover bool
}

// ClusterSnapshot is the DCS collaborator this controller consumes.
type ClusterSnapshot interface {
	Members() []Member
	SyncMatches(name string) bool
}
