package syncctl

import (
	"context"
	"fmt"

	"github.com/jackc/pglogrepl"
	"github.com/sirupsen/logrus"

	"github.com/apecloud/pgsync/ciset"
	"github.com/apecloud/pgsync/readiness"
	"github.com/apecloud/pgsync/replview"
	"github.com/apecloud/pgsync/ssn"
)

// ErrNotPrimary is never returned by this package today (Step 7 of §4.5
// simply no-ops on a non-primary node), but is kept as a named sentinel for
// callers that want to distinguish the case explicitly in the future.
var ErrNotPrimary = fmt.Errorf("syncctl: node is not primary")

// Controller is the single-instance, single-threaded synchronous
// replication state machine of §4.4-4.5. The caller's orchestration loop
// guarantees no re-entrant calls, so Controller holds no internal locks.
type Controller struct {
	db  DatabaseClient
	log *logrus.Entry
	rec Recorder

	lastSSNString   string
	parsedSSN       ssn.Value
	primaryFlushLSN pglogrepl.LSN
	ready           *readiness.Tracker

	cacheToken uint64
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithLogger overrides the default logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Controller) { c.log = log }
}

// WithRecorder overrides the default no-op metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(c *Controller) { c.rec = rec }
}

// New constructs a Controller with the canonical empty initial state:
// last_ssn_string empty, parsed_ssn empty, primary_flush_lsn zero, and no
// ready replicas.
func New(db DatabaseClient, opts ...Option) *Controller {
	c := &Controller{
		db:        db,
		log:       logrus.WithField("component", "syncctl"),
		rec:       noopRecorder{},
		parsedSSN: ssn.Empty(),
		ready:     readiness.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) nextToken() uint64 {
	c.cacheToken++
	return c.cacheToken
}

// CurrentState runs Steps 1-4 of §4.4 and returns the candidate and sync
// node sets. It preserves all prior controller state on error.
func (c *Controller) CurrentState(ctx context.Context, cluster ClusterSnapshot) (candidates, syncNodes ciset.Set, err error) {
	if err := c.detectSSNChange(ctx); err != nil {
		return ciset.Set{}, ciset.Set{}, fmt.Errorf("detecting synchronous_standby_names change: %w", err)
	}

	view, err := c.buildReplicaView(ctx, cluster)
	if err != nil {
		return ciset.Set{}, ciset.Set{}, fmt.Errorf("building replica view: %w", err)
	}

	c.ready.Update(view, c.parsedSSN.Members, cluster.SyncMatches, c.primaryFlushLSN)

	candidates, syncNodes = c.selectCandidates(view)
	c.rec.ObserveDecision(candidates.Len(), syncNodes.Len())
	return candidates, syncNodes, nil
}

// detectSSNChange implements §4.4 Step 1. It is also invoked directly from
// the emitter (§4.5 Step 7) to rebase primary_flush_lsn immediately after a
// successful write.
func (c *Controller) detectSSNChange(ctx context.Context) error {
	current, err := c.db.SynchronousStandbyNames(ctx)
	if err != nil {
		return fmt.Errorf("reading synchronous_standby_names: %w", err)
	}
	if current == c.lastSSNString {
		return nil
	}

	parsed, perr := ssn.Parse(current)
	if perr != nil {
		c.log.WithError(perr).WithField("value", current).Warn("unparseable synchronous_standby_names, treating as empty")
		c.rec.ObserveParseFailure()
		parsed = ssn.Empty()
	}

	lastOp, err := c.db.LastOperation(ctx)
	if err != nil {
		return fmt.Errorf("reading last operation: %w", err)
	}

	// Idle-WAL nudge: without this, a replica that is otherwise caught up
	// could never observe a position past primary_flush_lsn on an idle
	// primary, and would stall short of the readiness gate forever.
	if err := c.db.Query(ctx, "SET LOCAL synchronous_commit TO off; SELECT txid_current();"); err != nil {
		return fmt.Errorf("issuing idle-WAL nudge: %w", err)
	}

	// Commit the new state only once every database call has succeeded, so
	// an error leaves the previous state intact and the change is retried.
	c.lastSSNString = current
	c.parsedSSN = parsed
	c.ready.PruneToMembers(parsed.Members)
	c.primaryFlushLSN = lastOp

	c.db.ResetClusterInfoState(c.nextToken())
	return nil
}

func (c *Controller) buildReplicaView(ctx context.Context, cluster ClusterSnapshot) (replview.View, error) {
	synchronousCommit, err := c.db.SynchronousCommit(ctx)
	if err != nil {
		return replview.View{}, fmt.Errorf("reading synchronous_commit: %w", err)
	}
	column := replview.ColumnForSynchronousCommit(synchronousCommit)

	rows, err := c.db.PgStatReplication(ctx)
	if err != nil {
		return replview.View{}, fmt.Errorf("reading pg_stat_replication: %w", err)
	}
	statRows := make([]replview.StatRow, len(rows))
	for i, r := range rows {
		statRows[i] = replview.StatRow{
			PID:             r.PID,
			ApplicationName: r.ApplicationName,
			SyncState:       r.SyncState,
			WriteLSN:        r.WriteLSN,
			FlushLSN:        r.FlushLSN,
			ReplayLSN:       r.ReplayLSN,
		}
	}

	lastOp, err := c.db.LastOperation(ctx)
	if err != nil {
		return replview.View{}, fmt.Errorf("reading last operation: %w", err)
	}

	members := make([]replview.Member, len(cluster.Members()))
	for i, m := range cluster.Members() {
		members[i] = replview.Member{
			Name:       m.Name,
			IsRunning:  m.IsRunning,
			NoSync:     m.NoSync,
			NoFailover: m.NoFailover,
		}
	}

	return replview.Build(statRows, members, column, lastOp), nil
}

// selectCandidates implements §4.4 Step 4. Sorting by NoFailover ascending
// must use a stable sort: it is layered on top of the (sync_state, lsn)
// order already established by replview.Build, and a non-stable sort would
// scramble that secondary key.
func (c *Controller) selectCandidates(view replview.View) (candidates, syncNodes ciset.Set) {
	gc := c.db.GlobalConfig()
	nodeCount := gc.SynchronousNodeCount
	if !c.db.SupportsMultipleSync() {
		nodeCount = 1
	}

	ordered := stableSortByFailoverEligibility(view.Replicas)

	candidates = ciset.New()
	syncNodes = ciset.New()
	for _, r := range ordered {
		if gc.MaximumLagOnSyncnode > 0 {
			lag := int64(view.MaxLSN) - int64(r.LSN)
			if lag > gc.MaximumLagOnSyncnode {
				continue
			}
		}

		candidates.Add(r.ApplicationName)
		if r.SyncState == replview.StateSync && c.ready.IsReady(r.ApplicationName) {
			if !syncNodes.Has(r.ApplicationName) {
				c.rec.ObserveReadinessGateCrossed(r.ApplicationName)
			}
			syncNodes.Add(r.ApplicationName)
		}

		if candidates.Len() >= nodeCount {
			break
		}
	}

	return candidates, syncNodes
}
