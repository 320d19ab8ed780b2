// Copyright 2024-2025 ApeCloud, Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pgstat implements the read side of syncctl.DatabaseClient: the
// queries against pg_stat_replication and the handful of GUCs/functions the
// sync controller needs, plus the in-memory cache the "reset cluster info
// state" contract invalidates.
package pgstat

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/apecloud/pgsync/replview"
	"github.com/apecloud/pgsync/syncctl"
)

// Client queries the local Postgres instance for replication state. The
// SynchronousCommit, SynchronousStandbyNames, PgStatReplication and
// LastOperation getters cache their last result behind a token that
// ResetClusterInfoState bumps: a caller that invalidates the cache expects
// the *next* getter call, not this one, to re-query. PrimaryTimeline,
// State and IsLeader are not cached.
type Client struct {
	pool *pgxpool.Pool
	log  *logrus.Entry

	supportsMultipleSync bool

	mu    sync.Mutex
	token uint64
	cache cache
}

type cache struct {
	token                    uint64
	synchronousCommit        *string
	synchronousStandbyNames  *string
	pgStatReplication        []syncctl.ReplicationRow
	lastOperation            *pglogrepl.LSN
}

// NewClient wraps an established connection pool. serverVersionNum is the
// numeric server_version_num (e.g. 90600 for 9.6.0); PostgreSQL added
// support for a comma-separated synchronous_standby_names list ("multiple
// sync") in 9.6.
func NewClient(pool *pgxpool.Pool, serverVersionNum int) *Client {
	return &Client{
		pool:                 pool,
		log:                  logrus.WithField("component", "pgstat"),
		supportsMultipleSync: serverVersionNum >= 90600,
	}
}

// ResetClusterInfoState invalidates the cache if token is newer than the
// last one observed, so the next getter call re-queries the database.
func (c *Client) ResetClusterInfoState(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token > c.token {
		c.token = token
		c.cache = cache{}
	}
}

func (c *Client) SupportsMultipleSync() bool { return c.supportsMultipleSync }

func (c *Client) SynchronousCommit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.cache.synchronousCommit != nil {
		defer c.mu.Unlock()
		return *c.cache.synchronousCommit, nil
	}
	c.mu.Unlock()

	var value string
	if err := c.pool.QueryRow(ctx, "SHOW synchronous_commit").Scan(&value); err != nil {
		return "", fmt.Errorf("querying synchronous_commit: %w", err)
	}

	c.mu.Lock()
	c.cache.synchronousCommit = &value
	c.mu.Unlock()
	return value, nil
}

func (c *Client) SynchronousStandbyNames(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.cache.synchronousStandbyNames != nil {
		defer c.mu.Unlock()
		return *c.cache.synchronousStandbyNames, nil
	}
	c.mu.Unlock()

	var value string
	if err := c.pool.QueryRow(ctx, "SHOW synchronous_standby_names").Scan(&value); err != nil {
		return "", fmt.Errorf("querying synchronous_standby_names: %w", err)
	}

	c.mu.Lock()
	c.cache.synchronousStandbyNames = &value
	c.mu.Unlock()
	return value, nil
}

const pgStatReplicationQuery = `
SELECT pid, application_name, sync_state,
       write_lsn, flush_lsn, replay_lsn
  FROM pg_catalog.pg_stat_replication
`

func (c *Client) PgStatReplication(ctx context.Context) ([]syncctl.ReplicationRow, error) {
	c.mu.Lock()
	if c.cache.pgStatReplication != nil {
		defer c.mu.Unlock()
		return c.cache.pgStatReplication, nil
	}
	c.mu.Unlock()

	rows, err := c.pool.Query(ctx, pgStatReplicationQuery)
	if err != nil {
		return nil, fmt.Errorf("querying pg_stat_replication: %w", err)
	}
	defer rows.Close()

	var out []syncctl.ReplicationRow
	for rows.Next() {
		var (
			pid             int32
			applicationName string
			syncState       string
			writeLSN        *pglogrepl.LSN
			flushLSN        *pglogrepl.LSN
			replayLSN       *pglogrepl.LSN
		)
		if err := rows.Scan(&pid, &applicationName, &syncState, &writeLSN, &flushLSN, &replayLSN); err != nil {
			return nil, fmt.Errorf("scanning pg_stat_replication row: %w", err)
		}
		row := syncctl.ReplicationRow{
			PID:             int(pid),
			ApplicationName: applicationName,
			SyncState:       replview.SyncState(syncState),
		}
		if writeLSN != nil {
			row.WriteLSN = *writeLSN
		}
		if flushLSN != nil {
			row.FlushLSN = *flushLSN
		}
		if replayLSN != nil {
			row.ReplayLSN = *replayLSN
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pg_stat_replication: %w", err)
	}

	c.mu.Lock()
	c.cache.pgStatReplication = out
	c.mu.Unlock()
	return out, nil
}

func (c *Client) LastOperation(ctx context.Context) (pglogrepl.LSN, error) {
	c.mu.Lock()
	if c.cache.lastOperation != nil {
		defer c.mu.Unlock()
		return *c.cache.lastOperation, nil
	}
	c.mu.Unlock()

	var lsnText string
	if err := c.pool.QueryRow(ctx, "SELECT pg_current_wal_lsn()::text").Scan(&lsnText); err != nil {
		return 0, fmt.Errorf("querying pg_current_wal_lsn: %w", err)
	}
	lsn, err := pglogrepl.ParseLSN(lsnText)
	if err != nil {
		return 0, fmt.Errorf("parsing pg_current_wal_lsn %q: %w", lsnText, err)
	}

	c.mu.Lock()
	c.cache.lastOperation = &lsn
	c.mu.Unlock()
	return lsn, nil
}

func (c *Client) PrimaryTimeline(ctx context.Context) (int, error) {
	var timeline int32
	err := c.pool.QueryRow(ctx, `
SELECT CASE WHEN pg_is_in_recovery() THEN 0
            ELSE (timeline_id)::int
       END
  FROM pg_control_checkpoint()
`).Scan(&timeline)
	if err != nil {
		return 0, fmt.Errorf("querying primary timeline: %w", err)
	}
	return int(timeline), nil
}

func (c *Client) Query(ctx context.Context, sql string) error {
	_, err := c.pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("executing %q: %w", sql, err)
	}
	return nil
}

func (c *Client) State() string {
	if err := c.pool.Ping(context.Background()); err != nil {
		return "stopped"
	}
	return "running"
}

func (c *Client) IsLeader(ctx context.Context) (bool, error) {
	var inRecovery bool
	if err := c.pool.QueryRow(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery); err != nil {
		return false, fmt.Errorf("querying pg_is_in_recovery: %w", err)
	}
	return !inRecovery, nil
}
