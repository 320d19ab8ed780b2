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

// Package dcs implements the cluster snapshot collaborator (§6) backed by
// etcd: cluster membership and the /sync key the failover loop persists the
// controller's decisions into.
package dcs

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/apecloud/pgsync/syncctl"
)

// Member mirrors a single node's record in the DCS, keyed by its name.
type Member struct {
	Name      string          `json:"name"`
	IsRunning bool            `json:"is_running"`
	Tags      map[string]bool `json:"tags,omitempty"`
}

// NoSync reports the member's "nosync" tag.
func (m Member) NoSync() bool { return m.Tags["nosync"] }

// NoFailover reports the member's "nofailover" tag.
func (m Member) NoFailover() bool { return m.Tags["nofailover"] }

// Sync is the persisted /sync key value: the leader and the members listed
// as synchronous standbys.
type Sync struct {
	Leader     string   `json:"leader"`
	SyncStandby []string `json:"sync_standby"`
}

// Matches reports whether name is listed as a synchronous standby in this
// snapshot of the /sync key, case-insensitively.
func (s Sync) Matches(name string) bool {
	for _, n := range s.SyncStandby {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Snapshot is a point-in-time read of cluster membership and the /sync key,
// implementing syncctl.ClusterSnapshot.
type Snapshot struct {
	members []syncctl.Member
	sync    Sync
}

func (s Snapshot) Members() []syncctl.Member { return s.members }

func (s Snapshot) SyncMatches(name string) bool { return s.sync.Matches(name) }

// Client reads cluster state from etcd under a scope prefix, e.g.
// /service/<scope>/members/<name> and /service/<scope>/sync.
type Client struct {
	kv    clientv3.KV
	scope string
}

// NewClient wraps an etcd client for the given cluster scope.
func NewClient(cli *clientv3.Client, scope string) *Client {
	return &Client{kv: cli, scope: scope}
}

func (c *Client) membersPrefix() string { return path.Join("/service", c.scope, "members") + "/" }
func (c *Client) syncKey() string       { return path.Join("/service", c.scope, "sync") }

// Snapshot reads the current member list and /sync key in two round trips.
// The two reads are not transactional: a member added or a /sync key write
// concurrent with this call may be observed in either generation, which is
// acceptable because the sync controller re-derives its decision on every
// invocation rather than assuming monotonic snapshots.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	resp, err := c.kv.Get(ctx, c.membersPrefix(), clientv3.WithPrefix())
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing members: %w", err)
	}

	members := make([]syncctl.Member, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var m Member
		if err := json.Unmarshal(kv.Value, &m); err != nil {
			return Snapshot{}, fmt.Errorf("decoding member %s: %w", kv.Key, err)
		}
		members = append(members, syncctl.Member{
			Name:       m.Name,
			IsRunning:  m.IsRunning,
			NoSync:     m.NoSync(),
			NoFailover: m.NoFailover(),
		})
	}

	var sync Sync
	syncResp, err := c.kv.Get(ctx, c.syncKey())
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading /sync key: %w", err)
	}
	if len(syncResp.Kvs) > 0 {
		if err := json.Unmarshal(syncResp.Kvs[0].Value, &sync); err != nil {
			return Snapshot{}, fmt.Errorf("decoding /sync key: %w", err)
		}
	}

	return Snapshot{members: members, sync: sync}, nil
}
