package dcs

import (
	"context"
	"strings"
	"testing"

	mvccpb "go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV implements clientv3.KV against an in-memory key/value map, enough
// to exercise Client.Snapshot without a live etcd cluster. Client always
// requests prefix scans with a trailing-slash key, so Get distinguishes the
// two modes that way rather than inspecting opts.
type fakeKV struct {
	clientv3.KV
	values map[string]string
}

func (f *fakeKV) Get(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	if strings.HasSuffix(key, "/") {
		resp := &clientv3.GetResponse{}
		for k, v := range f.values {
			if strings.HasPrefix(k, key) {
				resp.Kvs = append(resp.Kvs, &mvccpb.KeyValue{Key: []byte(k), Value: []byte(v)})
			}
		}
		return resp, nil
	}
	v, ok := f.values[key]
	if !ok {
		return &clientv3.GetResponse{}, nil
	}
	return &clientv3.GetResponse{Kvs: []*mvccpb.KeyValue{{Key: []byte(key), Value: []byte(v)}}}, nil
}

func TestClientSnapshotReadsMembersAndSyncKey(t *testing.T) {
	kv := &fakeKV{values: map[string]string{
		"/service/demo/members/node1": `{"name":"node1","is_running":true}`,
		"/service/demo/members/node2": `{"name":"node2","is_running":true,"tags":{"nosync":true}}`,
		"/service/demo/sync":          `{"leader":"node1","sync_standby":["node2"]}`,
	}}
	c := &Client{kv: kv, scope: "demo"}

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Members(), 2)
	assert.True(t, snap.SyncMatches("NODE2"))
	assert.False(t, snap.SyncMatches("node1"))
}

func TestClientSnapshotNoSyncKeyYet(t *testing.T) {
	kv := &fakeKV{values: map[string]string{
		"/service/demo/members/node1": `{"name":"node1","is_running":true}`,
	}}
	c := &Client{kv: kv, scope: "demo"}

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Members(), 1)
	assert.False(t, snap.SyncMatches("node1"))
}

func TestMemberTagHelpers(t *testing.T) {
	m := Member{Tags: map[string]bool{"nofailover": true}}
	assert.True(t, m.NoFailover())
	assert.False(t, m.NoSync())
}
