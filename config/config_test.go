package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
scope: demo-cluster
dcs:
  endpoints:
    - http://127.0.0.1:2379
postgres:
  dsn: "postgres://replicator@127.0.0.1:5432/postgres"
  conf_path: /etc/postgresql/conf.d/pgsync.conf
  server_version_num: 160002
poll_interval: 2s
synchronous_mode:
  node_count: 2
  maximum_lag_on_syncnode: 1048576
`

func TestLoadParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo-cluster", c.Scope)
	assert.Equal(t, []string{"http://127.0.0.1:2379"}, c.DCS.Endpoints)
	assert.Equal(t, "postgres://replicator@127.0.0.1:5432/postgres", c.Postgres.DSN)
	assert.Equal(t, 160002, c.Postgres.ServerVersionNum)
	assert.Equal(t, "2s", c.PollInterval)
	assert.Equal(t, 2, c.SynchronousMode.NodeCount)
	assert.EqualValues(t, 1048576, c.SynchronousMode.MaximumLagOnSyncnode)
}

func TestGlobalConfigProjection(t *testing.T) {
	c := &Config{}
	c.SynchronousMode.NodeCount = 3
	c.SynchronousMode.MaximumLagOnSyncnode = 512

	gc := c.GlobalConfig()
	assert.Equal(t, 3, gc.SynchronousNodeCount)
	assert.EqualValues(t, 512, gc.MaximumLagOnSyncnode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/pgsync.yaml")
	assert.Error(t, err)
}
