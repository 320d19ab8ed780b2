package pgstat

import (
	"context"

	"github.com/apecloud/pgsync/pgconf"
	"github.com/apecloud/pgsync/syncctl"
)

// DatabaseClient composes the read-side Client with the pgconf.Writer and a
// config source for the two knobs syncctl needs, producing the single
// concrete type that satisfies syncctl.DatabaseClient end to end.
type DatabaseClient struct {
	*Client
	writer       *pgconf.Writer
	globalConfig func() syncctl.GlobalConfig
}

// NewDatabaseClient wires a read client, a config writer, and a
// GlobalConfig source (called on every GlobalConfig lookup; the agent backs
// it with the YAML config loaded at startup) into one collaborator.
func NewDatabaseClient(client *Client, writer *pgconf.Writer, globalConfig func() syncctl.GlobalConfig) *DatabaseClient {
	return &DatabaseClient{Client: client, writer: writer, globalConfig: globalConfig}
}

func (d *DatabaseClient) SetSynchronousStandbyNames(ctx context.Context, value *string) (bool, error) {
	return d.writer.SetSynchronousStandbyNames(ctx, value)
}

func (d *DatabaseClient) GlobalConfig() syncctl.GlobalConfig {
	return d.globalConfig()
}
