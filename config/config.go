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

// Package config loads the YAML configuration file cmd/pgsync-agent reads
// at startup: where the DCS lives, how to reach the local Postgres, and the
// synchronous-mode knobs the sync controller bounds its decisions by.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/apecloud/pgsync/syncctl"
)

// Config is the on-disk shape of the agent's configuration file.
type Config struct {
	Scope string `yaml:"scope"`

	DCS struct {
		Endpoints []string `yaml:"endpoints"`
	} `yaml:"dcs"`

	Postgres struct {
		DSN              string `yaml:"dsn"`
		ConfPath         string `yaml:"conf_path"`
		ServerVersionNum int    `yaml:"server_version_num"`
	} `yaml:"postgres"`

	PollInterval string `yaml:"poll_interval"`

	SynchronousMode struct {
		NodeCount            int   `yaml:"node_count"`
		MaximumLagOnSyncnode int64 `yaml:"maximum_lag_on_syncnode"`
	} `yaml:"synchronous_mode"`
}

// GlobalConfig projects the synchronous-mode knobs into the
// syncctl.GlobalConfig shape the controller consumes. The agent wires this
// as the source behind pgstat.DatabaseClient.GlobalConfig; it reads the
// Config loaded at startup, and the agent does not re-read the YAML file.
func (c *Config) GlobalConfig() syncctl.GlobalConfig {
	return syncctl.GlobalConfig{
		SynchronousNodeCount: c.SynchronousMode.NodeCount,
		MaximumLagOnSyncnode: c.SynchronousMode.MaximumLagOnSyncnode,
	}
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	var c Config
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return &c, nil
}
