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

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apecloud/pgsync/config"
	"github.com/apecloud/pgsync/dcs"
	"github.com/apecloud/pgsync/metrics"
	"github.com/apecloud/pgsync/pgconf"
	"github.com/apecloud/pgsync/pgstat"
	"github.com/apecloud/pgsync/syncctl"
)

var (
	configPath   = "/etc/pgsync/pgsync.yaml"
	logLevel     = int(logrus.InfoLevel)
	metricsAddr  = ":9187"
	pollInterval = 2 * time.Second
)

func init() {
	flag.StringVar(&configPath, "config", configPath, "Path to the agent's YAML configuration file.")
	flag.IntVar(&logLevel, "loglevel", logLevel, "The log level to use.")
	flag.StringVar(&metricsAddr, "metrics-address", metricsAddr, "The address to serve Prometheus metrics on.")
	flag.DurationVar(&pollInterval, "poll-interval", pollInterval, "How often to re-evaluate synchronous replication state when the default config omits poll_interval.")
}

func main() {
	flag.Parse()
	logrus.SetLevel(logrus.Level(logLevel))

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatalln("failed to load configuration")
	}
	if interval, err := time.ParseDuration(cfg.PollInterval); err == nil && interval > 0 {
		pollInterval = interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		logrus.WithError(err).Fatalln("failed to connect to postgres")
	}
	defer pool.Close()

	etcdClient, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.DCS.Endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		logrus.WithError(err).Fatalln("failed to connect to the DCS")
	}
	defer etcdClient.Close()

	dcsClient := dcs.NewClient(etcdClient, cfg.Scope)

	statClient := pgstat.NewClient(pool, cfg.Postgres.ServerVersionNum)
	writer := pgconf.NewWriter(cfg.Postgres.ConfPath, pool)
	dbClient := pgstat.NewDatabaseClient(statClient, writer, cfg.GlobalConfig)

	controller := syncctl.New(dbClient, syncctl.WithRecorder(metrics.NewRecorder()))

	go serveMetrics(metricsAddr)
	go watchDCS(ctx, dcsClient, etcdClient)

	runLoop(ctx, controller, dcsClient)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logrus.WithField("address", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logrus.WithError(err).Error("metrics server stopped")
	}
}

func watchDCS(ctx context.Context, dcsClient *dcs.Client, watcher clientv3.Watcher) {
	dcsClient.Watch(ctx, watcher, func() {})
}

// runLoop re-evaluates synchronous replication state on a fixed interval,
// mirroring the teacher's own long-lived server loop: build state, act on
// it, log the outcome, and keep going until the context is canceled.
func runLoop(ctx context.Context, controller *syncctl.Controller, dcsClient *dcs.Client) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("shutting down pgsync-agent")
			return
		case <-ticker.C:
			snapshot, err := dcsClient.Snapshot(ctx)
			if err != nil {
				logrus.WithError(err).Warn("failed to read DCS snapshot")
				continue
			}

			candidates, syncNodes, err := controller.CurrentState(ctx, snapshot)
			if err != nil {
				logrus.WithError(err).Warn("failed to compute synchronous replication state")
				continue
			}

			if err := controller.SetSynchronousStandbyNames(ctx, candidates); err != nil {
				logrus.WithError(err).Warn("failed to apply synchronous_standby_names")
				continue
			}

			logrus.WithField("candidates", fmt.Sprint(candidates.Names())).
				WithField("sync_nodes", fmt.Sprint(syncNodes.Names())).
				Debug("synchronous replication state applied")
		}
	}
}
