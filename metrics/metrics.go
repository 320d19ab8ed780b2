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

// Package metrics implements syncctl.Recorder with Prometheus collectors,
// exported for scraping over the agent's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candidateCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pgsync_candidate_count",
		Help: "Number of replicas currently eligible for synchronous replication",
	})

	syncNodeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pgsync_sync_node_count",
		Help: "Number of replicas currently selected as synchronous standbys",
	})

	parseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgsync_ssn_parse_failures_total",
		Help: "Total number of synchronous_standby_names values that failed to parse",
	})

	readinessGateCrossedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgsync_readiness_gate_crossed_total",
		Help: "Total number of times a replica crossed the catch-up readiness gate",
	}, []string{"member"})
)

// Recorder implements syncctl.Recorder with package-level Prometheus
// collectors registered against the default registry.
type Recorder struct{}

// NewRecorder returns a Recorder. Collectors are registered once at
// package init via promauto, so constructing more than one Recorder is
// harmless but pointless.
func NewRecorder() Recorder { return Recorder{} }

func (Recorder) ObserveDecision(candidates, syncNodes int) {
	candidateCount.Set(float64(candidates))
	syncNodeCount.Set(float64(syncNodes))
}

func (Recorder) ObserveParseFailure() {
	parseFailuresTotal.Inc()
}

func (Recorder) ObserveReadinessGateCrossed(member string) {
	readinessGateCrossedTotal.WithLabelValues(member).Inc()
}
