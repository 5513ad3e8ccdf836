// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package verifier

import (
	"time"

	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records the progress of a run.  Each run has a registry of its own,
// so metrics from separate runs never mix.
type Metrics struct {
	registry      *prometheus.Registry
	buckets       prometheus.Counter
	verified      prometheus.Counter
	errors        prometheus.Counter
	submissions   prometheus.Counter
	bucketSeconds prometheus.Histogram
	solverSeconds *prometheus.CounterVec
}

// NewMetrics constructs a fresh set of metrics.
func NewMetrics() *Metrics {
	var (
		registry = prometheus.NewRegistry()
		factory  = promauto.With(registry)
	)
	//
	return &Metrics{
		registry: registry,
		buckets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smtcheck",
			Name:      "buckets_total",
			Help:      "Buckets checked",
		}),
		verified: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smtcheck",
			Name:      "verified_total",
			Help:      "Obligations proven",
		}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smtcheck",
			Name:      "errors_total",
			Help:      "Obligations failed or canceled",
		}),
		submissions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smtcheck",
			Name:      "submissions_total",
			Help:      "Queries submitted to the solver, including reruns",
		}),
		bucketSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smtcheck",
			Name:      "bucket_duration_seconds",
			Help:      "Time taken to check a bucket",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		solverSeconds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smtcheck",
			Name:      "solver_seconds_total",
			Help:      "Time spent in the solver",
		}, []string{"phase"}),
	}
}

// Registry returns the registry holding these metrics.
func (p *Metrics) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveBucket records a completed bucket.
func (p *Metrics) ObserveBucket(elapsed time.Duration, times Times) {
	p.buckets.Inc()
	p.bucketSeconds.Observe(elapsed.Seconds())
	p.solverSeconds.WithLabelValues("init").Add(times.Init.Seconds())
	p.solverSeconds.WithLabelValues("run").Add(times.Run.Seconds())
}

// ObserveStats records the outcome of checks.
func (p *Metrics) ObserveStats(stats check.Stats) {
	p.verified.Add(float64(stats.Verified))
	p.errors.Add(float64(stats.Errors))
	p.submissions.Add(float64(stats.Submissions))
}

// WriteFile writes these metrics to a file in the text exposition format.
func (p *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
