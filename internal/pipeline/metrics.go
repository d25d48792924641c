// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for incident runs.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec   // by status: completed, error
	StepDuration  *prometheus.HistogramVec // by canonical step name
	FallbackTotal *prometheus.CounterVec   // by reason
	AbsentTotal   *prometheus.CounterVec   // responders that could not be built, by step
	ClientErrors  prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metro_runs_total",
			Help: "Incident runs by final status",
		}, []string{"status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metro_step_duration_seconds",
			Help:    "Duration of a responder step",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"step"}),
		FallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metro_fallback_total",
			Help: "Runs answered with the fallback trail, by reason",
		}, []string{"reason"}),
		AbsentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metro_responder_absent_total",
			Help: "Responders that could not be built",
		}, []string{"step"}),
		ClientErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metro_client_errors_total",
			Help: "Requests rejected for missing or empty input",
		}),
	}
	reg.MustRegister(m.RunsTotal, m.StepDuration, m.FallbackTotal, m.AbsentTotal, m.ClientErrors)
	return m
}
