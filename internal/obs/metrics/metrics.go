/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes Prometheus metrics for vsteer actions and task
// tracking. Metrics register on the default registry; Handler serves them.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Build information
	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vsteer_build_info",
			Help: "Build information for vsteer",
		},
		[]string{"version", "git_sha", "go_version"},
	)

	// Action metrics
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vsteer_actions_total",
			Help: "Total number of action runs by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	actionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vsteer_action_duration_seconds",
			Help:    "Duration of action runs by action",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~164s
		},
		[]string{"action"},
	)

	// Task metrics
	taskWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vsteer_task_wait_duration_seconds",
			Help:    "Time spent waiting for backend tasks by terminal state",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~409s
		},
		[]string{"state"},
	)

	tasksInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vsteer_tasks_inflight",
			Help: "Number of backend tasks currently being tracked",
		},
	)

	// Error metrics
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vsteer_errors_total",
			Help: "Total number of errors by reason and component",
		},
		[]string{"reason", "component"},
	)
)

// SetBuildInfo records build information.
func SetBuildInfo(version, gitSHA string) {
	buildInfo.WithLabelValues(version, gitSHA, runtime.Version()).Set(1)
}

// RecordAction records one action run with its outcome and duration.
func RecordAction(action, outcome string, duration time.Duration) {
	actionsTotal.WithLabelValues(action, outcome).Inc()
	actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordTaskWait records a completed task wait by terminal state.
func RecordTaskWait(state string, duration time.Duration) {
	taskWaitDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// TasksInflightInc increments the inflight task gauge.
func TasksInflightInc() {
	tasksInflight.Inc()
}

// TasksInflightDec decrements the inflight task gauge.
func TasksInflightDec() {
	tasksInflight.Dec()
}

// RecordError records an error by reason and component.
func RecordError(reason, component string) {
	errorsTotal.WithLabelValues(reason, component).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
