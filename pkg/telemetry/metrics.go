// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package telemetry exposes Prometheus metrics for connector execution.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the connector execution instruments. A nil *Metrics is
// valid and records nothing, so tests can skip instrumentation.
type Metrics struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	attempts   *prometheus.CounterVec
}

// NewMetrics registers the connector metrics on a registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_executions_total",
			Help: "Total connector execute calls by integration, capability, and outcome.",
		}, []string{"integration", "capability", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "connector_execution_duration_seconds",
			Help:    "Wall-clock duration of connector execute calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"integration", "capability"}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_attempts_total",
			Help: "Total adapter attempts by backend.",
		}, []string{"backend"}),
	}
}

// RecordExecution records one finished execute call.
func (m *Metrics) RecordExecution(integration, capability, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(integration, capability, outcome).Inc()
	m.duration.WithLabelValues(integration, capability).Observe(seconds)
}

// RecordAttempt records one adapter attempt.
func (m *Metrics) RecordAttempt(backend string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(backend).Inc()
}
