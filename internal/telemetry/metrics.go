/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EngineTicksTotal counts playout engine recompute ticks.
	EngineTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bragi_engine_ticks_total",
		Help: "Number of playout engine ticks.",
	})

	// TimelineComputeDuration observes how long a full timeline recompute takes.
	TimelineComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bragi_timeline_compute_duration_seconds",
		Help:    "Duration of timeline schedule computation.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})

	// TransportOpsTotal counts transport operations by name.
	TransportOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bragi_transport_ops_total",
		Help: "Number of transport operations, by operation.",
	}, []string{"op"})

	// PolicyRejectionsTotal counts placement validations that found a violation.
	PolicyRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bragi_policy_rejections_total",
		Help: "Number of placement checks that reported a separation violation.",
	})

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bragi_api_requests_total",
		Help: "Number of API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bragi_api_request_duration_seconds",
		Help:    "API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight API requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bragi_api_active_connections",
		Help: "In-flight API requests.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
