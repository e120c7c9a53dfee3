// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package metrics exposes Prometheus collectors for the HTTP API, the
// analytics pipeline, snapshot loading, the source circuit breaker and the
// caches. Collectors are registered on the default registry via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline run outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeFormatError = "format_error"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logscope_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logscope_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Pipeline
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_pipeline_runs_total",
			Help: "Pipeline runs by outcome (ok, empty, format_error)",
		},
		[]string{"outcome"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logscope_pipeline_duration_seconds",
			Help:    "Duration of a full normalize/filter/aggregate run",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	PipelineRowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_pipeline_rows_dropped_total",
			Help: "Rows removed by each filter stage",
		},
		[]string{"stage"},
	)

	// Snapshot
	SnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_snapshot_loads_total",
			Help: "Snapshot loads by origin (source, memory, persisted) and result",
		},
		[]string{"origin", "result"},
	)

	SnapshotLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logscope_snapshot_load_duration_seconds",
			Help:    "Duration of snapshot fetches from the upstream source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SnapshotDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logscope_snapshot_documents",
			Help: "Number of documents in the current snapshot",
		},
	)

	SnapshotLoadedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logscope_snapshot_loaded_timestamp_seconds",
			Help: "Unix time the current snapshot was fetched",
		},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_cache_hits_total",
			Help: "Cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_cache_misses_total",
			Help: "Cache misses by cache name",
		},
		[]string{"cache"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logscope_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// NATS
	NATSRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_nats_requests_total",
			Help: "NATS query requests by subject and result",
		},
		[]string{"subject", "result"},
	)

	// System
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logscope_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPipelineRun records one pipeline run.
func RecordPipelineRun(outcome string, duration time.Duration) {
	PipelineRuns.WithLabelValues(outcome).Inc()
	PipelineDuration.Observe(duration.Seconds())
}

// RecordStageRows records the rows a filter stage removed.
func RecordStageRows(stage string, before, after int) {
	if dropped := before - after; dropped > 0 {
		PipelineRowsDropped.WithLabelValues(stage).Add(float64(dropped))
	}
}

// RecordSnapshotLoad records a snapshot load attempt. documents is only
// applied to the gauges on success.
func RecordSnapshotLoad(origin string, documents int, err error) {
	if err != nil {
		SnapshotLoads.WithLabelValues(origin, "error").Inc()
		return
	}
	SnapshotLoads.WithLabelValues(origin, "success").Inc()
	SnapshotDocuments.Set(float64(documents))
	SnapshotLoadedAt.Set(float64(time.Now().Unix()))
}

// RecordSourceFetch records the latency of one upstream fetch.
func RecordSourceFetch(source string, duration time.Duration) {
	SnapshotLoadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
	} else {
		CacheMisses.WithLabelValues(cache).Inc()
	}
}

// RecordNATSRequest records a handled NATS request.
func RecordNATSRequest(subject, result string) {
	NATSRequests.WithLabelValues(subject, result).Inc()
}
