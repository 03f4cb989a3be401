// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the aggregation pipeline:
// - Upstream API calls, retries and circuit breaker state
// - Concurrency limiter pools
// - Short-TTL cache efficiency
// - Daily points ledger and snapshot job
// - Presence, WebSocket and HTTP API

var (
	// Upstream API Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: "ok", "empty", "rate_limited", "error", "network"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of single upstream HTTP attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of upstream retries by reason",
		},
		[]string{"reason"}, // "rate_limited", "transient", "now_playing"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Concurrency Limiter Metrics
	LimiterActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "limiter_active",
			Help: "Work items currently running in a limiter pool",
		},
		[]string{"pool"},
	)

	LimiterPeak = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "limiter_peak_active",
			Help: "Highest number of concurrently running work items observed per pool",
		},
		[]string{"pool"},
	)

	LimiterWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "limiter_wait_duration_seconds",
			Help:    "Time spent queued before admission to a limiter pool",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"pool"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry)",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	// Ledger Metrics
	LedgerUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_points_upserts_total",
			Help: "Total number of daily points ledger upserts",
		},
		[]string{"mode", "result"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Snapshot Job Metrics
	SnapshotRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_snapshot_runs_total",
			Help: "Total number of daily points snapshot runs",
		},
		[]string{"mode"},
	)

	SnapshotUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_snapshot_users_total",
			Help: "Users processed by the daily points snapshot job",
		},
		[]string{"mode", "result"}, // result: "ok", "failed"
	)

	SnapshotLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "daily_snapshot_last_success_timestamp",
			Help: "Unix timestamp of the last completed snapshot run",
		},
	)

	// Leaderboard Metrics
	LeaderboardBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_builds_total",
			Help: "Total number of leaderboard builds by result",
		},
		[]string{"result"},
	)

	LeaderboardWaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leaderboard_wave_duration_seconds",
			Help:    "Duration of each leaderboard enrichment wave",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"wave"},
	)

	// Presence Metrics
	PresenceOnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Users with at least one fresh presence session",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordUpstreamRequest records a single upstream HTTP attempt.
func RecordUpstreamRequest(endpoint, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRetry records a retry decision.
func RecordRetry(reason string) {
	UpstreamRetries.WithLabelValues(reason).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordLedgerUpsert records a daily points upsert.
func RecordLedgerUpsert(mode string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LedgerUpserts.WithLabelValues(mode, result).Inc()
}

// RecordSnapshotRun records the outcome of one snapshot job pass.
func RecordSnapshotRun(mode string, succeeded, failed int) {
	SnapshotRuns.WithLabelValues(mode).Inc()
	SnapshotUsers.WithLabelValues(mode, "ok").Add(float64(succeeded))
	SnapshotUsers.WithLabelValues(mode, "failed").Add(float64(failed))
	SnapshotLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordWave records how long a leaderboard wave took.
func RecordWave(wave int, duration time.Duration) {
	LeaderboardWaveDuration.WithLabelValues(strconv.Itoa(wave)).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
