// Package metrics provides Prometheus metrics for the GIF duel service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pool cache
	poolHits        prometheus.Counter
	poolMisses      prometheus.Counter
	poolFetches     *prometheus.CounterVec
	poolEntries     prometheus.Gauge
	upstreamLatency prometheus.Histogram

	// Duel
	votes          *prometheus.CounterVec
	undos          prometheus.Counter
	loads          *prometheus.CounterVec
	activeSessions prometheus.Gauge
	dedupeHits     prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // package-level recorders write here

// Custom registry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals

func init() { //nolint:gochecknoinits
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gifduel",
		subsystem:        "service",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen
	auto := promauto.With(m.registry)

	m.poolHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_cache_hits_total",
		Help:      "Pool lookups answered from the cache",
	})
	m.poolMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_cache_misses_total",
		Help:      "Pool lookups that required an upstream fetch",
	})
	m.poolFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_fetches_total",
		Help:      "Upstream pool fetches by outcome",
	}, []string{"outcome"})
	m.poolEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_cache_entries",
		Help:      "Number of (theme, rating) pools held in the cache",
	})
	m.upstreamLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_latency_milliseconds",
		Help:      "Latency of GIF search requests in milliseconds",
		Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	m.votes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_total",
		Help:      "Votes cast by vote type and winning side",
	}, []string{"vote_type", "side"})
	m.undos = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "undos_total",
		Help:      "Votes reverted by undo",
	})
	m.loads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "round_loads_total",
		Help:      "Round loads by outcome",
	}, []string{"outcome"})
	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Number of live duel sessions",
	})
	m.dedupeHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_requests_total",
		Help:      "Vote or undo requests ignored because their request id was already applied",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP responses with status >= 400 by endpoint and error type",
	}, []string{"endpoint", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordPoolHit increments the pool cache hit counter.
func RecordPoolHit() { globalManager.poolHits.Inc() }

// RecordPoolMiss increments the pool cache miss counter.
func RecordPoolMiss() { globalManager.poolMisses.Inc() }

// RecordPoolFetch records an upstream fetch outcome ("ok", "insufficient", "error").
func RecordPoolFetch(outcome string) { globalManager.poolFetches.WithLabelValues(outcome).Inc() }

// UpdatePoolEntries sets the number of cached pools.
func UpdatePoolEntries(n int) { globalManager.poolEntries.Set(float64(n)) }

// RecordUpstreamLatency records a GIF search round trip.
func RecordUpstreamLatency(ms float64) { globalManager.upstreamLatency.Observe(ms) }

// RecordVote increments the vote counter for a cell.
func RecordVote(voteType, side string) { globalManager.votes.WithLabelValues(voteType, side).Inc() }

// RecordUndo increments the undo counter.
func RecordUndo() { globalManager.undos.Inc() }

// RecordLoad records a round load outcome ("ready", "errored", "stale").
func RecordLoad(outcome string) { globalManager.loads.WithLabelValues(outcome).Inc() }

// UpdateActiveSessions sets the live session gauge.
func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }

// RecordDuplicateRequest increments the idempotency hit counter.
func RecordDuplicateRequest() { globalManager.dedupeHits.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the registry served by /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
