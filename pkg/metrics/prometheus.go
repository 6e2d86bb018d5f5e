// Package metrics provides Prometheus metrics for the arbiter scoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the arbiter service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core Business Metrics - What matters for a scoring service
	matchesScored   prometheus.Counter
	guessesScored   prometheus.Counter
	winnerTies      prometheus.Counter
	noCandidates    prometheus.Counter
	rankingLatency  prometheus.Histogram
	similarityScore prometheus.Histogram

	// Embedding Metrics - External model performance
	embeddingRequests prometheus.Counter
	embeddingErrors   prometheus.Counter
	embeddingLatency  prometheus.Histogram
	activeEmbeds      prometheus.Gauge
	embedConcurrency  prometheus.Gauge

	// Business Quality Metrics
	scoringErrors prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "arbiter",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics
	m.matchesScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_scored_total",
		Help:      "Total number of match requests fully scored",
	})

	m.guessesScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "guesses_scored_total",
		Help:      "Total number of individual guesses scored",
	})

	m.winnerTies = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "winner_ties_total",
		Help:      "Total number of matches whose winner was decided by the first-wins tie-break",
	})

	m.noCandidates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "no_candidates_total",
		Help:      "Total number of match requests rejected because no participant submitted a guess",
	})

	m.rankingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_latency_milliseconds",
		Help:      "Histogram of end-to-end ranking latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.similarityScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "similarity_score",
		Help:      "Distribution of cosine similarity scores across all guesses",
		Buckets:   []float64{-1, -0.5, 0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})

	// Embedding Metrics
	m.embeddingRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "embedding_requests_total",
		Help:      "Total number of embedding calls issued to the model provider",
	})

	m.embeddingErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "embedding_errors_total",
		Help:      "Total number of failed embedding calls",
	})

	m.embeddingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "embedding_latency_milliseconds",
		Help:      "Histogram of embedding call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.activeEmbeds = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_embeds",
		Help:      "Number of embedding calls currently in flight",
	})

	m.embedConcurrency = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "embed_concurrency",
		Help:      "Configured embedding concurrency limit",
	})

	// Business Quality Metrics
	m.scoringErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_errors_total",
		Help:      "Total number of scoring errors (business impact)",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of error responses by endpoint and error type",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordMatchScored increments the matches scored counter.
func RecordMatchScored() {
	globalManager.matchesScored.Inc()
}

// RecordGuessesScored adds to the guesses scored counter.
func RecordGuessesScored(n int) {
	globalManager.guessesScored.Add(float64(n))
}

// RecordWinnerTie increments the winner tie-break counter.
func RecordWinnerTie() {
	globalManager.winnerTies.Inc()
}

// RecordNoCandidates increments the rejected-for-no-candidates counter.
func RecordNoCandidates() {
	globalManager.noCandidates.Inc()
}

// RecordRankingLatency records end-to-end ranking latency in milliseconds.
func RecordRankingLatency(latencyMs float64) {
	globalManager.rankingLatency.Observe(latencyMs)
}

// RecordSimilarityScore records a computed similarity score.
func RecordSimilarityScore(score float64) {
	globalManager.similarityScore.Observe(score)
}

// RecordEmbeddingRequest increments the embedding requests counter.
func RecordEmbeddingRequest() {
	globalManager.embeddingRequests.Inc()
}

// RecordEmbeddingError increments the embedding errors counter.
func RecordEmbeddingError() {
	globalManager.embeddingErrors.Inc()
}

// RecordEmbeddingLatency records embedding call latency in milliseconds.
func RecordEmbeddingLatency(latencyMs float64) {
	globalManager.embeddingLatency.Observe(latencyMs)
}

// IncActiveEmbeds increments the in-flight embedding gauge.
func IncActiveEmbeds() {
	globalManager.activeEmbeds.Inc()
}

// DecActiveEmbeds decrements the in-flight embedding gauge.
func DecActiveEmbeds() {
	globalManager.activeEmbeds.Dec()
}

// UpdateEmbedConcurrency sets the configured embedding concurrency limit.
func UpdateEmbedConcurrency(n int) {
	globalManager.embedConcurrency.Set(float64(n))
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	globalManager.scoringErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error response by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause observation in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
