package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the expert finder service.
// Metrics are organized by subsystem: searches, pipeline stages, sources,
// verification, LLM operations, and caches. All counters and histograms are
// registered via promauto for automatic registration with the default
// Prometheus registry.
type Metrics struct {
	// SearchesStarted counts the total number of expert searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts the total number of searches that returned results.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts the total number of searches that ended in failure.
	SearchesFailed prometheus.Counter

	// SearchDuration observes the end-to-end duration of searches in seconds.
	SearchDuration prometheus.Histogram

	// ExpertsReturned observes the distribution of experts returned per search.
	ExpertsReturned prometheus.Histogram

	// StageDuration observes pipeline stage duration in seconds, labeled by stage.
	StageDuration *prometheus.HistogramVec

	// StageDegradations counts graceful degradations, labeled by stage.
	StageDegradations *prometheus.CounterVec

	// CandidatesAggregated observes distinct author candidates per search.
	CandidatesAggregated prometheus.Histogram

	// CandidatesVerified counts candidates that passed cross-reference
	// verification, labeled by method.
	CandidatesVerified *prometheus.CounterVec

	// CandidatesRejected counts candidates dropped during verification.
	CandidatesRejected prometheus.Counter

	// SourceRequestsTotal counts HTTP requests to bibliographic source APIs,
	// labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to bibliographic source
	// APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to bibliographic
	// source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation,
	// model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens consumed by LLM operations, labeled by
	// operation, model, and token type.
	LLMTokensUsed *prometheus.CounterVec

	// CacheHits counts cache hits, labeled by cache name.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts cache misses, labeled by cache name.
	CacheMisses *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of expert searches started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of expert searches completed successfully",
		}),
		SearchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of expert searches that failed",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end duration of expert searches in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		ExpertsReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "experts_returned",
			Help:      "Number of experts returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),

		// Pipeline stages
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),
		StageDegradations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_degradations_total",
			Help:      "Total number of graceful degradations by pipeline stage",
		}, []string{"stage"}),
		CandidatesAggregated: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_aggregated",
			Help:      "Number of distinct author candidates aggregated per search",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500},
		}),
		CandidatesVerified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_verified_total",
			Help:      "Total number of candidates verified by method",
		}, []string{"method"}),
		CandidatesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_rejected_total",
			Help:      "Total number of candidates rejected during verification",
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to bibliographic sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to bibliographic sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to bibliographic sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from bibliographic sources",
		}, []string{"source"}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by operation",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests by operation",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used by LLM operations",
		}, []string{"operation", "model", "token_type"}),

		// Caches
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits by cache",
		}, []string{"cache"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses by cache",
		}, []string{"cache"}),
	}
}

// RecordSearchStarted records that an expert search has started.
func (m *Metrics) RecordSearchStarted() {
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records that a search completed with the given
// result count and duration.
func (m *Metrics) RecordSearchCompleted(expertCount int, durationSeconds float64) {
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.ExpertsReturned.Observe(float64(expertCount))
}

// RecordSearchFailed records a search rejected or aborted before any
// results were produced. No duration is observed: failed searches would
// otherwise skew the latency histogram toward zero.
func (m *Metrics) RecordSearchFailed() {
	m.SearchesFailed.Inc()
}

// RecordStageDuration records the duration of one pipeline stage.
func (m *Metrics) RecordStageDuration(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordStageDegradation records a graceful degradation in a pipeline stage.
func (m *Metrics) RecordStageDegradation(stage string) {
	m.StageDegradations.WithLabelValues(stage).Inc()
}

// RecordCandidatesAggregated records the candidate count for one search.
func (m *Metrics) RecordCandidatesAggregated(count int) {
	m.CandidatesAggregated.Observe(float64(count))
}

// RecordCandidateVerified records a candidate that passed verification.
func (m *Metrics) RecordCandidateVerified(method string) {
	m.CandidatesVerified.WithLabelValues(method).Inc()
}

// RecordCandidatesRejected records candidates dropped during verification.
func (m *Metrics) RecordCandidatesRejected(count int) {
	m.CandidatesRejected.Add(float64(count))
}

// RecordSourceRequest records a request to a bibliographic source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a bibliographic source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64, inputTokens, outputTokens int) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(operation, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(operation, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}

// RecordCacheHit records a cache hit for the named cache.
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss for the named cache.
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMisses.WithLabelValues(cache).Inc()
}
