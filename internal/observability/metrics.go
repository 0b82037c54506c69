package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper search service.
// Metrics are organized by subsystem: federated searches, per-source searches,
// paper caching, summaries, analyses, and LLM operations. All counters and
// histograms are registered via promauto for automatic registration with the
// default Prometheus registry.
type Metrics struct {
	// FederatedSearchesStarted counts federated search requests initiated.
	FederatedSearchesStarted prometheus.Counter

	// FederatedSearchesCompleted counts federated search requests that finished successfully.
	FederatedSearchesCompleted prometheus.Counter

	// FederatedSearchesRecovered counts federated searches that fell back to placeholder results.
	FederatedSearchesRecovered prometheus.Counter

	// FederatedSearchDuration observes the end-to-end duration of federated searches in seconds.
	FederatedSearchDuration prometheus.Histogram

	// PapersPerFederatedSearch observes the distribution of papers returned per federated search.
	PapersPerFederatedSearch prometheus.Histogram

	// SearchesStarted counts per-provider searches initiated, labeled by paper source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful per-provider searches, labeled by paper source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed per-provider searches, labeled by paper source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes per-provider search duration in seconds, labeled by paper source.
	SearchDuration *prometheus.HistogramVec

	// PapersPerSearch observes the distribution of papers returned per provider search, labeled by source.
	PapersPerSearch *prometheus.HistogramVec

	// PapersDiscovered counts the total number of papers returned by providers before deduplication.
	PapersDiscovered prometheus.Counter

	// PapersDuplicate counts the total number of duplicate papers dropped during deduplication.
	PapersDuplicate prometheus.Counter

	// PapersBySource counts papers returned, labeled by paper source.
	PapersBySource *prometheus.CounterVec

	// CacheWrites counts paper cache upserts attempted.
	CacheWrites prometheus.Counter

	// CacheWritesFailed counts paper cache upserts that failed.
	CacheWritesFailed prometheus.Counter

	// CacheHits counts paper cache lookups that found a paper.
	CacheHits prometheus.Counter

	// CacheMisses counts paper cache lookups that found nothing.
	CacheMisses prometheus.Counter

	// SummariesGenerated counts summaries produced by a model call.
	SummariesGenerated prometheus.Counter

	// SummariesMemoized counts summary requests served from a stored summary without a model call.
	SummariesMemoized prometheus.Counter

	// SummariesFailed counts summary requests that ended in failure.
	SummariesFailed prometheus.Counter

	// AnalysesCompleted counts article analyses that finished successfully.
	AnalysesCompleted prometheus.Counter

	// AnalysesFailed counts article analyses that ended in failure.
	AnalysesFailed prometheus.Counter

	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to paper source APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to paper source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from paper source APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens consumed by LLM operations, labeled by operation, model, and token type.
	LLMTokensUsed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Federated searches
		FederatedSearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "federated_searches_started_total",
			Help:      "Total number of federated searches started",
		}),
		FederatedSearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "federated_searches_completed_total",
			Help:      "Total number of federated searches completed successfully",
		}),
		FederatedSearchesRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "federated_searches_recovered_total",
			Help:      "Total number of federated searches that fell back to placeholder results",
		}),
		FederatedSearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "federated_search_duration_seconds",
			Help:      "Duration of federated searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		PapersPerFederatedSearch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_federated_search",
			Help:      "Number of papers returned per federated search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50},
		}),

		// Per-provider searches
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of paper searches started by source",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of paper searches completed by source",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of paper searches that failed by source",
		}, []string{"source"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of paper searches in seconds by source",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		PapersPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of papers returned per search by source",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}, []string{"source"}),

		// Papers
		PapersDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_discovered_total",
			Help:      "Total number of papers returned by providers before deduplication",
		}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers dropped during deduplication",
		}),
		PapersBySource: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_by_source_total",
			Help:      "Total number of papers returned by source",
		}, []string{"source"}),

		// Paper cache
		CacheWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Total number of paper cache upserts attempted",
		}),
		CacheWritesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_failed_total",
			Help:      "Total number of paper cache upserts that failed",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of paper cache lookups that found a paper",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of paper cache lookups that found nothing",
		}),

		// Summaries
		SummariesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_generated_total",
			Help:      "Total number of summaries produced by a model call",
		}),
		SummariesMemoized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_memoized_total",
			Help:      "Total number of summary requests served from stored summaries",
		}),
		SummariesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_failed_total",
			Help:      "Total number of summary requests that failed",
		}),

		// Analyses
		AnalysesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_completed_total",
			Help:      "Total number of article analyses completed successfully",
		}),
		AnalysesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_failed_total",
			Help:      "Total number of article analyses that failed",
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to paper sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to paper sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to paper sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from paper sources",
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
	}
}

// RecordFederatedSearchStarted records that a federated search has started.
func (m *Metrics) RecordFederatedSearchStarted() {
	m.FederatedSearchesStarted.Inc()
}

// RecordFederatedSearchCompleted records that a federated search has completed.
func (m *Metrics) RecordFederatedSearchCompleted(paperCount int, durationSeconds float64) {
	m.FederatedSearchesCompleted.Inc()
	m.FederatedSearchDuration.Observe(durationSeconds)
	m.PapersPerFederatedSearch.Observe(float64(paperCount))
}

// RecordFederatedSearchRecovered records that a federated search returned placeholder results.
func (m *Metrics) RecordFederatedSearchRecovered(durationSeconds float64) {
	m.FederatedSearchesRecovered.Inc()
	m.FederatedSearchDuration.Observe(durationSeconds)
}

// RecordSearchStarted records that a provider search has started.
func (m *Metrics) RecordSearchStarted(source string) {
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records that a provider search has completed.
func (m *Metrics) RecordSearchCompleted(source string, paperCount int, durationSeconds float64) {
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSearch.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordSearchFailed records that a provider search has failed.
func (m *Metrics) RecordSearchFailed(source string, durationSeconds float64) {
	m.SearchesFailed.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordPapersDiscovered records papers returned from a source.
func (m *Metrics) RecordPapersDiscovered(source string, count int) {
	m.PapersDiscovered.Add(float64(count))
	m.PapersBySource.WithLabelValues(source).Add(float64(count))
}

// RecordPaperDuplicates records duplicate papers dropped during deduplication.
func (m *Metrics) RecordPaperDuplicates(count int) {
	m.PapersDuplicate.Add(float64(count))
}

// RecordCacheWrite records a paper cache upsert.
func (m *Metrics) RecordCacheWrite() {
	m.CacheWrites.Inc()
}

// RecordCacheWriteFailed records a failed paper cache upsert.
func (m *Metrics) RecordCacheWriteFailed() {
	m.CacheWritesFailed.Inc()
}

// RecordCacheHit records a paper cache lookup that found a paper.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a paper cache lookup that found nothing.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordSummaryGenerated records a summary produced by a model call.
func (m *Metrics) RecordSummaryGenerated() {
	m.SummariesGenerated.Inc()
}

// RecordSummaryMemoized records a summary request served from a stored summary.
func (m *Metrics) RecordSummaryMemoized() {
	m.SummariesMemoized.Inc()
}

// RecordSummaryFailed records a summary request that failed.
func (m *Metrics) RecordSummaryFailed() {
	m.SummariesFailed.Inc()
}

// RecordAnalysisCompleted records an article analysis that completed successfully.
func (m *Metrics) RecordAnalysisCompleted() {
	m.AnalysesCompleted.Inc()
}

// RecordAnalysisFailed records an article analysis that failed.
func (m *Metrics) RecordAnalysisFailed() {
	m.AnalysesFailed.Inc()
}

// RecordSourceRequest records a request to a paper source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a paper source.
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
