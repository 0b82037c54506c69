package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_paper_search_new")

	assert.NotNil(t, m.FederatedSearchesStarted)
	assert.NotNil(t, m.FederatedSearchesCompleted)
	assert.NotNil(t, m.FederatedSearchesRecovered)
	assert.NotNil(t, m.FederatedSearchDuration)
	assert.NotNil(t, m.SearchesStarted)
	assert.NotNil(t, m.SearchesCompleted)
	assert.NotNil(t, m.SearchesFailed)
	assert.NotNil(t, m.PapersDiscovered)
	assert.NotNil(t, m.PapersBySource)
	assert.NotNil(t, m.CacheWrites)
	assert.NotNil(t, m.SummariesGenerated)
	assert.NotNil(t, m.SummariesMemoized)
	assert.NotNil(t, m.SourceRequestsTotal)
	assert.NotNil(t, m.SourceRequestsFailed)
	assert.NotNil(t, m.LLMRequestsTotal)
	assert.NotNil(t, m.LLMTokensUsed)
}

func TestRecordFederatedSearchStarted(t *testing.T) {
	m := NewMetrics("test_federated_started")

	initial := testutil.ToFloat64(m.FederatedSearchesStarted)
	m.RecordFederatedSearchStarted()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.FederatedSearchesStarted))
}

func TestRecordFederatedSearchCompleted(t *testing.T) {
	m := NewMetrics("test_federated_completed")

	initial := testutil.ToFloat64(m.FederatedSearchesCompleted)
	m.RecordFederatedSearchCompleted(12, 2.5)
	assert.Equal(t, initial+1, testutil.ToFloat64(m.FederatedSearchesCompleted))

	histCount, err := getHistogramSampleCount(m.FederatedSearchDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordFederatedSearchRecovered(t *testing.T) {
	m := NewMetrics("test_federated_recovered")

	initial := testutil.ToFloat64(m.FederatedSearchesRecovered)
	m.RecordFederatedSearchRecovered(1.0)
	assert.Equal(t, initial+1, testutil.ToFloat64(m.FederatedSearchesRecovered))
}

func TestRecordSearchStarted(t *testing.T) {
	m := NewMetrics("test_search_started")

	m.RecordSearchStarted("semantic_scholar")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesStarted.WithLabelValues("semantic_scholar")))
}

func TestRecordSearchCompleted(t *testing.T) {
	m := NewMetrics("test_search_completed")

	m.RecordSearchCompleted("arxiv", 42, 2.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesCompleted.WithLabelValues("arxiv")))
}

func TestRecordSearchFailed(t *testing.T) {
	m := NewMetrics("test_search_failed")

	m.RecordSearchFailed("pubmed", 1.0)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesFailed.WithLabelValues("pubmed")))
}

func TestRecordPapersDiscovered(t *testing.T) {
	m := NewMetrics("test_papers_discovered")

	initial := testutil.ToFloat64(m.PapersDiscovered)
	m.RecordPapersDiscovered("semantic_scholar", 25)
	assert.Equal(t, initial+25, testutil.ToFloat64(m.PapersDiscovered))
	assert.Equal(t, float64(25), testutil.ToFloat64(m.PapersBySource.WithLabelValues("semantic_scholar")))
}

func TestRecordPaperDuplicates(t *testing.T) {
	m := NewMetrics("test_paper_duplicates")

	initial := testutil.ToFloat64(m.PapersDuplicate)
	m.RecordPaperDuplicates(3)
	assert.Equal(t, initial+3, testutil.ToFloat64(m.PapersDuplicate))
}

func TestRecordCacheWrite(t *testing.T) {
	m := NewMetrics("test_cache_write")

	initial := testutil.ToFloat64(m.CacheWrites)
	m.RecordCacheWrite()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.CacheWrites))
}

func TestRecordCacheWriteFailed(t *testing.T) {
	m := NewMetrics("test_cache_write_failed")

	initial := testutil.ToFloat64(m.CacheWritesFailed)
	m.RecordCacheWriteFailed()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.CacheWritesFailed))
}

func TestRecordCacheHitAndMiss(t *testing.T) {
	m := NewMetrics("test_cache_lookups")

	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses))
}

func TestRecordSummaryGenerated(t *testing.T) {
	m := NewMetrics("test_summary_generated")

	initial := testutil.ToFloat64(m.SummariesGenerated)
	m.RecordSummaryGenerated()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.SummariesGenerated))
}

func TestRecordSummaryMemoized(t *testing.T) {
	m := NewMetrics("test_summary_memoized")

	initial := testutil.ToFloat64(m.SummariesMemoized)
	m.RecordSummaryMemoized()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.SummariesMemoized))
}

func TestRecordSummaryFailed(t *testing.T) {
	m := NewMetrics("test_summary_failed")

	initial := testutil.ToFloat64(m.SummariesFailed)
	m.RecordSummaryFailed()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.SummariesFailed))
}

func TestRecordAnalysisCompleted(t *testing.T) {
	m := NewMetrics("test_analysis_completed")

	initial := testutil.ToFloat64(m.AnalysesCompleted)
	m.RecordAnalysisCompleted()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.AnalysesCompleted))
}

func TestRecordAnalysisFailed(t *testing.T) {
	m := NewMetrics("test_analysis_failed")

	initial := testutil.ToFloat64(m.AnalysesFailed)
	m.RecordAnalysisFailed()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.AnalysesFailed))
}

func TestRecordSourceRequest(t *testing.T) {
	m := NewMetrics("test_source_request")

	m.RecordSourceRequest("semantic_scholar", "search", 0.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("semantic_scholar", "search")))
}

func TestRecordSourceRequestFailed(t *testing.T) {
	m := NewMetrics("test_source_request_failed")

	m.RecordSourceRequestFailed("crossref", "works", "timeout")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("crossref", "works", "timeout")))
}

func TestRecordSourceRateLimited(t *testing.T) {
	m := NewMetrics("test_source_rate_limited")

	m.RecordSourceRateLimited("pubmed")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("pubmed")))
}

func TestRecordLLMRequest(t *testing.T) {
	m := NewMetrics("test_llm_request")

	m.RecordLLMRequest("summarize", "gpt-4", 2.5, 100, 50)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("summarize", "gpt-4")))
	assert.Equal(t, float64(100), testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("summarize", "gpt-4", "input")))
	assert.Equal(t, float64(50), testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("summarize", "gpt-4", "output")))
}

func TestRecordLLMRequestFailed(t *testing.T) {
	m := NewMetrics("test_llm_request_failed")

	m.RecordLLMRequestFailed("analyze", "gpt-4", "rate_limit")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsFailed.WithLabelValues("analyze", "gpt-4", "rate_limit")))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
