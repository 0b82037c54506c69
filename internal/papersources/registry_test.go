package papersources

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly/paper-search-service/internal/domain"
)

// mockPaperSource is a mock implementation of PaperSource for testing.
type mockPaperSource struct {
	sourceType domain.SourceType
	name       string
	enabled    bool

	// searchFunc allows customizing search behavior in tests
	searchFunc func(ctx context.Context, params SearchParams) (*SearchResult, error)

	// Track calls for verification
	searchCalls atomic.Int32
}

func newMockPaperSource(sourceType domain.SourceType, name string, enabled bool) *mockPaperSource {
	return &mockPaperSource{
		sourceType: sourceType,
		name:       name,
		enabled:    enabled,
	}
}

func (m *mockPaperSource) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	m.searchCalls.Add(1)
	if m.searchFunc != nil {
		return m.searchFunc(ctx, params)
	}
	// Default behavior: return empty result
	return &SearchResult{
		Items:        []domain.SearchItem{},
		TotalResults: 0,
		Source:       m.sourceType,
	}, nil
}

func (m *mockPaperSource) SourceType() domain.SourceType {
	return m.sourceType
}

func (m *mockPaperSource) Name() string {
	return m.name
}

func (m *mockPaperSource) IsEnabled() bool {
	return m.enabled
}

var _ PaperSource = (*mockPaperSource)(nil)

func TestRegistry_Register(t *testing.T) {
	t.Run("registers and retrieves a source", func(t *testing.T) {
		registry := NewRegistry()
		source := newMockPaperSource(domain.SourceTypeArXiv, "arXiv", true)

		registry.Register(source)

		got := registry.Get(domain.SourceTypeArXiv)
		require.NotNil(t, got)
		assert.Equal(t, "arXiv", got.Name())
	})

	t.Run("replaces a source with the same type", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(newMockPaperSource(domain.SourceTypeArXiv, "first", true))
		registry.Register(newMockPaperSource(domain.SourceTypeArXiv, "second", true))

		got := registry.Get(domain.SourceTypeArXiv)
		require.NotNil(t, got)
		assert.Equal(t, "second", got.Name())
	})

	t.Run("returns nil for unknown source", func(t *testing.T) {
		registry := NewRegistry()
		assert.Nil(t, registry.Get(domain.SourceTypePubMed))
	})
}

func TestRegistry_EnabledSources(t *testing.T) {
	registry := NewRegistry()
	registry.Register(newMockPaperSource(domain.SourceTypeSemanticScholar, "Semantic Scholar", true))
	registry.Register(newMockPaperSource(domain.SourceTypeArXiv, "arXiv", true))
	registry.Register(newMockPaperSource(domain.SourceTypeWebSearch, "Web Search", false))

	assert.Len(t, registry.AllSources(), 3)
	assert.Len(t, registry.EnabledSources(), 2)
}

func TestRegistry_SearchSources(t *testing.T) {
	t.Run("collects results from all requested sources", func(t *testing.T) {
		registry := NewRegistry()

		scholar := newMockPaperSource(domain.SourceTypeSemanticScholar, "Semantic Scholar", true)
		scholar.searchFunc = func(ctx context.Context, params SearchParams) (*SearchResult, error) {
			return &SearchResult{
				Items: []domain.SearchItem{
					{ID: "s1", Source: domain.SourceTypeSemanticScholar, Title: "Paper One"},
				},
				TotalResults: 1,
				Source:       domain.SourceTypeSemanticScholar,
			}, nil
		}
		arxiv := newMockPaperSource(domain.SourceTypeArXiv, "arXiv", true)

		registry.Register(scholar)
		registry.Register(arxiv)

		results := registry.SearchSources(context.Background(), SearchParams{Query: "test"}, []domain.SourceType{
			domain.SourceTypeSemanticScholar,
			domain.SourceTypeArXiv,
		})

		require.Len(t, results, 2)
		bySource := make(map[domain.SourceType]SourceResult, len(results))
		for _, r := range results {
			bySource[r.Source] = r
		}

		require.NoError(t, bySource[domain.SourceTypeSemanticScholar].Error)
		assert.Len(t, bySource[domain.SourceTypeSemanticScholar].Result.Items, 1)
		require.NoError(t, bySource[domain.SourceTypeArXiv].Error)
		assert.Empty(t, bySource[domain.SourceTypeArXiv].Result.Items)
	})

	t.Run("keeps successful results when one source fails", func(t *testing.T) {
		registry := NewRegistry()

		failing := newMockPaperSource(domain.SourceTypePubMed, "PubMed", true)
		failing.searchFunc = func(ctx context.Context, params SearchParams) (*SearchResult, error) {
			return nil, errors.New("upstream exploded")
		}
		working := newMockPaperSource(domain.SourceTypeCrossref, "Crossref", true)

		registry.Register(failing)
		registry.Register(working)

		results := registry.SearchSources(context.Background(), SearchParams{Query: "test"}, nil)

		require.Len(t, results, 2)
		var failed, succeeded int
		for _, r := range results {
			if r.Error != nil {
				failed++
			} else {
				succeeded++
			}
		}
		assert.Equal(t, 1, failed)
		assert.Equal(t, 1, succeeded)
	})

	t.Run("skips unknown source types", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(newMockPaperSource(domain.SourceTypeArXiv, "arXiv", true))

		results := registry.SearchSources(context.Background(), SearchParams{Query: "test"}, []domain.SourceType{
			domain.SourceTypeArXiv,
			domain.SourceTypePubMed,
		})

		require.Len(t, results, 1)
		assert.Equal(t, domain.SourceTypeArXiv, results[0].Source)
	})

	t.Run("returns nil when nothing matches", func(t *testing.T) {
		registry := NewRegistry()
		results := registry.SearchSources(context.Background(), SearchParams{Query: "test"}, nil)
		assert.Nil(t, results)
	})

	t.Run("searches run concurrently", func(t *testing.T) {
		registry := NewRegistry()

		const delay = 50 * time.Millisecond
		var mu sync.Mutex
		for _, st := range []domain.SourceType{
			domain.SourceTypeSemanticScholar,
			domain.SourceTypeArXiv,
			domain.SourceTypePubMed,
			domain.SourceTypeCrossref,
		} {
			source := newMockPaperSource(st, string(st), true)
			source.searchFunc = func(ctx context.Context, params SearchParams) (*SearchResult, error) {
				time.Sleep(delay)
				mu.Lock()
				defer mu.Unlock()
				return &SearchResult{Items: []domain.SearchItem{}}, nil
			}
			registry.Register(source)
		}

		start := time.Now()
		results := registry.SearchAll(context.Background(), SearchParams{Query: "test"})
		elapsed := time.Since(start)

		require.Len(t, results, 4)
		// Four serial searches would take at least 4*delay.
		assert.Less(t, elapsed, 4*delay)
	})

	t.Run("propagates context cancellation", func(t *testing.T) {
		registry := NewRegistry()

		source := newMockPaperSource(domain.SourceTypeArXiv, "arXiv", true)
		source.searchFunc = func(ctx context.Context, params SearchParams) (*SearchResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		registry.Register(source)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results := registry.SearchAll(ctx, SearchParams{Query: "test"})

		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].Error, context.Canceled)
	})
}
