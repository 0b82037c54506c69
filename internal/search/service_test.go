package search

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly/paper-search-service/internal/domain"
	"github.com/scholarly/paper-search-service/internal/papersources"
)

// stubSource is a configurable PaperSource for orchestrator tests.
type stubSource struct {
	sourceType domain.SourceType
	items      []domain.SearchItem
	err        error

	mu         sync.Mutex
	calls      int
	lastParams papersources.SearchParams
}

func (s *stubSource) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	s.mu.Lock()
	s.calls++
	s.lastParams = params
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return &papersources.SearchResult{
		Items:        s.items,
		TotalResults: len(s.items),
		Source:       s.sourceType,
	}, nil
}

func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return string(s.sourceType) }
func (s *stubSource) IsEnabled() bool               { return true }

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSource) lastMaxResults() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastParams.MaxResults
}

// recordingCache captures background cache writes.
type recordingCache struct {
	mu     sync.Mutex
	papers []*domain.CachedPaper
	done   chan struct{}
	want   int
}

func newRecordingCache(want int) *recordingCache {
	return &recordingCache{done: make(chan struct{}), want: want}
}

func (c *recordingCache) Upsert(ctx context.Context, paper *domain.CachedPaper) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.papers = append(c.papers, paper)
	if len(c.papers) == c.want {
		close(c.done)
	}
	return nil
}

func (c *recordingCache) GetByExternalID(ctx context.Context, externalID string) (*domain.CachedPaper, error) {
	return nil, domain.NewNotFoundError("paper", externalID)
}

func (c *recordingCache) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cache writes")
	}
}

func item(id string, source domain.SourceType, title string) domain.SearchItem {
	return domain.SearchItem{ID: id, Source: source, Title: title}
}

func newTestService(sources ...papersources.PaperSource) *Service {
	registry := papersources.NewRegistry()
	for _, s := range sources {
		registry.Register(s)
	}
	return NewService(registry, nil, nil, zerolog.Nop())
}

func allStubSources() (scholar, arxiv, pubmed, crossref, web *stubSource) {
	scholar = &stubSource{sourceType: domain.SourceTypeSemanticScholar}
	arxiv = &stubSource{sourceType: domain.SourceTypeArXiv}
	pubmed = &stubSource{sourceType: domain.SourceTypePubMed}
	crossref = &stubSource{sourceType: domain.SourceTypeCrossref}
	web = &stubSource{sourceType: domain.SourceTypeWebSearch}
	return
}

func TestService_Search_SingleProvider(t *testing.T) {
	t.Run("returns at most limit items from the requested provider", func(t *testing.T) {
		arxiv := &stubSource{
			sourceType: domain.SourceTypeArXiv,
			items: []domain.SearchItem{
				item("a1", domain.SourceTypeArXiv, "First"),
				item("a2", domain.SourceTypeArXiv, "Second"),
				item("a3", domain.SourceTypeArXiv, "Third"),
			},
		}
		svc := newTestService(arxiv)

		resp := svc.Search(context.Background(), Request{
			Query:    "anything",
			Provider: domain.SourceTypeArXiv,
			Limit:    2,
		})

		require.Len(t, resp.Items, 2)
		for _, it := range resp.Items {
			assert.Equal(t, domain.SourceTypeArXiv, it.Source)
		}
		assert.Equal(t, 3, resp.TotalFound)
		assert.Equal(t, []string{"arxiv"}, resp.Sources)
	})

	t.Run("unrecognized provider defaults to semantic scholar", func(t *testing.T) {
		scholar := &stubSource{
			sourceType: domain.SourceTypeSemanticScholar,
			items:      []domain.SearchItem{item("s1", domain.SourceTypeSemanticScholar, "Paper")},
		}
		svc := newTestService(scholar)

		resp := svc.Search(context.Background(), Request{
			Query:    "anything",
			Provider: domain.SourceType("google_scholar"),
			Limit:    10,
		})

		assert.Equal(t, 1, scholar.callCount())
		assert.Equal(t, []string{"semantic_scholar"}, resp.Sources)
		require.Len(t, resp.Items, 1)
	})

	t.Run("semantic scholar failure yields placeholder items", func(t *testing.T) {
		scholar := &stubSource{
			sourceType: domain.SourceTypeSemanticScholar,
			err:        errors.New("rate limited"),
		}
		svc := newTestService(scholar)

		resp := svc.Search(context.Background(), Request{
			Query:    "graph neural networks",
			Provider: domain.SourceTypeSemanticScholar,
			Limit:    10,
		})

		require.Len(t, resp.Items, 3)
		for _, it := range resp.Items {
			assert.Equal(t, domain.SourceTypeSemanticScholar, it.Source)
			assert.Contains(t, it.Title, "graph neural networks")
		}
	})

	t.Run("other provider failure yields empty items", func(t *testing.T) {
		pubmed := &stubSource{
			sourceType: domain.SourceTypePubMed,
			err:        errors.New("down"),
		}
		svc := newTestService(pubmed)

		resp := svc.Search(context.Background(), Request{
			Query:    "anything",
			Provider: domain.SourceTypePubMed,
			Limit:    10,
		})

		assert.Empty(t, resp.Items)
	})

	t.Run("zero limit defaults to ten", func(t *testing.T) {
		arxiv := &stubSource{sourceType: domain.SourceTypeArXiv}
		svc := newTestService(arxiv)

		svc.Search(context.Background(), Request{
			Query:    "anything",
			Provider: domain.SourceTypeArXiv,
		})

		assert.Equal(t, DefaultLimit, arxiv.lastMaxResults())
	})
}

func TestService_Search_AllSources(t *testing.T) {
	t.Run("splits the limit across the four academic sources", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		svc := newTestService(scholar, arxiv, pubmed, crossref, web)

		svc.Search(context.Background(), Request{
			Query:    "anything",
			Provider: domain.SourceTypeAllSources,
			Limit:    10,
		})

		// ceil(10/4) = 3 per source, web search included in the dispatch.
		for _, s := range []*stubSource{scholar, arxiv, pubmed, crossref, web} {
			assert.Equal(t, 1, s.callCount())
			assert.Equal(t, 3, s.lastMaxResults())
		}
	})

	t.Run("merges results and records fulfilled sources", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		scholar.items = []domain.SearchItem{item("s1", domain.SourceTypeSemanticScholar, "Scholar Paper")}
		arxiv.items = []domain.SearchItem{item("a1", domain.SourceTypeArXiv, "ArXiv Paper")}
		pubmed.err = errors.New("down")
		crossref.items = []domain.SearchItem{item("c1", domain.SourceTypeCrossref, "Crossref Paper")}
		web.items = []domain.SearchItem{item("w1", domain.SourceTypeWebSearch, "Web Result")}

		svc := newTestService(scholar, arxiv, pubmed, crossref, web)
		resp := svc.Search(context.Background(), Request{
			Query:    "anything",
			Provider: domain.SourceTypeAllSources,
			Limit:    10,
		})

		// The failed source is dropped; web search is never folded in.
		assert.Equal(t, []string{"semantic_scholar", "arxiv", "crossref"}, resp.Sources)
		assert.Len(t, resp.Items, 3)
		for _, it := range resp.Items {
			assert.NotEqual(t, domain.SourceTypeWebSearch, it.Source)
		}
		assert.Equal(t, 3, resp.TotalFound)
	})

	t.Run("primary source failure degrades to placeholders but stays fulfilled", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		scholar.err = errors.New("quota exceeded")
		arxiv.items = []domain.SearchItem{item("a1", domain.SourceTypeArXiv, "Real ArXiv Paper")}

		svc := newTestService(scholar, arxiv, pubmed, crossref, web)
		resp := svc.Search(context.Background(), Request{
			Query:    "quantum entanglement",
			Provider: domain.SourceTypeAllSources,
			Limit:    20,
		})

		assert.Contains(t, resp.Sources, "semantic_scholar")
		assert.Contains(t, resp.Sources, "arxiv")

		var placeholders int
		for _, it := range resp.Items {
			if it.ID == "mock-1" || it.ID == "mock-2" || it.ID == "mock-3" {
				placeholders++
			}
		}
		assert.Equal(t, 3, placeholders)
	})

	t.Run("all sources failing still returns placeholders", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		for _, s := range []*stubSource{scholar, arxiv, pubmed, crossref, web} {
			s.err = errors.New("everything is down")
		}

		svc := newTestService(scholar, arxiv, pubmed, crossref, web)
		resp := svc.Search(context.Background(), Request{
			Query:    "resilience",
			Provider: domain.SourceTypeAllSources,
			Limit:    10,
		})

		require.Len(t, resp.Items, 3)
		for _, it := range resp.Items {
			assert.Equal(t, domain.SourceTypeSemanticScholar, it.Source)
		}
		assert.Equal(t, []string{"semantic_scholar"}, resp.Sources)
	})

	t.Run("deduplicates titles differing by case and whitespace", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		scholar.items = []domain.SearchItem{
			item("s1", domain.SourceTypeSemanticScholar, "Attention Is All You Need"),
		}
		arxiv.items = []domain.SearchItem{
			item("a1", domain.SourceTypeArXiv, "  attention is all you need  "),
			item("a2", domain.SourceTypeArXiv, "A Different Paper"),
		}

		svc := newTestService(scholar, arxiv, pubmed, crossref, web)
		resp := svc.Search(context.Background(), Request{
			Query:    "attention",
			Provider: domain.SourceTypeAllSources,
			Limit:    10,
		})

		require.Len(t, resp.Items, 2)
		// First occurrence by dispatch order wins.
		ids := []string{resp.Items[0].ID, resp.Items[1].ID}
		assert.Contains(t, ids, "s1")
		assert.Contains(t, ids, "a2")
		assert.NotContains(t, ids, "a1")
		assert.Equal(t, 2, resp.TotalFound)
	})

	t.Run("totalFound is the pre-truncation unique count", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		scholar.items = []domain.SearchItem{
			item("s1", domain.SourceTypeSemanticScholar, "One"),
			item("s2", domain.SourceTypeSemanticScholar, "Two"),
			item("s3", domain.SourceTypeSemanticScholar, "Three"),
		}
		arxiv.items = []domain.SearchItem{
			item("a1", domain.SourceTypeArXiv, "Four"),
			item("a2", domain.SourceTypeArXiv, "Five"),
		}

		svc := newTestService(scholar, arxiv, pubmed, crossref, web)
		resp := svc.Search(context.Background(), Request{
			Query:    "numbers",
			Provider: domain.SourceTypeAllSources,
			Limit:    2,
		})

		assert.Len(t, resp.Items, 2)
		assert.Equal(t, 5, resp.TotalFound)
	})

	t.Run("caches fetched items in the background", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		scholar.items = []domain.SearchItem{item("s1", domain.SourceTypeSemanticScholar, "Cached Paper")}
		arxiv.items = []domain.SearchItem{item("a1", domain.SourceTypeArXiv, "Another Cached Paper")}

		cache := newRecordingCache(2)
		registry := papersources.NewRegistry()
		for _, s := range []*stubSource{scholar, arxiv, pubmed, crossref, web} {
			registry.Register(s)
		}
		svc := NewService(registry, cache, nil, zerolog.Nop())

		svc.Search(context.Background(), Request{
			Query:    "anything",
			Provider: domain.SourceTypeAllSources,
			Limit:    10,
		})

		cache.wait(t)
		cache.mu.Lock()
		defer cache.mu.Unlock()
		require.Len(t, cache.papers, 2)
		seen := map[string]bool{}
		for _, p := range cache.papers {
			seen[p.ExternalID] = true
		}
		assert.True(t, seen["s1"])
		assert.True(t, seen["a1"])
	})

	t.Run("cache writes carry the raw item payload", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		fetched := item("s1", domain.SourceTypeSemanticScholar, "Payload Paper")
		fetched.Authors = []string{"A. Author"}
		fetched.Abstract = "An abstract."
		fetched.Year = 2024
		scholar.items = []domain.SearchItem{fetched}

		cache := newRecordingCache(1)
		registry := papersources.NewRegistry()
		for _, s := range []*stubSource{scholar, arxiv, pubmed, crossref, web} {
			registry.Register(s)
		}
		svc := NewService(registry, cache, nil, zerolog.Nop())

		svc.Search(context.Background(), Request{
			Query:    "anything",
			Provider: domain.SourceTypeAllSources,
			Limit:    10,
		})

		cache.wait(t)
		cache.mu.Lock()
		defer cache.mu.Unlock()
		require.Len(t, cache.papers, 1)
		require.NotEmpty(t, cache.papers[0].RawPayload)

		var got domain.SearchItem
		require.NoError(t, json.Unmarshal(cache.papers[0].RawPayload, &got))
		assert.Equal(t, fetched, got)
	})
}

func TestService_Search_Ranking(t *testing.T) {
	t.Run("title matches outrank non-matches", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		scholar.items = []domain.SearchItem{
			item("s1", domain.SourceTypeSemanticScholar, "Statistical Methods"),
			item("s2", domain.SourceTypeSemanticScholar, "Neural Networks in Practice"),
		}

		svc := newTestService(scholar, arxiv, pubmed, crossref, web)
		resp := svc.Search(context.Background(), Request{
			Query:    "neural networks",
			Provider: domain.SourceTypeAllSources,
			Limit:    10,
		})

		require.Len(t, resp.Items, 2)
		assert.Equal(t, "Neural Networks in Practice", resp.Items[0].Title)
	})

	t.Run("newer papers outrank older ones when otherwise equal", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		older := item("s1", domain.SourceTypeSemanticScholar, "Topic Review A")
		older.Year = 2018
		newer := item("s2", domain.SourceTypeSemanticScholar, "Topic Review B")
		newer.Year = 2024
		scholar.items = []domain.SearchItem{older, newer}

		svc := newTestService(scholar, arxiv, pubmed, crossref, web)
		resp := svc.Search(context.Background(), Request{
			Query:    "topic",
			Provider: domain.SourceTypeAllSources,
			Limit:    10,
		})

		require.Len(t, resp.Items, 2)
		assert.Equal(t, "s2", resp.Items[0].ID)
		assert.Equal(t, "s1", resp.Items[1].ID)
	})

	t.Run("abstract matches contribute half a title match", func(t *testing.T) {
		titleMatch := item("t", domain.SourceTypeArXiv, "Transformers Explained")
		abstractMatch := item("a", domain.SourceTypeArXiv, "A Survey")
		abstractMatch.Abstract = "This survey covers transformers in depth."

		items := []domain.SearchItem{abstractMatch, titleMatch}
		rankByRelevance(items, "transformers")

		assert.Equal(t, "t", items[0].ID)
		assert.Equal(t, "a", items[1].ID)
	})
}

func TestService_Search_AttachesSearchTime(t *testing.T) {
	scholar := &stubSource{sourceType: domain.SourceTypeSemanticScholar}
	svc := newTestService(scholar)

	resp := svc.Search(context.Background(), Request{
		Query:    "anything",
		Provider: domain.SourceTypeSemanticScholar,
		Limit:    5,
	})

	assert.GreaterOrEqual(t, resp.SearchTime, int64(0))
}

func TestService_DeepResearch(t *testing.T) {
	t.Run("relabels an all-sources search", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		scholar.items = []domain.SearchItem{item("s1", domain.SourceTypeSemanticScholar, "Quantum Paper")}

		svc := newTestService(scholar, arxiv, pubmed, crossref, web)
		resp := svc.DeepResearch(context.Background(), DeepResearchRequest{
			Topic:      "quantum computing",
			MaxSources: 20,
		})

		// ceil(20/4) = 5 per source.
		assert.Equal(t, 5, scholar.lastMaxResults())

		assert.Equal(t, "quantum computing", resp.Topic)
		assert.Equal(t, DepthStandard, resp.ResearchDepth)
		assert.Equal(t, len(resp.Sources), resp.TotalSources)
		assert.Equal(t, len(resp.Papers), resp.TotalResults)
		assert.GreaterOrEqual(t, resp.SearchTime, int64(0))
	})

	t.Run("clamps max sources into range", func(t *testing.T) {
		assert.Equal(t, DefaultResearchSources, normalizeMaxSources(0))
		assert.Equal(t, MinResearchSources, normalizeMaxSources(3))
		assert.Equal(t, MaxResearchSources, normalizeMaxSources(1000))
		assert.Equal(t, 75, normalizeMaxSources(75))
	})

	t.Run("keeps requested depth", func(t *testing.T) {
		scholar, arxiv, pubmed, crossref, web := allStubSources()
		svc := newTestService(scholar, arxiv, pubmed, crossref, web)

		resp := svc.DeepResearch(context.Background(), DeepResearchRequest{
			Topic: "protein folding",
			Depth: DepthDeep,
		})

		assert.Equal(t, DepthDeep, resp.ResearchDepth)
	})
}

func TestDedupeByTitle(t *testing.T) {
	items := []domain.SearchItem{
		item("1", domain.SourceTypeArXiv, "Same Title"),
		item("2", domain.SourceTypeArXiv, "same title"),
		item("3", domain.SourceTypeArXiv, " Same Title "),
		item("4", domain.SourceTypeArXiv, "Different"),
	}

	unique := dedupeByTitle(items)

	require.Len(t, unique, 2)
	assert.Equal(t, "1", unique[0].ID)
	assert.Equal(t, "4", unique[1].ID)
}

func TestPlaceholderItems(t *testing.T) {
	t.Run("caps at three items", func(t *testing.T) {
		assert.Len(t, placeholderItems("q", 10), 3)
	})

	t.Run("respects smaller limits", func(t *testing.T) {
		assert.Len(t, placeholderItems("q", 1), 1)
	})

	t.Run("interpolates the query", func(t *testing.T) {
		items := placeholderItems("dark matter", 3)
		for _, it := range items {
			assert.Contains(t, it.Title, "dark matter")
			assert.Equal(t, domain.SourceTypeSemanticScholar, it.Source)
		}
	})
}
