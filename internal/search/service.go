// Package search implements the federated paper search orchestrator.
//
// The orchestrator fans a query out to the registered paper sources,
// merges and deduplicates their results, ranks the merged list against
// the query, and caches every normalized item in the background. Search
// is designed to never fail from the caller's perspective: provider
// failures degrade to partial or placeholder results.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarly/paper-search-service/internal/domain"
	"github.com/scholarly/paper-search-service/internal/observability"
	"github.com/scholarly/paper-search-service/internal/papersources"
	"github.com/scholarly/paper-search-service/internal/repository"
)

const (
	// MinLimit and MaxLimit bound the number of results per search
	// request. They are enforced at the API surface; the service itself
	// accepts larger limits so DeepResearch can gather more papers.
	MinLimit = 1
	MaxLimit = 50

	// DefaultLimit is used when no limit is requested.
	DefaultLimit = 10

	// recencyPivotYear anchors the recency bonus: papers newer than this
	// year score higher, older papers score lower.
	recencyPivotYear = 2020

	// cacheWriteTimeout bounds each background cache write.
	cacheWriteTimeout = 5 * time.Second
)

// academicSources are the providers whose tags are recorded in the
// response's sources list during an all-sources search, in dispatch
// order. Web search is dispatched alongside them but its outcome is
// not folded into the response.
var academicSources = []domain.SourceType{
	domain.SourceTypeSemanticScholar,
	domain.SourceTypeArXiv,
	domain.SourceTypePubMed,
	domain.SourceTypeCrossref,
}

// Request describes a federated search.
type Request struct {
	// Query is the free-text search query.
	Query string

	// Provider selects a single source, or SourceTypeAllSources for a
	// federated search. Unrecognized or empty values fall back to
	// Semantic Scholar.
	Provider domain.SourceType

	// Limit bounds the number of returned items. Zero means
	// DefaultLimit; range validation happens at the API surface.
	Limit int
}

// Response is the result of a search. Search never returns an error;
// the response always carries items, real or synthesized.
type Response struct {
	Items      []domain.SearchItem `json:"items"`
	TotalFound int                 `json:"totalFound,omitempty"`
	Sources    []string            `json:"sources,omitempty"`
	SearchTime int64               `json:"searchTime"`
}

// Service orchestrates searches across the registered paper sources.
type Service struct {
	registry *papersources.Registry
	cache    repository.PaperCacheRepository
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewService creates a search orchestrator. The cache repository may be
// nil, in which case background caching is disabled.
func NewService(
	registry *papersources.Registry,
	cache repository.PaperCacheRepository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		registry: registry,
		cache:    cache,
		metrics:  metrics,
		logger:   logger.With().Str("component", "search").Logger(),
	}
}

// Search runs a federated or single-provider search. It never returns
// an error: any failure, including a panic anywhere below, degrades to
// placeholder results, and the elapsed wall-clock time is attached to
// every response.
func (s *Service) Search(ctx context.Context, req Request) (resp *Response) {
	start := time.Now()
	limit := normalizeLimit(req.Limit)

	if s.metrics != nil {
		s.metrics.RecordFederatedSearchStarted()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("query", req.Query).
				Msg("search recovered from panic")
			if s.metrics != nil {
				s.metrics.RecordFederatedSearchRecovered(time.Since(start).Seconds())
			}
			resp = &Response{
				Items:      placeholderItems(req.Query, limit),
				Sources:    []string{string(domain.SourceTypeSemanticScholar)},
				SearchTime: time.Since(start).Milliseconds(),
			}
		}
	}()
	if req.Provider == domain.SourceTypeAllSources {
		resp = s.searchAllSources(ctx, req.Query, limit)
	} else {
		provider := req.Provider
		if !domain.IsValidSourceType(provider) {
			provider = domain.SourceTypeSemanticScholar
		}
		items := s.searchProvider(ctx, provider, req.Query, limit)
		total := len(items)
		if len(items) > limit {
			items = items[:limit]
		}
		resp = &Response{
			Items:      items,
			TotalFound: total,
			Sources:    []string{string(provider)},
		}
	}

	resp.SearchTime = time.Since(start).Milliseconds()

	if s.metrics != nil {
		s.metrics.RecordFederatedSearchCompleted(len(resp.Items), time.Since(start).Seconds())
	}

	s.logger.Info().
		Str("query", req.Query).
		Str("provider", string(req.Provider)).
		Int("limit", limit).
		Int("results", len(resp.Items)).
		Int64("search_time_ms", resp.SearchTime).
		Msg("search completed")

	return resp
}

// searchAllSources fans the query out to every academic source plus web
// search, with the limit split evenly across the four academic sources.
// The join keeps whichever sources succeeded; a failed source
// contributes nothing, except Semantic Scholar whose failure yields
// placeholder items so the primary source is always fulfilled.
func (s *Service) searchAllSources(ctx context.Context, query string, limit int) *Response {
	perSourceLimit := (limit + len(academicSources) - 1) / len(academicSources)

	dispatch := append(append([]domain.SourceType{}, academicSources...), domain.SourceTypeWebSearch)
	results := s.registry.SearchSources(ctx, papersources.SearchParams{
		Query:      query,
		MaxResults: perSourceLimit,
	}, dispatch)

	bySource := make(map[domain.SourceType]papersources.SourceResult, len(results))
	for _, r := range results {
		bySource[r.Source] = r
	}

	var allItems []domain.SearchItem
	sources := make([]string, 0, len(academicSources))

	for _, st := range academicSources {
		r, ok := bySource[st]
		if !ok {
			if st == domain.SourceTypeSemanticScholar {
				allItems = append(allItems, placeholderItems(query, perSourceLimit)...)
				sources = append(sources, string(st))
			}
			continue
		}
		if r.Error != nil {
			s.logger.Error().Err(r.Error).
				Str("source", string(st)).
				Str("query", query).
				Msg("source search failed")
			if s.metrics != nil {
				s.metrics.RecordSearchFailed(string(st), 0)
			}
			// The primary source degrades to placeholders instead of
			// dropping out of the join.
			if st == domain.SourceTypeSemanticScholar {
				allItems = append(allItems, placeholderItems(query, perSourceLimit)...)
				sources = append(sources, string(st))
			}
			continue
		}

		allItems = append(allItems, r.Result.Items...)
		sources = append(sources, string(st))
		if s.metrics != nil {
			s.metrics.RecordSearchCompleted(string(st), len(r.Result.Items), r.Result.SearchDuration.Seconds())
			s.metrics.RecordPapersDiscovered(string(st), len(r.Result.Items))
		}
		s.cacheItems(ctx, r.Result.Items)
	}

	unique := dedupeByTitle(allItems)
	if s.metrics != nil {
		s.metrics.RecordPaperDuplicates(len(allItems) - len(unique))
	}
	rankByRelevance(unique, query)

	items := unique
	if len(items) > limit {
		items = items[:limit]
	}

	return &Response{
		Items:      items,
		TotalFound: len(unique),
		Sources:    sources,
	}
}

// searchProvider queries a single source. It never returns an error:
// failures degrade to an empty list, or to placeholder items for
// Semantic Scholar.
func (s *Service) searchProvider(ctx context.Context, st domain.SourceType, query string, limit int) []domain.SearchItem {
	source := s.registry.Get(st)
	if source == nil {
		s.logger.Error().
			Str("source", string(st)).
			Msg("source not registered")
		if st == domain.SourceTypeSemanticScholar {
			return placeholderItems(query, limit)
		}
		return []domain.SearchItem{}
	}

	start := time.Now()
	result, err := source.Search(ctx, papersources.SearchParams{
		Query:      query,
		MaxResults: limit,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("source", string(st)).
			Str("query", query).
			Msg("source search failed")
		if s.metrics != nil {
			s.metrics.RecordSearchFailed(string(st), time.Since(start).Seconds())
		}
		if st == domain.SourceTypeSemanticScholar {
			return placeholderItems(query, limit)
		}
		return []domain.SearchItem{}
	}

	if s.metrics != nil {
		s.metrics.RecordSearchCompleted(string(st), len(result.Items), result.SearchDuration.Seconds())
		s.metrics.RecordPapersDiscovered(string(st), len(result.Items))
	}
	s.cacheItems(ctx, result.Items)

	return result.Items
}

// cacheItems persists each item into the paper cache in the background.
// Cache failures are logged and never affect the search.
func (s *Service) cacheItems(ctx context.Context, items []domain.SearchItem) {
	if s.cache == nil || len(items) == 0 {
		return
	}

	for _, item := range items {
		if item.ID == "" {
			continue
		}
		go func(item domain.SearchItem) {
			cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
			defer cancel()

			rawPayload, err := json.Marshal(item)
			if err != nil {
				rawPayload = nil
			}
			paper := &domain.CachedPaper{
				ExternalID: item.ID,
				Source:     item.Source,
				Title:      item.Title,
				Authors:    item.Authors,
				Abstract:   item.Abstract,
				URL:        item.URL,
				Year:       item.Year,
				RawPayload: rawPayload,
			}
			if err := s.cache.Upsert(cacheCtx, paper); err != nil {
				s.logger.Error().Err(err).
					Str("external_id", item.ID).
					Msg("caching search result failed")
				if s.metrics != nil {
					s.metrics.RecordCacheWriteFailed()
				}
				return
			}
			if s.metrics != nil {
				s.metrics.RecordCacheWrite()
			}
		}(item)
	}
}

// dedupeByTitle removes items whose lowercased, trimmed title was
// already seen. The first occurrence wins and relative order is kept.
func dedupeByTitle(items []domain.SearchItem) []domain.SearchItem {
	seen := make(map[string]struct{}, len(items))
	unique := make([]domain.SearchItem, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Title))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

// rankByRelevance sorts items in place, most relevant first. Each query
// token scores 2 when it appears in the lowercased title and 1 when it
// appears in the lowercased abstract. When both compared items carry a
// publication year, each gains a recency bonus proportional to its
// distance from the pivot year.
func rankByRelevance(items []domain.SearchItem, query string) {
	tokens := strings.Fields(strings.ToLower(query))

	sort.SliceStable(items, func(a, b int) bool {
		scoreA := relevanceScore(items[a], tokens)
		scoreB := relevanceScore(items[b], tokens)

		if items[a].Year != 0 && items[b].Year != 0 {
			scoreA += float64(items[a].Year-recencyPivotYear) * 0.1
			scoreB += float64(items[b].Year-recencyPivotYear) * 0.1
		}

		return scoreA > scoreB
	})
}

// relevanceScore computes the token-match portion of an item's score.
func relevanceScore(item domain.SearchItem, tokens []string) float64 {
	title := strings.ToLower(item.Title)
	abstract := strings.ToLower(item.Abstract)

	var score float64
	for _, token := range tokens {
		if strings.Contains(title, token) {
			score += 2
		}
		if abstract != "" && strings.Contains(abstract, token) {
			score += 1
		}
	}
	return score
}

// normalizeLimit substitutes the default for an unset limit. Range
// validation happens at the API surface.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// placeholderItems synthesizes up to min(limit, 3) clearly-artificial
// results interpolating the query, attributed to Semantic Scholar. They
// stand in when the primary source, or the whole search, fails.
func placeholderItems(query string, limit int) []domain.SearchItem {
	templates := []domain.SearchItem{
		{
			ID:       "mock-1",
			Source:   domain.SourceTypeSemanticScholar,
			Title:    fmt.Sprintf("Comprehensive Survey of %s Applications", query),
			Authors:  []string{"Alice Johnson", "Bob Smith"},
			Abstract: fmt.Sprintf("This comprehensive survey explores the current state of %s research, examining key methodologies, challenges, and future directions. We analyze over 100 recent publications to provide insights into emerging trends and opportunities in this rapidly evolving field.", query),
			URL:      "https://example.com/paper1",
			Year:     2023,
		},
		{
			ID:       "mock-2",
			Source:   domain.SourceTypeSemanticScholar,
			Title:    fmt.Sprintf("Deep Learning Approaches to %s", query),
			Authors:  []string{"Carol Davis", "David Wilson"},
			Abstract: fmt.Sprintf("Recent advances in deep learning have shown promising results in %s. This review covers the latest developments, challenges, and opportunities in applying neural networks to this domain.", query),
			URL:      "https://example.com/paper2",
			Year:     2024,
		},
		{
			ID:       "mock-3",
			Source:   domain.SourceTypeSemanticScholar,
			Title:    fmt.Sprintf("Statistical Analysis of %s Patterns", query),
			Authors:  []string{"Charlie Brown", "Diana Prince"},
			Abstract: fmt.Sprintf("We present a statistical framework for analyzing patterns in %s. Our methodology combines classical statistical approaches with modern computational techniques to provide robust analysis tools.", query),
			URL:      "https://example.com/paper3",
			Year:     2022,
		},
	}

	if limit > len(templates) {
		limit = len(templates)
	}
	if limit < 0 {
		limit = 0
	}
	return templates[:limit]
}
