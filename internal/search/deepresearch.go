package search

import (
	"context"

	"github.com/scholarly/paper-search-service/internal/domain"
)

// Research depth levels accepted by DeepResearch. They shape the
// response metadata only; all depths currently run the same
// all-sources search.
const (
	DepthQuick    = "quick"
	DepthStandard = "standard"
	DepthDeep     = "deep"
)

// Bounds for the number of sources consulted by DeepResearch.
const (
	MinResearchSources     = 10
	MaxResearchSources     = 200
	DefaultResearchSources = 50
)

// DeepResearchRequest describes a research request over a topic.
type DeepResearchRequest struct {
	// Topic is the research topic to investigate.
	Topic string

	// MaxSources bounds the number of papers gathered. Values outside
	// [MinResearchSources, MaxResearchSources] are clamped; zero means
	// DefaultResearchSources.
	MaxSources int

	// Depth is one of DepthQuick, DepthStandard, or DepthDeep.
	// Defaults to DepthStandard.
	Depth string

	// Language restricts result language ("ru", "en", or "any").
	// Currently informational only.
	Language string
}

// DeepResearchResponse is the result of a research request.
type DeepResearchResponse struct {
	Topic         string              `json:"topic"`
	ResearchDepth string              `json:"researchDepth"`
	TotalSources  int                 `json:"totalSources"`
	TotalResults  int                 `json:"totalResults"`
	Sources       []string            `json:"sources"`
	Papers        []domain.SearchItem `json:"papers"`
	SearchTime    int64               `json:"searchTime"`
}

// DeepResearch gathers papers on a topic from every source. It is a
// synchronous relabeling of an all-sources Search with the limit taken
// from MaxSources; no staged progress reporting is performed.
func (s *Service) DeepResearch(ctx context.Context, req DeepResearchRequest) *DeepResearchResponse {
	depth := req.Depth
	if depth == "" {
		depth = DepthStandard
	}

	result := s.Search(ctx, Request{
		Query:    req.Topic,
		Provider: domain.SourceTypeAllSources,
		Limit:    normalizeMaxSources(req.MaxSources),
	})

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	return &DeepResearchResponse{
		Topic:         req.Topic,
		ResearchDepth: depth,
		TotalSources:  len(sources),
		TotalResults:  len(result.Items),
		Sources:       sources,
		Papers:        result.Items,
		SearchTime:    result.SearchTime,
	}
}

// normalizeMaxSources clamps the requested source count into
// [MinResearchSources, MaxResearchSources], defaulting when unset.
func normalizeMaxSources(maxSources int) int {
	if maxSources <= 0 {
		return DefaultResearchSources
	}
	if maxSources < MinResearchSources {
		return MinResearchSources
	}
	if maxSources > MaxResearchSources {
		return MaxResearchSources
	}
	return maxSources
}
