// Package papersources provides interfaces and types for academic paper source clients.
//
// This package defines the foundational abstractions that all paper source implementations
// must follow. Each provider (Semantic Scholar, arXiv, PubMed, Crossref, web search)
// implements the PaperSource interface, allowing the search service to query multiple
// sources concurrently with a unified API.
//
// Example usage:
//
//	source := semanticscholar.NewClient(cfg, httpClient)
//	params := papersources.SearchParams{
//		Query:      "CRISPR gene editing",
//		MaxResults: 10,
//	}
//	result, err := source.Search(ctx, params)
package papersources

import (
	"context"
	"time"

	"github.com/scholarly/paper-search-service/internal/domain"
)

// SearchParams defines the parameters for searching academic papers.
type SearchParams struct {
	// Query is the search query string (required).
	// The format may vary by source - some support boolean operators
	// or field-specific searches.
	Query string

	// MaxResults limits the number of papers returned in a single request.
	// Sources may have their own maximum limits that override this value.
	// A value of 0 uses the source's default limit.
	MaxResults int

	// Offset specifies the starting position for paginated results.
	// Used in conjunction with MaxResults for pagination.
	Offset int
}

// SearchResult contains the results from a paper source search operation.
type SearchResult struct {
	// Items contains the normalized papers returned by the search.
	// May be empty if no papers match the search criteria.
	Items []domain.SearchItem

	// TotalResults is the total number of papers matching the query,
	// regardless of pagination limits. This value is provided by the
	// source API and may be an estimate for large result sets.
	TotalResults int

	// Source identifies which paper source provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search,
	// including network latency and response parsing.
	SearchDuration time.Duration
}

// PaperSource defines the interface that all paper source clients must implement.
type PaperSource interface {
	// Search queries the paper source for papers matching the given parameters.
	// Returns a SearchResult containing the matching papers.
	// The context should be used for cancellation and deadline propagation.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting as needed
	//   - Transform source-specific responses to domain.SearchItem
	//   - Include appropriate error wrapping with source context
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this paper source.
	// Used for attribution, deduplication, and routing.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this paper source.
	// Used for logging, metrics, and display purposes.
	Name() string

	// IsEnabled returns whether this paper source is currently enabled
	// and available for searches. A source may be disabled due to
	// configuration, missing API keys, or temporary outages.
	IsEnabled() bool
}
