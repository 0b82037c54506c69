// Package websearch provides a placeholder web search paper source.
//
// No web search backend is wired yet. The client participates in
// federated searches so the dispatch shape stays stable, but every
// search logs a warning and returns an empty result.
package websearch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarly/paper-search-service/internal/domain"
	"github.com/scholarly/paper-search-service/internal/papersources"
)

// sourceName is the human-readable name for this source.
const sourceName = "Web Search"

// Config holds configuration for the web search client.
type Config struct {
	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// Client implements the papersources.PaperSource interface as a stub.
type Client struct {
	config Config
	logger zerolog.Logger
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new web search client.
func New(cfg Config, logger zerolog.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger.With().Str("component", "websearch").Logger(),
	}
}

// Search logs a warning and returns an empty result set.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	c.logger.Warn().
		Str("query", params.Query).
		Msg("web search not implemented yet")

	return &papersources.SearchResult{
		Items:          []domain.SearchItem{},
		TotalResults:   0,
		Source:         domain.SourceTypeWebSearch,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeWebSearch
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}
