package repository

import (
	"context"

	"github.com/scholarly/paper-search-service/internal/domain"
)

// PaperCacheRepository handles the best-effort paper cache.
// Every paper that appears in a search result is written here keyed by its
// external identifier, so later summarization requests can resolve a paper ID
// without re-querying the provider.
type PaperCacheRepository interface {
	// Upsert inserts a paper into the cache or refreshes the existing row.
	// Rows are matched by external_id alone; a colliding identifier from a
	// different provider overwrites the stored row.
	// Returns domain.ErrInvalidInput if the paper has no external ID.
	Upsert(ctx context.Context, paper *domain.CachedPaper) error

	// GetByExternalID retrieves a cached paper by its external identifier.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByExternalID(ctx context.Context, externalID string) (*domain.CachedPaper, error)
}
