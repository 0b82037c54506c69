package repository

import (
	"context"

	"github.com/scholarly/paper-search-service/internal/domain"
)

// SummaryRepository handles memoized generative-model summaries.
// Summaries are unique per input hash; a second insert with the same hash
// fails with domain.ErrAlreadyExists so callers can re-read the winning row.
type SummaryRepository interface {
	// Create inserts a new summary row.
	// Returns domain.ErrAlreadyExists if a summary with the same input hash
	// was inserted concurrently.
	// Returns domain.ErrInvalidInput if required fields are missing.
	Create(ctx context.Context, summary *domain.Summary) (*domain.Summary, error)

	// GetByInputHash retrieves a summary by the hash of its normalized input.
	// Returns domain.ErrNotFound if no matching summary exists.
	GetByInputHash(ctx context.Context, inputHash string) (*domain.Summary, error)

	// ListByUser retrieves the most recent summaries requested by a user,
	// newest first. Limit is clamped to [1, 100]; zero means the default of 20.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Summary, error)
}
