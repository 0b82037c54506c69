package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scholarly/paper-search-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperCacheRepository = (*PgPaperCacheRepository)(nil)

// PgPaperCacheRepository is a PostgreSQL implementation of PaperCacheRepository.
type PgPaperCacheRepository struct {
	db DBTX
}

// NewPgPaperCacheRepository creates a new PostgreSQL paper cache repository.
func NewPgPaperCacheRepository(db DBTX) *PgPaperCacheRepository {
	return &PgPaperCacheRepository{db: db}
}

// Upsert inserts a paper into the cache or refreshes the existing row.
func (r *PgPaperCacheRepository) Upsert(ctx context.Context, paper *domain.CachedPaper) error {
	if paper == nil {
		return domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.ExternalID == "" {
		return domain.NewValidationError("external_id", "external ID is required")
	}

	authorsJSON, err := json.Marshal(paper.Authors)
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO paper_cache (
			external_id, source, title, authors, abstract, url, year, raw_payload,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (external_id) DO UPDATE SET
			source = EXCLUDED.source,
			title = EXCLUDED.title,
			authors = EXCLUDED.authors,
			abstract = EXCLUDED.abstract,
			url = EXCLUDED.url,
			year = EXCLUDED.year,
			raw_payload = COALESCE(EXCLUDED.raw_payload, paper_cache.raw_payload),
			updated_at = NOW()`

	_, err = r.db.Exec(ctx, query,
		paper.ExternalID,
		paper.Source,
		paper.Title,
		authorsJSON,
		paper.Abstract,
		paper.URL,
		paper.Year,
		paper.RawPayload,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cached paper: %w", err)
	}

	return nil
}

// GetByExternalID retrieves a cached paper by its external identifier.
func (r *PgPaperCacheRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.CachedPaper, error) {
	if externalID == "" {
		return nil, domain.NewValidationError("external_id", "external ID is required")
	}

	query := `
		SELECT external_id, source, title, authors, abstract, url, year, raw_payload,
			created_at, updated_at
		FROM paper_cache
		WHERE external_id = $1`

	var (
		paper       domain.CachedPaper
		authorsJSON []byte
	)
	err := r.db.QueryRow(ctx, query, externalID).Scan(
		&paper.ExternalID,
		&paper.Source,
		&paper.Title,
		&authorsJSON,
		&paper.Abstract,
		&paper.URL,
		&paper.Year,
		&paper.RawPayload,
		&paper.CreatedAt,
		&paper.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", externalID)
		}
		return nil, fmt.Errorf("failed to get cached paper: %w", err)
	}

	if len(authorsJSON) > 0 {
		if err := json.Unmarshal(authorsJSON, &paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}

	return &paper, nil
}
