package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scholarly/paper-search-service/internal/domain"
)

// Summary listing defaults and limits.
const (
	defaultSummaryListLimit = 20
	maxSummaryListLimit     = 100
)

// Compile-time interface verification.
var _ SummaryRepository = (*PgSummaryRepository)(nil)

// PgSummaryRepository is a PostgreSQL implementation of SummaryRepository.
type PgSummaryRepository struct {
	db DBTX
}

// NewPgSummaryRepository creates a new PostgreSQL summary repository.
func NewPgSummaryRepository(db DBTX) *PgSummaryRepository {
	return &PgSummaryRepository{db: db}
}

// Create inserts a new summary row.
func (r *PgSummaryRepository) Create(ctx context.Context, summary *domain.Summary) (*domain.Summary, error) {
	if summary == nil {
		return nil, domain.NewValidationError("summary", "summary cannot be nil")
	}
	if summary.InputHash == "" {
		return nil, domain.NewValidationError("input_hash", "input hash is required")
	}
	if summary.Summary == "" {
		return nil, domain.NewValidationError("summary", "summary text is required")
	}

	keyIdeasJSON, err := json.Marshal(summary.KeyIdeas)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key ideas: %w", err)
	}

	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO summaries (
			id, user_id, paper_id, input_source, input_hash, summary, key_ideas, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		summary.ID,
		summary.UserID,
		summary.PaperID,
		summary.Source,
		summary.InputHash,
		summary.Summary,
		keyIdeasJSON,
		now,
	).Scan(&summary.ID, &summary.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.NewAlreadyExistsError("summary", summary.InputHash)
		}
		return nil, fmt.Errorf("failed to create summary: %w", err)
	}

	return summary, nil
}

// GetByInputHash retrieves a summary by the hash of its normalized input.
func (r *PgSummaryRepository) GetByInputHash(ctx context.Context, inputHash string) (*domain.Summary, error) {
	if inputHash == "" {
		return nil, domain.NewValidationError("input_hash", "input hash is required")
	}

	query := `
		SELECT id, user_id, paper_id, input_source, input_hash, summary, key_ideas, created_at
		FROM summaries
		WHERE input_hash = $1`

	summary, err := scanSummary(r.db.QueryRow(ctx, query, inputHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("summary", inputHash)
		}
		return nil, fmt.Errorf("failed to get summary by input hash: %w", err)
	}

	return summary, nil
}

// ListByUser retrieves the most recent summaries requested by a user.
func (r *PgSummaryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Summary, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}
	if limit <= 0 {
		limit = defaultSummaryListLimit
	}
	if limit > maxSummaryListLimit {
		limit = maxSummaryListLimit
	}

	query := `
		SELECT id, user_id, paper_id, input_source, input_hash, summary, key_ideas, created_at
		FROM summaries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summaries: %w", err)
	}

	return summaries, nil
}

// scanSummary scans a summary row from either pgx.Row or pgx.Rows.
func scanSummary(row pgx.Row) (*domain.Summary, error) {
	var (
		summary      domain.Summary
		keyIdeasJSON []byte
	)
	err := row.Scan(
		&summary.ID,
		&summary.UserID,
		&summary.PaperID,
		&summary.Source,
		&summary.InputHash,
		&summary.Summary,
		&keyIdeasJSON,
		&summary.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(keyIdeasJSON) > 0 {
		if err := json.Unmarshal(keyIdeasJSON, &summary.KeyIdeas); err != nil {
			return nil, fmt.Errorf("failed to unmarshal key ideas: %w", err)
		}
	}

	return &summary, nil
}
