// Package repository provides data access interfaces and implementations
// for the paper search service.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL implementations
// following the repository pattern to abstract data persistence from business logic.
//
// # Repository Interfaces
//
// The package provides the following repository interfaces:
//
//   - PaperCacheRepository: Manages the best-effort cache of papers seen in search results
//   - SummaryRepository: Manages memoized generative-model summaries
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Wrap database errors with context using fmt.Errorf with %w verb.
// Common errors include:
//
//   - domain.ErrNotFound: Resource does not exist
//   - domain.ErrAlreadyExists: Unique constraint violation
//   - domain.ErrInvalidInput: Invalid parameters provided
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// Pass a transaction from database.DB.WithTransaction for atomic operations.
//
// # Usage Pattern
//
// Repositories are typically created at application startup and passed to services:
//
//	db, _ := database.New(ctx, cfg, logger)
//	cacheRepo := repository.NewPgPaperCacheRepository(db)
//	summaryRepo := repository.NewPgSummaryRepository(db)
package repository

import (
	"github.com/scholarly/paper-search-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// This allows repositories to work with both direct pool connections and transactions.
//
// Repository implementations follow a constructor pattern that accepts DBTX:
//
//	type PgSummaryRepository struct {
//	    db DBTX
//	}
//
//	func NewPgSummaryRepository(db DBTX) *PgSummaryRepository {
//	    return &PgSummaryRepository{db: db}
//	}
//
// This design enables:
//   - Direct usage with a connection pool for standard operations
//   - Transaction support by passing a transaction (pgx.Tx) instead
//   - Easy testing with mock implementations of DBTX
type DBTX = database.DBTX

// PostgreSQL error codes used for error mapping.
const (
	pgUniqueViolation = "23505" // unique_violation
)
