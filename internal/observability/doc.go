// Package observability provides logging and metrics support for the paper
// search service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, caching, summaries, and LLM calls
//   - Context helpers for propagating request identity
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("query", query).Msg("search started")
//
// Add search context to a logger:
//
//	logger = observability.WithSearchContext(logger, query, source)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("paper_search")
//
// Record metrics:
//
//	metrics.RecordFederatedSearchStarted()
//	metrics.RecordSearchCompleted("semantic_scholar", 10, 1.2)
//	metrics.RecordSummaryMemoized()
//
// # Context Helpers
//
// Store and retrieve request identity:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithUserID(ctx, userID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	userID := observability.UserIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - user_id: Requesting user identifier
//   - query: User's search query
//   - source: Paper source (semantic_scholar, arxiv, pubmed, crossref, web_search)
//   - paper_id: Paper identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
