// Package httpserver provides the HTTP REST API for the paper search service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/scholarly/paper-search-service/internal/database"
	"github.com/scholarly/paper-search-service/internal/repository"
	"github.com/scholarly/paper-search-service/internal/search"
	"github.com/scholarly/paper-search-service/internal/summarize"
)

// SearchService is the search surface consumed by the HTTP handlers.
type SearchService interface {
	Search(ctx context.Context, req search.Request) *search.Response
	DeepResearch(ctx context.Context, req search.DeepResearchRequest) *search.DeepResearchResponse
}

// SummarizeService is the summarization surface consumed by the HTTP handlers.
type SummarizeService interface {
	Summarize(ctx context.Context, req summarize.Request, userID string) (*summarize.SummaryResponse, error)
	Analyze(ctx context.Context, req summarize.AnalyzeRequest) (*summarize.AnalyzeResponse, error)
}

// HealthChecker reports backing-store health for the probe endpoints.
// *database.DB satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	searchSvc      SearchService
	summarizeSvc   SummarizeService
	summaryRepo    repository.SummaryRepository
	health         HealthChecker
	logger         zerolog.Logger
	authMiddleware func(http.Handler) http.Handler
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
// authMiddleware may be nil, in which case API routes rely on the
// X-User-ID header alone for identity.
func NewServer(
	cfg Config,
	searchSvc SearchService,
	summarizeSvc SummarizeService,
	summaryRepo repository.SummaryRepository,
	health HealthChecker,
	logger zerolog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) *Server {
	s := &Server{
		searchSvc:      searchSvc,
		summarizeSvc:   summarizeSvc,
		summaryRepo:    summaryRepo,
		health:         health,
		logger:         logger.With().Str("component", "http-server").Logger(),
		authMiddleware: authMiddleware,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints (no auth)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	// API routes with auth + user identity
	r.Route("/api/v1", func(r chi.Router) {
		if s.authMiddleware != nil {
			r.Use(s.authMiddleware)
		}
		r.Use(userIdentityMiddleware)

		r.Get("/search", s.handleSearch)
		r.Post("/search/deep-research", s.handleDeepResearch)
		r.Post("/summarize", s.handleSummarize)
		r.Get("/summaries", s.handleListSummaries)
		r.Post("/analytics/article", s.handleAnalyzeArticle)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
