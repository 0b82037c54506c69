// Package main provides the entry point for the paper search service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scholarly/paper-search-service/internal/config"
	"github.com/scholarly/paper-search-service/internal/database"
	"github.com/scholarly/paper-search-service/internal/llm"
	"github.com/scholarly/paper-search-service/internal/observability"
	"github.com/scholarly/paper-search-service/internal/papersources"
	"github.com/scholarly/paper-search-service/internal/papersources/arxiv"
	"github.com/scholarly/paper-search-service/internal/papersources/crossref"
	"github.com/scholarly/paper-search-service/internal/papersources/pubmed"
	"github.com/scholarly/paper-search-service/internal/papersources/semanticscholar"
	"github.com/scholarly/paper-search-service/internal/papersources/websearch"
	"github.com/scholarly/paper-search-service/internal/repository"
	"github.com/scholarly/paper-search-service/internal/search"
	httpserver "github.com/scholarly/paper-search-service/internal/server/http"
	"github.com/scholarly/paper-search-service/internal/summarize"
)

// metricsNamespace prefixes all Prometheus metric names.
const metricsNamespace = "paper_search"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-search-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Create repositories.
	cacheRepo := repository.NewPgPaperCacheRepository(db)
	summaryRepo := repository.NewPgSummaryRepository(db)

	// Set up metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(metricsNamespace)
	}

	// Register paper source clients.
	registry := papersources.NewRegistry()
	registry.Register(semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:    cfg.PaperSources.SemanticScholar.BaseURL,
		APIKey:     cfg.PaperSources.SemanticScholar.APIKey,
		Timeout:    cfg.PaperSources.SemanticScholar.Timeout,
		RateLimit:  cfg.PaperSources.SemanticScholar.RateLimit,
		MaxResults: cfg.PaperSources.SemanticScholar.MaxResults,
		Enabled:    cfg.PaperSources.SemanticScholar.Enabled,
	}, nil))
	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    cfg.PaperSources.ArXiv.BaseURL,
		Timeout:    cfg.PaperSources.ArXiv.Timeout,
		RateLimit:  cfg.PaperSources.ArXiv.RateLimit,
		MaxResults: cfg.PaperSources.ArXiv.MaxResults,
		Enabled:    cfg.PaperSources.ArXiv.Enabled,
	}))
	registry.Register(pubmed.New(pubmed.Config{
		BaseURL:    cfg.PaperSources.PubMed.BaseURL,
		APIKey:     cfg.PaperSources.PubMed.APIKey,
		Timeout:    cfg.PaperSources.PubMed.Timeout,
		RateLimit:  cfg.PaperSources.PubMed.RateLimit,
		MaxResults: cfg.PaperSources.PubMed.MaxResults,
		Enabled:    cfg.PaperSources.PubMed.Enabled,
	}))
	registry.Register(crossref.New(crossref.Config{
		BaseURL:    cfg.PaperSources.Crossref.BaseURL,
		Timeout:    cfg.PaperSources.Crossref.Timeout,
		RateLimit:  cfg.PaperSources.Crossref.RateLimit,
		MaxResults: cfg.PaperSources.Crossref.MaxResults,
		Enabled:    cfg.PaperSources.Crossref.Enabled,
	}))
	registry.Register(websearch.New(websearch.Config{
		Enabled: cfg.PaperSources.WebSearch.Enabled,
	}, logger))

	// Create the LLM client.
	llmClient := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:  cfg.LLM.OpenAI.APIKey,
		Model:   cfg.LLM.OpenAI.Model,
		BaseURL: cfg.LLM.OpenAI.BaseURL,
	}, cfg.LLM.Timeout, cfg.LLM.MaxRetries)

	// Create services.
	searchSvc := search.NewService(registry, cacheRepo, metrics, logger)
	summarizeSvc := summarize.NewService(summaryRepo, cacheRepo, llmClient, searchSvc, metrics, logger, summarize.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	// Create the HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		searchSvc,
		summarizeSvc,
		summaryRepo,
		db,
		logger,
		nil,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP REST API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-search-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paper-search-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-search-service shutdown complete")
	return nil
}
