// Package main provides the entry point for the expert finder HTTP server.
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

	"github.com/helixir/expert-finder-service/internal/config"
	"github.com/helixir/expert-finder-service/internal/expertise"
	"github.com/helixir/expert-finder-service/internal/llm"
	"github.com/helixir/expert-finder-service/internal/observability"
	httpserver "github.com/helixir/expert-finder-service/internal/server/http"
	"github.com/helixir/expert-finder-service/internal/worksources/openalex"
	"github.com/helixir/expert-finder-service/internal/worksources/semanticscholar"
)

// metricsNamespace prefixes all Prometheus metric names.
const metricsNamespace = "expertfinder"

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
	logger.Info().Msg("expert-finder-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(metricsNamespace)

	// Create the corpus and cross-reference source clients.
	openAlexClient := openalex.New(openalex.Config{
		BaseURL:   cfg.Sources.OpenAlex.BaseURL,
		Email:     cfg.Sources.OpenAlex.Email,
		Timeout:   cfg.Sources.OpenAlex.Timeout,
		RateLimit: cfg.Sources.OpenAlex.RateLimit,
		BurstSize: cfg.Sources.OpenAlex.BurstSize,
	})
	crossRefClient := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:   cfg.Sources.SemanticScholar.BaseURL,
		APIKey:    cfg.Sources.SemanticScholar.APIKey,
		Timeout:   cfg.Sources.SemanticScholar.Timeout,
		RateLimit: cfg.Sources.SemanticScholar.RateLimit,
		BurstSize: cfg.Sources.SemanticScholar.BurstSize,
	}, nil)

	// Create the LLM generator when enabled. Without one, constraint
	// expansion and biographies degrade to their fallbacks.
	var constraintGen llm.ConstraintGenerator
	var biographer llm.BiographyWriter
	if cfg.LLM.Enabled {
		generator, genErr := llm.NewGenerator(llm.FactoryConfig{
			Provider:    cfg.LLM.Provider,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  cfg.LLM.MaxRetries,
			OpenAI: llm.OpenAIConfig{
				APIKey:  cfg.LLM.OpenAI.APIKey,
				Model:   cfg.LLM.OpenAI.Model,
				BaseURL: cfg.LLM.OpenAI.BaseURL,
			},
			Anthropic: llm.AnthropicConfig{
				APIKey:  cfg.LLM.Anthropic.APIKey,
				Model:   cfg.LLM.Anthropic.Model,
				BaseURL: cfg.LLM.Anthropic.BaseURL,
			},
			Metrics: metrics,
		})
		if genErr != nil {
			return fmt.Errorf("create LLM generator: %w", genErr)
		}
		constraintGen = generator
		if cfg.LLM.BiographiesEnabled {
			biographer = generator
		}
		logger.Info().
			Str("provider", generator.Provider()).
			Str("model", generator.Model()).
			Bool("biographies", cfg.LLM.BiographiesEnabled).
			Msg("LLM generator initialized")
	} else {
		logger.Warn().Msg("LLM disabled; constraint expansion and biographies fall back to defaults")
	}

	// Assemble the expert discovery pipeline.
	svc := expertise.NewService(expertise.ServiceConfig{
		Expander:        expertise.NewExpander(constraintGen, nil, logger, metrics),
		Fetcher:         expertise.NewFetcher(openAlexClient, logger, metrics),
		Aggregator:      expertise.NewAggregator(),
		Enricher:        expertise.NewEnricher(openAlexClient, logger, metrics),
		Verifier:        expertise.NewVerifier(crossRefClient, logger, metrics),
		Ranker:          expertise.NewRanker(),
		Biographer:      biographer,
		RankedCacheSize: cfg.Search.RankedCacheSize,
		RankedCacheTTL:  cfg.Search.RankedCacheTTL,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
		Logger:          logger,
		Metrics:         metrics,
	})

	// Create the HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, svc, logger)

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
	readyLog.Msg("expert-finder-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down expert-finder-service")

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

	logger.Info().Msg("expert-finder-service shutdown complete")
	return nil
}
