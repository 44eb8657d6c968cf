// Package observability provides logging, metrics, and context helpers for
// the expert finder service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, pipeline stages, and sources
//   - Context helpers for propagating request identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("expert search started")
//
// Add search context to a logger:
//
//	logger = observability.WithSearchContext(logger, requestID, topic, location)
//
// # Metrics
//
// Initialize metrics once at startup:
//
//	metrics := observability.NewMetrics("expert_finder")
//
// Record metrics:
//
//	metrics.RecordSearchStarted()
//	metrics.RecordStageDuration("corpus", elapsed.Seconds())
//	metrics.RecordSourceRateLimited("openalex")
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: Expert search request identifier
//   - topic: User's search topic
//   - location: Optional location filter
//   - stage: Pipeline stage (constraints, corpus, enrichment, verification)
//   - source: Bibliographic source (openalex, semantic_scholar)
//   - author_id: Author identifier from the primary source
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
