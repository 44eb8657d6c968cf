// Package llm provides LLM-backed search constraint generation and expert
// biography writing for the Expert Finder Service.
//
// A topic such as "heart failure" is expanded into structured search
// constraints (primary keywords, subfields, MeSH terms, synonyms, exclusions)
// that drive queries against scholarly indexes. After ranking, the same
// providers write short biographies for the top experts.
//
// Example usage:
//
//	gen, err := llm.NewGenerator(llm.FactoryConfig{Provider: "anthropic", ...})
//	constraints, err := gen.GenerateConstraints(ctx, "heart failure")
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/helixir/expert-finder-service/internal/domain"
)

// Operation labels reported to usage metrics.
const (
	opConstraints = "constraints"
	opBiography   = "biography"
)

// MetricsRecorder receives per-request token usage and failures.
// *observability.Metrics satisfies it; a nil recorder disables recording.
type MetricsRecorder interface {
	RecordLLMRequest(operation, model string, durationSeconds float64, inputTokens, outputTokens int)
	RecordLLMRequestFailed(operation, model, errorType string)
}

func recordUsage(m MetricsRecorder, operation, model string, start time.Time, comp *completion) {
	if m == nil {
		return
	}
	m.RecordLLMRequest(operation, model, time.Since(start).Seconds(), comp.InputTokens, comp.OutputTokens)
}

func recordFailure(m MetricsRecorder, operation, model string, err error) {
	if m == nil {
		return
	}
	m.RecordLLMRequestFailed(operation, model, errorLabel(err))
}

var errEmptyBiography = errors.New("response contains no biography text")

// errorLabel collapses an error into a low-cardinality metric label.
func errorLabel(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type != "" {
			return apiErr.Type
		}
		return fmt.Sprintf("http_%d", apiErr.StatusCode)
	}
	return "invalid_response"
}

// BiographyRequest contains the facts a biography is written from. Only
// verified metrics should be supplied so the model cannot invent credentials.
type BiographyRequest struct {
	// Name is the expert's display name.
	Name string

	// Institutions are the expert's known affiliations.
	Institutions []string

	// Topic is the search topic the expert was ranked for.
	Topic string

	// TopicWorks is the number of works matching the topic.
	TopicWorks int

	// TopicCitations is the citation count across topic works.
	TopicCitations int

	// RecentTitles are titles of the expert's most recent topic works.
	RecentTitles []string

	// TrialWorks is the number of clinical trial publications, if any.
	TrialWorks int
}

// ConstraintGenerator expands a free-text topic into structured search
// constraints.
type ConstraintGenerator interface {
	// GenerateConstraints expands topic into search constraints. The returned
	// constraints always contain at least one primary keyword; a response
	// the provider cannot parse is reported as an error so callers can fall
	// back to degraded constraints.
	GenerateConstraints(ctx context.Context, topic string) (*domain.SearchConstraints, error)
}

// BiographyWriter produces a short factual biography for a ranked expert.
type BiographyWriter interface {
	// WriteBiography returns a two to three sentence biography grounded in
	// the supplied metrics. Implementations must not block ranking: callers
	// treat errors as a degradation, not a failure.
	WriteBiography(ctx context.Context, req BiographyRequest) (string, error)
}

// Generator is the full provider surface: both pipeline stages plus
// identification for logging and metrics.
type Generator interface {
	ConstraintGenerator
	BiographyWriter

	// Provider returns the provider name (e.g., "openai", "anthropic").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}

// completion is the provider-neutral result of a single LLM call.
type completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}
