package expertise

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/expert-finder-service/internal/cache"
	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/llm"
	"github.com/helixir/expert-finder-service/internal/observability"
)

// Constraint cache sizing. Expanded constraints are small and topics repeat
// heavily, so a modest cache absorbs most generator traffic.
const (
	constraintCacheSize = 512
	constraintCacheTTL  = 6 * time.Hour

	constraintCacheName = "constraints"
)

// Expander turns a free-text topic into structured search constraints via
// the keyword-generation collaborator, caching results per (topic, location).
type Expander struct {
	generator llm.ConstraintGenerator
	cache     *cache.TTLCache[domain.SearchConstraints]
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewExpander creates an Expander. A nil generator is allowed: expansion
// then always degrades to fallback constraints.
func NewExpander(generator llm.ConstraintGenerator, c *cache.TTLCache[domain.SearchConstraints], logger zerolog.Logger, metrics *observability.Metrics) *Expander {
	if c == nil {
		c = cache.New[domain.SearchConstraints](constraintCacheSize, constraintCacheTTL)
	}
	return &Expander{
		generator: generator,
		cache:     c,
		logger:    observability.WithStageContext(logger, string(domain.StageConstraints)),
		metrics:   metrics,
	}
}

// Constraints expands topic into search constraints. Generator failure or a
// malformed response falls back to the trivial single-keyword constraints
// and reports a degradation; the caller still gets usable constraints
// either way. Successful expansions are cached.
func (e *Expander) Constraints(ctx context.Context, topic, location string) (domain.SearchConstraints, *domain.Degradation) {
	key := domain.NormalizeTerm(topic) + "|" + domain.NormalizeTerm(location)

	if cached, ok := e.cache.Get(key); ok {
		e.metrics.RecordCacheHit(constraintCacheName)
		return cached, nil
	}
	e.metrics.RecordCacheMiss(constraintCacheName)

	if e.generator == nil {
		e.metrics.RecordStageDegradation(string(domain.StageConstraints))
		deg := domain.NewDegradation(domain.StageConstraints, domain.ErrServiceUnavailable)
		return domain.FallbackConstraints(topic), &deg
	}

	constraints, err := e.generator.GenerateConstraints(ctx, topic)
	if err != nil {
		e.logger.Warn().Err(err).Str("topic", topic).Msg("constraint generation failed, using fallback")
		e.metrics.RecordStageDegradation(string(domain.StageConstraints))
		deg := domain.NewDegradation(domain.StageConstraints, err)
		return domain.FallbackConstraints(topic), &deg
	}

	e.cache.Set(key, *constraints)
	return *constraints, nil
}
