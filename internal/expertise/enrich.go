package expertise

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/observability"
	"github.com/helixir/expert-finder-service/internal/worksources/openalex"
)

const (
	// enrichFastLimit bounds how many candidates are enriched in fast mode.
	enrichFastLimit = 100

	// enrichConcurrency bounds parallel batch lookups.
	enrichConcurrency = 4
)

// Enricher replaces search-derived career counts with authoritative
// lifetime totals from the works index's author endpoint.
type Enricher struct {
	client  *openalex.Client
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewEnricher creates an Enricher.
func NewEnricher(client *openalex.Client, logger zerolog.Logger, metrics *observability.Metrics) *Enricher {
	return &Enricher{
		client:  client,
		logger:  observability.WithStageContext(logger, string(domain.StageEnrichment)),
		metrics: metrics,
	}
}

// Profiles batch-fetches lifetime works/citations for the top candidates
// and writes them onto the candidates in place. Fast mode enriches at most
// enrichFastLimit candidates (the input is already citation-ordered);
// thorough mode enriches all of them. When a profile carries per-year work
// counts, the candidate's recent-activity counters are refreshed from them
// as well, since the topic corpus undercounts authors with broad output.
// Batches run concurrently, capped at MaxAuthorBatch ids each. Candidates
// whose batch fails keep their search-derived fallback counts, so lifetime
// totals are never missing.
func (e *Enricher) Profiles(ctx context.Context, candidates []*domain.AuthorCandidate, mode domain.ProfileFetchMode) *domain.Degradation {
	subset := candidates
	if mode != domain.ProfileFetchThorough && len(subset) > enrichFastLimit {
		subset = subset[:enrichFastLimit]
	}
	if len(subset) == 0 {
		return nil
	}

	byID := make(map[string]*domain.AuthorCandidate, len(subset))
	ids := make([]string, 0, len(subset))
	for _, c := range subset {
		byID[c.AuthorID] = c
		ids = append(ids, c.AuthorID)
	}

	var mu sync.Mutex
	var failedBatches int
	var lastErr error

	currentYear := time.Now().UTC().Year()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for start := 0; start < len(ids); start += openalex.MaxAuthorBatch {
		end := min(start+openalex.MaxAuthorBatch, len(ids))
		batch := ids[start:end]

		g.Go(func() error {
			t0 := time.Now()
			profiles, err := e.client.GetAuthors(gctx, batch)
			e.metrics.RecordSourceRequest("openalex", "authors", time.Since(t0).Seconds())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				topic, _ := observability.SearchFromContext(gctx)
				e.logger.Warn().Err(err).Str("topic", topic).Int("batch_size", len(batch)).Msg("profile batch failed, keeping search-derived counts")
				e.metrics.RecordSourceRequestFailed("openalex", "authors", "fetch")
				failedBatches++
				lastErr = err
				return nil
			}
			for i := range profiles {
				p := &profiles[i]
				c, ok := byID[p.AuthorID]
				if !ok {
					continue
				}
				if p.WorksCount > 0 {
					c.LifetimeWorks = p.WorksCount
				}
				if p.CitedByCount > 0 {
					c.LifetimeCitations = p.CitedByCount
				}
				if len(p.CountsByYear) > 0 {
					c.RecentWorks1y = p.WorksInLastYears(currentYear, 1)
					c.RecentWorks2y = p.WorksInLastYears(currentYear, 2)
					c.RecentWorks5y = p.WorksInLastYears(currentYear, 5)
				}
			}
			return nil
		})
	}

	// Workers swallow their own errors; Wait only surfaces context
	// cancellation, which has the same degraded outcome.
	_ = g.Wait()

	if failedBatches > 0 {
		e.metrics.RecordStageDegradation(string(domain.StageEnrichment))
		deg := domain.NewDegradation(domain.StageEnrichment, lastErr)
		return &deg
	}
	return nil
}
