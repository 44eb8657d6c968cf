package expertise

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/observability"
	"github.com/helixir/expert-finder-service/internal/worksources/openalex"
)

// Corpus query shape: a bounded single-page search over recent,
// citation-sorted works.
const (
	corpusKeywordLimit = 3
	corpusYearWindow   = 6
	corpusPageSize     = 200
)

// Fetcher issues the bounded corpus search against the scholarly-works
// index.
type Fetcher struct {
	client  *openalex.Client
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewFetcher creates a Fetcher using the system clock.
func NewFetcher(client *openalex.Client, logger zerolog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		client:  client,
		logger:  observability.WithStageContext(logger, string(domain.StageCorpus)),
		metrics: metrics,
		now:     time.Now,
	}
}

// Corpus fetches up to one page of works for the expanded constraints. The
// query uses the top three primary keywords, a six-year window, citation
// sort, and the location's country filter when one resolved. Any fetch
// failure degrades to an empty corpus; downstream stages turn that into an
// empty result set, never an error.
func (f *Fetcher) Corpus(ctx context.Context, constraints domain.SearchConstraints, loc Location) ([]domain.Work, *domain.Degradation) {
	keywords := constraints.PrimaryKeywords
	if len(keywords) > corpusKeywordLimit {
		keywords = keywords[:corpusKeywordLimit]
	}

	from := time.Date(f.now().Year()-corpusYearWindow, time.January, 1, 0, 0, 0, 0, time.UTC)
	params := openalex.SearchParams{
		Query:            strings.Join(keywords, " "),
		FromDate:         &from,
		ExcludePreprints: true,
		PerPage:          corpusPageSize,
		SortByCitations:  true,
		CountryCode:      loc.CountryCode,
	}

	start := f.now()
	result, err := f.client.SearchWorks(ctx, params)
	f.metrics.RecordSourceRequest("openalex", "works", time.Since(start).Seconds())
	if err != nil {
		srcLogger := observability.WithSourceContext(f.logger, "openalex", "works")
		srcLogger.Warn().Err(err).Str("query", params.Query).Msg("corpus fetch failed, continuing with empty corpus")
		f.metrics.RecordSourceRequestFailed("openalex", "works", "fetch")
		f.metrics.RecordStageDegradation(string(domain.StageCorpus))
		deg := domain.NewDegradation(domain.StageCorpus, err)
		return nil, &deg
	}

	f.logger.Debug().
		Int("works", len(result.Works)).
		Int("total", result.TotalCount).
		Str("query", params.Query).
		Msg("corpus fetched")

	return result.Works, nil
}
