// Package expertise implements the expert discovery pipeline: constraint
// expansion, corpus fetch, author aggregation, relevance scoring, profile
// enrichment, cross-reference verification, ranking, and pagination.
//
// Every external call failure degrades to an empty or default value and is
// surfaced as a domain.Degradation on the response; no stage failure aborts
// a search. The ranked list for a query is cached and reused verbatim for
// subsequent pages, so pagination is stable within the cache TTL.
package expertise

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/expert-finder-service/internal/cache"
	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/llm"
	"github.com/helixir/expert-finder-service/internal/observability"
)

// SearchMode selects the scoring formula.
type SearchMode string

const (
	// ModeStandard uses the full weighted composite score.
	ModeStandard SearchMode = "standard"

	// ModeDashboard uses the lightweight recency-biased formula.
	ModeDashboard SearchMode = "dashboard"
)

// Paging bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50

	rankedCacheSize = 256
	rankedCacheTTL  = 30 * time.Minute

	rankedCacheName = "ranked_lists"

	biographyTimeout = 15 * time.Second
)

// Query is one expert search request.
type Query struct {
	// Topic is the free-text research topic (required).
	Topic string

	// Location optionally scopes the search ("Toronto, Canada").
	Location string

	// Page is the 1-based result page. Zero means page 1.
	Page int

	// PageSize is the page length, capped at MaxPageSize. Zero uses
	// DefaultPageSize.
	PageSize int

	// Mode selects standard or dashboard scoring. Empty means standard.
	Mode SearchMode

	// ProfileFetch selects fast (bounded) or thorough enrichment. Empty
	// means fast.
	ProfileFetch domain.ProfileFetchMode
}

// rankedList is the cached pipeline output for one query key.
type rankedList struct {
	Experts      []domain.RankedExpert
	Degradations []domain.Degradation
}

// Service runs the expert discovery pipeline.
type Service struct {
	expander   *Expander
	fetcher    *Fetcher
	aggregator *Aggregator
	enricher   *Enricher
	verifier   *Verifier
	ranker     *Ranker

	// biographer is optional; when nil, page entries keep the template
	// biography.
	biographer llm.BiographyWriter

	rankedCache *cache.TTLCache[rankedList]
	logger      zerolog.Logger
	metrics     *observability.Metrics
	now         func() time.Time

	defaultPageSize int
	maxPageSize     int
}

// ServiceConfig wires the pipeline stages into a Service.
type ServiceConfig struct {
	Expander   *Expander
	Fetcher    *Fetcher
	Aggregator *Aggregator
	Enricher   *Enricher
	Verifier   *Verifier
	Ranker     *Ranker
	Biographer llm.BiographyWriter

	// RankedCache overrides the default ranked-list cache, for tests.
	RankedCache *cache.TTLCache[rankedList]

	// RankedCacheSize and RankedCacheTTL size the default ranked-list
	// cache. Zero values use the package defaults.
	RankedCacheSize int
	RankedCacheTTL  time.Duration

	// DefaultPageSize and MaxPageSize override the paging bounds when
	// positive.
	DefaultPageSize int
	MaxPageSize     int

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// NewService creates the pipeline service.
func NewService(cfg ServiceConfig) *Service {
	rankedCache := cfg.RankedCache
	if rankedCache == nil {
		size := cfg.RankedCacheSize
		if size <= 0 {
			size = rankedCacheSize
		}
		ttl := cfg.RankedCacheTTL
		if ttl <= 0 {
			ttl = rankedCacheTTL
		}
		rankedCache = cache.New[rankedList](size, ttl)
	}

	defaultPage := cfg.DefaultPageSize
	if defaultPage <= 0 {
		defaultPage = DefaultPageSize
	}
	maxPage := cfg.MaxPageSize
	if maxPage < defaultPage {
		maxPage = max(defaultPage, MaxPageSize)
	}

	return &Service{
		expander:        cfg.Expander,
		fetcher:         cfg.Fetcher,
		aggregator:      cfg.Aggregator,
		enricher:        cfg.Enricher,
		verifier:        cfg.Verifier,
		ranker:          cfg.Ranker,
		biographer:      cfg.Biographer,
		rankedCache:     rankedCache,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		now:             time.Now,
		defaultPageSize: defaultPage,
		maxPageSize:     maxPage,
	}
}

// FindExperts runs the full pipeline for a query, or serves a page from
// the cached ranked list when one exists. The returned page always has a
// non-nil expert slice; a topic with no matching works yields an empty
// page, not an error.
func (s *Service) FindExperts(ctx context.Context, q Query) (*domain.ExpertPage, error) {
	if err := s.normalizeQuery(&q); err != nil {
		s.metrics.RecordSearchFailed()
		return nil, err
	}

	ctx = observability.WithSearch(ctx, q.Topic, q.Location)
	logger := observability.WithSearchContext(s.logger, observability.RequestIDFromContext(ctx), q.Topic, q.Location)

	s.metrics.RecordSearchStarted()
	start := s.now()

	loc := ParseLocation(q.Location)
	key := cacheKey(q, loc)

	list, ok := s.rankedCache.Get(key)
	if ok {
		s.metrics.RecordCacheHit(rankedCacheName)
	} else {
		s.metrics.RecordCacheMiss(rankedCacheName)
		list = s.runPipeline(ctx, q, loc)
		s.rankedCache.Set(key, list)
	}

	experts := SlicePage(list.Experts, q.Page, q.PageSize)
	degradations := list.Degradations
	if deg := s.attachBiographies(ctx, q.Topic, list.Experts, experts, q.Page, q.PageSize); deg != nil {
		degradations = append(append([]domain.Degradation(nil), degradations...), *deg)
	}

	page := &domain.ExpertPage{
		Experts:      experts,
		TotalFound:   len(list.Experts),
		Page:         q.Page,
		PageSize:     q.PageSize,
		HasMore:      q.Page*q.PageSize < len(list.Experts),
		Degradations: degradations,
	}

	s.metrics.RecordSearchCompleted(len(experts), time.Since(start).Seconds())
	logger.Info().
		Int("total_found", page.TotalFound).
		Int("page", page.Page).
		Bool("cache_hit", ok).
		Msg("expert search completed")

	return page, nil
}

// runPipeline executes the eight stages for a cache miss and returns the
// full ranked list with any stage degradations.
func (s *Service) runPipeline(ctx context.Context, q Query, loc Location) rankedList {
	var degradations []domain.Degradation
	record := func(deg *domain.Degradation) {
		if deg != nil {
			degradations = append(degradations, *deg)
		}
	}

	t0 := s.now()
	constraints, deg := s.expander.Constraints(ctx, q.Topic, q.Location)
	record(deg)
	s.metrics.RecordStageDuration(string(domain.StageConstraints), time.Since(t0).Seconds())

	t1 := s.now()
	works, deg := s.fetcher.Corpus(ctx, constraints, loc)
	record(deg)
	s.metrics.RecordStageDuration(string(domain.StageCorpus), time.Since(t1).Seconds())

	candidates := s.aggregator.Aggregate(works, constraints, loc)
	s.metrics.RecordCandidatesAggregated(len(candidates))
	if len(candidates) == 0 {
		return rankedList{Degradations: degradations}
	}

	t2 := s.now()
	record(s.enricher.Profiles(ctx, candidates, q.ProfileFetch))
	s.metrics.RecordStageDuration(string(domain.StageEnrichment), time.Since(t2).Seconds())

	t3 := s.now()
	verified, deg := s.verifier.Candidates(ctx, topByCitations(candidates))
	record(deg)
	s.metrics.RecordStageDuration(string(domain.StageVerify), time.Since(t3).Seconds())

	ranked := s.ranker.Experts(verified, RankOptions{
		Dashboard:   q.Mode == ModeDashboard,
		TrialIntent: DetectTrialIntent(q.Topic),
		Located:     !loc.IsZero(),
	})

	return rankedList{Experts: ranked, Degradations: degradations}
}

// attachBiographies replaces the template biography on page entries with a
// generated one when a biographer is configured. Generation failures keep
// the template and surface a single biography degradation.
func (s *Service) attachBiographies(ctx context.Context, topic string, ranked []domain.RankedExpert, experts []domain.Expert, page, pageSize int) *domain.Degradation {
	if s.biographer == nil || len(experts) == 0 {
		return nil
	}

	bioCtx, cancel := context.WithTimeout(ctx, biographyTimeout)
	defer cancel()

	var lastErr error
	offset := (page - 1) * pageSize
	for i := range experts {
		re := &ranked[offset+i]

		titles := make([]string, 0, len(experts[i].RecentWorks))
		for _, w := range experts[i].RecentWorks {
			titles = append(titles, w.Title)
		}
		trialWorks, _ := trialCounts(&re.AuthorCandidate)

		bio, err := s.biographer.WriteBiography(bioCtx, llm.BiographyRequest{
			Name:           re.Name,
			Institutions:   re.InstitutionNames(),
			Topic:          topic,
			TopicWorks:     len(re.Works),
			TopicCitations: re.TotalCitations,
			RecentTitles:   titles,
			TrialWorks:     trialWorks,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("author_id", re.AuthorID).Msg("biography generation failed, keeping template")
			lastErr = err
			continue
		}
		experts[i].Biography = bio
	}

	if lastErr != nil {
		s.metrics.RecordStageDegradation(string(domain.StageBiography))
		deg := domain.NewDegradation(domain.StageBiography, lastErr)
		return &deg
	}
	return nil
}

// normalizeQuery validates the query and fills paging defaults.
func (s *Service) normalizeQuery(q *Query) error {
	if domain.NormalizeTerm(q.Topic) == "" {
		return domain.NewValidationError("topic", "topic is required")
	}
	if q.Page < 0 {
		return domain.NewValidationError("page", "page must be at least 1")
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize < 0 || q.PageSize > s.maxPageSize {
		return domain.NewValidationError("pageSize", fmt.Sprintf("pageSize must be between 1 and %d", s.maxPageSize))
	}
	if q.PageSize == 0 {
		q.PageSize = s.defaultPageSize
	}
	if q.Mode == "" {
		q.Mode = ModeStandard
	}
	if q.Mode != ModeStandard && q.Mode != ModeDashboard {
		return domain.NewValidationError("mode", "mode must be standard or dashboard")
	}
	if q.ProfileFetch == "" {
		q.ProfileFetch = domain.ProfileFetchFast
	}
	if q.ProfileFetch != domain.ProfileFetchFast && q.ProfileFetch != domain.ProfileFetchThorough {
		return domain.NewValidationError("profileFetch", "profileFetch must be fast or thorough")
	}
	return nil
}

// cacheKey builds the ranked-list cache key. The location component is the
// resolved constraint or "global"; the scoring and enrichment modes are
// part of the key because they change the ranked order and totals.
func cacheKey(q Query, loc Location) string {
	location := "global"
	if !loc.IsZero() {
		location = domain.NormalizeTerm(q.Location)
	}
	return domain.NormalizeTerm(q.Topic) + "|" + location + "|" + string(q.Mode) + "|" + string(q.ProfileFetch)
}
