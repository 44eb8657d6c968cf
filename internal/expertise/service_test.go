package expertise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/llm"
	"github.com/helixir/expert-finder-service/internal/observability"
	"github.com/helixir/expert-finder-service/internal/worksources"
	"github.com/helixir/expert-finder-service/internal/worksources/openalex"
	"github.com/helixir/expert-finder-service/internal/worksources/semanticscholar"
)

// stubGenerator is a canned ConstraintGenerator.
type stubGenerator struct {
	constraints domain.SearchConstraints
	err         error
}

func (g *stubGenerator) GenerateConstraints(ctx context.Context, topic string) (*domain.SearchConstraints, error) {
	if g.err != nil {
		return nil, g.err
	}
	c := g.constraints
	return &c, nil
}

// stubBiographer is a canned BiographyWriter.
type stubBiographer struct {
	err error
}

func (b *stubBiographer) WriteBiography(ctx context.Context, req llm.BiographyRequest) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return "Generated biography for " + req.Name, nil
}

// sourceRecorder counts fake-server traffic. The works endpoint is hit at
// most once per pipeline run and never concurrently, but the verification
// endpoints are, so everything is mutex-guarded.
type sourceRecorder struct {
	mu          sync.Mutex
	worksCalls  int
	worksFilter string
	authorCalls int
	searchCalls int
	paperCalls  int
}

func (r *sourceRecorder) snapshot() sourceRecorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sourceRecorder{
		worksCalls:  r.worksCalls,
		worksFilter: r.worksFilter,
		authorCalls: r.authorCalls,
		searchCalls: r.searchCalls,
		paperCalls:  r.paperCalls,
	}
}

const fixtureAuthorCount = 12

// pipelineFixture builds a corpus of three recent heart-failure works for
// each of twelve authors, with per-author citation totals strictly
// descending from A01 to A12, plus the matching authoritative author
// records for the enrichment endpoint. Every authorship is last author and
// corresponding at a Toronto institution so location-scoped searches keep
// all twelve.
func pipelineFixture() ([]openalex.Work, []openalex.Author) {
	year := time.Now().UTC().Year()

	works := make([]openalex.Work, 0, fixtureAuthorCount*3)
	authors := make([]openalex.Author, 0, fixtureAuthorCount)
	for i := 1; i <= fixtureAuthorCount; i++ {
		authorID := fmt.Sprintf("https://openalex.org/A%02d", i)
		name := fmt.Sprintf("Ada Researcher%02d", i)
		perWork := (fixtureAuthorCount + 1 - i) * 20

		for j := 0; j < 3; j++ {
			works = append(works, openalex.Work{
				ID:              fmt.Sprintf("https://openalex.org/W%02d%d", i, j),
				DisplayName:     fmt.Sprintf("Heart failure outcomes cohort %02d-%d", i, j),
				PublicationYear: year - j,
				CitedByCount:    perWork,
				DOI:             fmt.Sprintf("https://doi.org/10.1000/w%02d%d", i, j),
				Authorships: []openalex.Authorship{{
					AuthorPosition:  "last",
					IsCorresponding: true,
					Author:          openalex.AuthorInfo{ID: authorID, DisplayName: name},
					Institutions: []openalex.Institution{{
						DisplayName: "Toronto General Hospital",
						CountryCode: "ca",
					}},
				}},
			})
		}

		authors = append(authors, openalex.Author{
			ID:           authorID,
			DisplayName:  name,
			WorksCount:   40,
			CitedByCount: 2500,
		})
	}
	return works, authors
}

// openAlexHandler serves the works corpus and the batch author endpoint.
func openAlexHandler(rec *sourceRecorder, works []openalex.Work, authors []openalex.Author) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/works":
			rec.mu.Lock()
			rec.worksCalls++
			rec.worksFilter = r.URL.Query().Get("filter")
			rec.mu.Unlock()
			json.NewEncoder(w).Encode(openalex.WorksResponse{
				Meta:    openalex.Meta{Count: len(works)},
				Results: works,
			})
		case "/authors":
			rec.mu.Lock()
			rec.authorCalls++
			rec.mu.Unlock()
			json.NewEncoder(w).Encode(openalex.AuthorsResponse{
				Meta:    openalex.Meta{Count: len(authors)},
				Results: authors,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

// crossRefHandler verifies every candidate by exact name match: author
// search echoes the query back as a well-published author and the papers
// endpoint returns no DOIs.
func crossRefHandler(rec *sourceRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/author/search":
			rec.mu.Lock()
			rec.searchCalls++
			rec.mu.Unlock()
			name := r.URL.Query().Get("query")
			json.NewEncoder(w).Encode(semanticscholar.AuthorSearchResponse{
				Total: 1,
				Data: []semanticscholar.AuthorResult{
					{AuthorID: "S-" + name, Name: name, PaperCount: 50},
				},
			})
		case strings.HasSuffix(r.URL.Path, "/papers"):
			rec.mu.Lock()
			rec.paperCalls++
			rec.mu.Unlock()
			json.NewEncoder(w).Encode(semanticscholar.AuthorPapersResponse{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

// newTestService wires the full pipeline against fake source servers.
func newTestService(t *testing.T, gen llm.ConstraintGenerator, bio llm.BiographyWriter, oa, s2 http.HandlerFunc) *Service {
	t.Helper()

	oaServer := httptest.NewServer(oa)
	t.Cleanup(oaServer.Close)
	s2Server := httptest.NewServer(s2)
	t.Cleanup(s2Server.Close)

	httpClient := worksources.NewHTTPClient(worksources.HTTPClientConfig{
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		BurstSize:  1000,
		RetryDelay: time.Millisecond,
	})
	oaClient := openalex.NewWithHTTPClient(openalex.Config{BaseURL: oaServer.URL}, httpClient)
	s2Client := semanticscholar.NewClient(semanticscholar.Config{BaseURL: s2Server.URL}, httpClient)

	logger := zerolog.Nop()
	metrics := observability.NewMetrics("service_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""))

	return NewService(ServiceConfig{
		Expander:   NewExpander(gen, nil, logger, metrics),
		Fetcher:    NewFetcher(oaClient, logger, metrics),
		Aggregator: NewAggregator(),
		Enricher:   NewEnricher(oaClient, logger, metrics),
		Verifier:   NewVerifier(s2Client, logger, metrics),
		Ranker:     NewRanker(),
		Biographer: bio,
		Logger:     logger,
		Metrics:    metrics,
	})
}

func TestService_FindExperts(t *testing.T) {
	works, authors := pipelineFixture()
	generator := &stubGenerator{constraints: heartFailureConstraints()}

	t.Run("ranks the full pipeline output by citations", func(t *testing.T) {
		rec := &sourceRecorder{}
		svc := newTestService(t, generator, nil, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		page, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", PageSize: 5})
		require.NoError(t, err)

		assert.Equal(t, fixtureAuthorCount, page.TotalFound)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 5, page.PageSize)
		assert.True(t, page.HasMore)
		require.Len(t, page.Experts, 5)

		first := page.Experts[0]
		assert.Equal(t, "A01", first.AuthorID)
		assert.Equal(t, "Ada Researcher01", first.Name)
		assert.Equal(t, 1, first.Rank)
		assert.Equal(t, []string{"Toronto General Hospital"}, first.Institutions)
		assert.Equal(t, []string{"CA"}, first.Countries)
		assert.True(t, first.Verification.Verified)
		assert.Equal(t, string(domain.VerifiedByNameMatch), first.Verification.Method)
		assert.Equal(t, 3, first.Metrics.TopicWorks)
		assert.Equal(t, 720, first.Metrics.TopicCitations)
		assert.Equal(t, 40, first.Metrics.LifetimeWorks)
		assert.NotEmpty(t, first.Biography)

		for i := 1; i < len(page.Experts); i++ {
			assert.GreaterOrEqual(t, page.Experts[i-1].Score, page.Experts[i].Score)
			assert.Equal(t, i+1, page.Experts[i].Rank)
		}

		snap := rec.snapshot()
		assert.Equal(t, 1, snap.worksCalls)
		assert.Equal(t, 1, snap.authorCalls)
		assert.Equal(t, fixtureAuthorCount, snap.searchCalls)
	})

	t.Run("pagination is stable across pages", func(t *testing.T) {
		rec := &sourceRecorder{}
		svc := newTestService(t, generator, nil, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		var ids []string
		for p := 1; p <= 3; p++ {
			page, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", Page: p, PageSize: 5})
			require.NoError(t, err)
			for _, e := range page.Experts {
				ids = append(ids, e.AuthorID)
			}
			assert.Equal(t, p < 3, page.HasMore)
		}

		want := make([]string, 0, fixtureAuthorCount)
		for i := 1; i <= fixtureAuthorCount; i++ {
			want = append(want, fmt.Sprintf("A%02d", i))
		}
		assert.Equal(t, want, ids)

		// Ranks continue across pages.
		page3, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", Page: 3, PageSize: 5})
		require.NoError(t, err)
		require.Len(t, page3.Experts, 2)
		assert.Equal(t, 11, page3.Experts[0].Rank)
		assert.False(t, page3.HasMore)
	})

	t.Run("serves repeat queries from the ranked cache", func(t *testing.T) {
		rec := &sourceRecorder{}
		svc := newTestService(t, generator, nil, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		_, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", Page: 1, PageSize: 5})
		require.NoError(t, err)
		_, err = svc.FindExperts(context.Background(), Query{Topic: "Heart   Failure", Page: 2, PageSize: 5})
		require.NoError(t, err)

		assert.Equal(t, 1, rec.snapshot().worksCalls)
	})

	t.Run("scoring mode is part of the cache key", func(t *testing.T) {
		rec := &sourceRecorder{}
		svc := newTestService(t, generator, nil, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		_, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure"})
		require.NoError(t, err)
		_, err = svc.FindExperts(context.Background(), Query{Topic: "heart failure", Mode: ModeDashboard})
		require.NoError(t, err)

		assert.Equal(t, 2, rec.snapshot().worksCalls)
	})

	t.Run("location scopes the corpus query", func(t *testing.T) {
		rec := &sourceRecorder{}
		svc := newTestService(t, generator, nil, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		page, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", Location: "Toronto, Canada"})
		require.NoError(t, err)

		assert.Contains(t, rec.snapshot().worksFilter, "authorships.institutions.country_code:CA")
		assert.Equal(t, fixtureAuthorCount, page.TotalFound)
	})

	t.Run("empty corpus yields an empty page", func(t *testing.T) {
		rec := &sourceRecorder{}
		svc := newTestService(t, generator, nil, openAlexHandler(rec, nil, nil), crossRefHandler(rec))

		page, err := svc.FindExperts(context.Background(), Query{Topic: "quantum basket weaving"})
		require.NoError(t, err)

		assert.NotNil(t, page.Experts)
		assert.Empty(t, page.Experts)
		assert.Equal(t, 0, page.TotalFound)
		assert.Equal(t, 1, page.Page)
		assert.False(t, page.HasMore)

		snap := rec.snapshot()
		assert.Equal(t, 0, snap.authorCalls)
		assert.Equal(t, 0, snap.searchCalls)
	})

	t.Run("constraint generator failure degrades to fallback", func(t *testing.T) {
		rec := &sourceRecorder{}
		failing := &stubGenerator{err: errors.New("keyword model offline")}
		svc := newTestService(t, failing, nil, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		page, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure"})
		require.NoError(t, err)

		// Fallback constraints still match the fixture titles.
		assert.Equal(t, fixtureAuthorCount, page.TotalFound)
		require.NotEmpty(t, page.Degradations)
		assert.Equal(t, domain.StageConstraints, page.Degradations[0].Stage)
		assert.Contains(t, page.Degradations[0].Reason, "keyword model offline")
	})

	t.Run("corpus failure degrades to an empty page", func(t *testing.T) {
		rec := &sourceRecorder{}
		oa := func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
		}
		svc := newTestService(t, generator, nil, oa, crossRefHandler(rec))

		page, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure"})
		require.NoError(t, err)

		assert.Empty(t, page.Experts)
		require.NotEmpty(t, page.Degradations)
		assert.Equal(t, domain.StageCorpus, page.Degradations[len(page.Degradations)-1].Stage)
	})

	t.Run("generated biographies replace the template on page entries", func(t *testing.T) {
		rec := &sourceRecorder{}
		svc := newTestService(t, generator, &stubBiographer{}, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		page, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", PageSize: 3})
		require.NoError(t, err)

		require.Len(t, page.Experts, 3)
		for _, e := range page.Experts {
			assert.Equal(t, "Generated biography for "+e.Name, e.Biography)
		}
		assert.Empty(t, page.Degradations)
	})

	t.Run("biography failure keeps the template and degrades", func(t *testing.T) {
		rec := &sourceRecorder{}
		bio := &stubBiographer{err: errors.New("completion timeout")}
		svc := newTestService(t, generator, bio, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		page, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", PageSize: 3})
		require.NoError(t, err)

		require.Len(t, page.Experts, 3)
		assert.Contains(t, page.Experts[0].Biography, "Researcher at")
		require.NotEmpty(t, page.Degradations)
		assert.Equal(t, domain.StageBiography, page.Degradations[len(page.Degradations)-1].Stage)
	})

	t.Run("biography degradations do not poison the cached list", func(t *testing.T) {
		rec := &sourceRecorder{}
		bio := &stubBiographer{err: errors.New("completion timeout")}
		svc := newTestService(t, generator, bio, openAlexHandler(rec, works, authors), crossRefHandler(rec))

		first, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", PageSize: 3})
		require.NoError(t, err)
		second, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure", PageSize: 3})
		require.NoError(t, err)

		// One biography degradation per request, not accumulated.
		assert.Len(t, first.Degradations, 1)
		assert.Len(t, second.Degradations, 1)
	})
}

func TestService_FindExperts_Validation(t *testing.T) {
	svc := newTestService(t, &stubGenerator{constraints: heartFailureConstraints()}, nil,
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
	)

	tests := []struct {
		name  string
		query Query
	}{
		{"empty topic", Query{}},
		{"whitespace topic", Query{Topic: "   "}},
		{"negative page", Query{Topic: "heart failure", Page: -1}},
		{"negative page size", Query{Topic: "heart failure", PageSize: -5}},
		{"oversized page size", Query{Topic: "heart failure", PageSize: MaxPageSize + 1}},
		{"unknown mode", Query{Topic: "heart failure", Mode: "turbo"}},
		{"unknown profile fetch mode", Query{Topic: "heart failure", ProfileFetch: "exhaustive"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.FindExperts(context.Background(), tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, page)
		})
	}
}

func TestService_FindExperts_RecordsFailedSearches(t *testing.T) {
	metrics := newStageMetrics()
	svc := NewService(ServiceConfig{Logger: zerolog.Nop(), Metrics: metrics})

	_, err := svc.FindExperts(context.Background(), Query{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SearchesFailed))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SearchesStarted))
}

func TestService_FindExperts_Defaults(t *testing.T) {
	works, authors := pipelineFixture()
	rec := &sourceRecorder{}
	svc := newTestService(t, &stubGenerator{constraints: heartFailureConstraints()}, nil,
		openAlexHandler(rec, works, authors), crossRefHandler(rec))

	page, err := svc.FindExperts(context.Background(), Query{Topic: "heart failure"})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Len(t, page.Experts, DefaultPageSize)
	assert.True(t, page.HasMore)
}
