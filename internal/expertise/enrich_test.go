package expertise

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/worksources"
	"github.com/helixir/expert-finder-service/internal/worksources/openalex"
)

func newTestEnricher(t *testing.T, handler http.HandlerFunc) *Enricher {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := worksources.NewHTTPClient(worksources.HTTPClientConfig{
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		BurstSize:  1000,
		RetryDelay: time.Millisecond,
	})
	client := openalex.NewWithHTTPClient(openalex.Config{BaseURL: server.URL}, httpClient)
	return NewEnricher(client, zerolog.Nop(), newStageMetrics())
}

func TestEnricherRefreshesRecentActivity(t *testing.T) {
	year := time.Now().UTC().Year()
	e := newTestEnricher(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/authors", r.URL.Path)
		json.NewEncoder(w).Encode(openalex.AuthorsResponse{
			Meta: openalex.Meta{Count: 1},
			Results: []openalex.Author{{
				ID:           "A1",
				DisplayName:  "Jane Doe",
				WorksCount:   120,
				CitedByCount: 4800,
				CountsByYear: []openalex.YearCounts{
					{Year: year, WorksCount: 6, CitedByCount: 40},
					{Year: year - 1, WorksCount: 9, CitedByCount: 120},
					{Year: year - 3, WorksCount: 11, CitedByCount: 300},
					{Year: year - 6, WorksCount: 4, CitedByCount: 90},
				},
			}},
		})
	})

	c := &domain.AuthorCandidate{
		AuthorID:      "A1",
		Name:          "Jane Doe",
		RecentWorks1y: 1,
		RecentWorks2y: 2,
		RecentWorks5y: 3,
	}

	deg := e.Profiles(context.Background(), []*domain.AuthorCandidate{c}, domain.ProfileFetchFast)
	require.Nil(t, deg)

	assert.Equal(t, 120, c.LifetimeWorks)
	assert.Equal(t, 4800, c.LifetimeCitations)
	assert.Equal(t, 6, c.RecentWorks1y)
	assert.Equal(t, 15, c.RecentWorks2y)
	assert.Equal(t, 26, c.RecentWorks5y)
}

func TestEnricherKeepsActivityWithoutYearCounts(t *testing.T) {
	e := newTestEnricher(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openalex.AuthorsResponse{
			Meta:    openalex.Meta{Count: 1},
			Results: []openalex.Author{{ID: "A1", DisplayName: "Jane Doe", WorksCount: 120}},
		})
	})

	c := &domain.AuthorCandidate{AuthorID: "A1", Name: "Jane Doe", RecentWorks2y: 2}

	deg := e.Profiles(context.Background(), []*domain.AuthorCandidate{c}, domain.ProfileFetchFast)
	require.Nil(t, deg)

	assert.Equal(t, 120, c.LifetimeWorks)
	assert.Equal(t, 2, c.RecentWorks2y)
}
