package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/expertise"
)

// mockFinder implements ExpertFinder for HTTP handler tests.
type mockFinder struct {
	findFn func(ctx context.Context, q expertise.Query) (*domain.ExpertPage, error)
}

func (m *mockFinder) FindExperts(ctx context.Context, q expertise.Query) (*domain.ExpertPage, error) {
	if m.findFn != nil {
		return m.findFn(ctx, q)
	}
	return &domain.ExpertPage{Experts: []domain.Expert{}, Page: 1, PageSize: 10}, nil
}

// newTestHTTPServer creates a Server configured for testing with a mocked finder.
func newTestHTTPServer(finder ExpertFinder) *Server {
	s := &Server{
		finder: finder,
		logger: zerolog.Nop(),
	}
	s.router = s.buildRouter()
	return s
}

// serveHTTP dispatches a request through the test server's router and returns the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, r)
	return rr
}

// decodeJSON decodes a JSON response body into the given target.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(target))
}

func TestSearchExperts_Success(t *testing.T) {
	var captured expertise.Query

	finder := &mockFinder{
		findFn: func(_ context.Context, q expertise.Query) (*domain.ExpertPage, error) {
			captured = q
			return &domain.ExpertPage{
				Experts: []domain.Expert{
					{AuthorID: "https://openalex.org/A1", Name: "Jordan Lee", Rank: 6, Score: 0.91},
					{AuthorID: "https://openalex.org/A2", Name: "Sam Rivera", Rank: 7, Score: 0.88},
				},
				TotalFound: 40,
				Page:       2,
				PageSize:   5,
				HasMore:    true,
			}, nil
		},
	}
	srv := newTestHTTPServer(finder)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/experts?topic=heart+failure&location=Toronto%2C+Canada&page=2&pageSize=5&mode=dashboard&profileFetch=thorough", nil)
	rr := serveHTTP(srv, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	var page domain.ExpertPage
	decodeJSON(t, rr, &page)
	assert.Len(t, page.Experts, 2)
	assert.Equal(t, 40, page.TotalFound)
	assert.Equal(t, 2, page.Page)
	assert.True(t, page.HasMore)

	assert.Equal(t, "heart failure", captured.Topic)
	assert.Equal(t, "Toronto, Canada", captured.Location)
	assert.Equal(t, 2, captured.Page)
	assert.Equal(t, 5, captured.PageSize)
	assert.Equal(t, expertise.ModeDashboard, captured.Mode)
	assert.Equal(t, domain.ProfileFetchThorough, captured.ProfileFetch)
}

func TestSearchExperts_DefaultsLeftToService(t *testing.T) {
	var captured expertise.Query

	finder := &mockFinder{
		findFn: func(_ context.Context, q expertise.Query) (*domain.ExpertPage, error) {
			captured = q
			return &domain.ExpertPage{Experts: []domain.Expert{}}, nil
		},
	}
	srv := newTestHTTPServer(finder)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/experts?topic=immunotherapy", nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "immunotherapy", captured.Topic)
	assert.Empty(t, captured.Location)
	assert.Zero(t, captured.Page)
	assert.Zero(t, captured.PageSize)
	assert.Empty(t, string(captured.Mode))
	assert.Empty(t, string(captured.ProfileFetch))
}

func TestSearchExperts_BadRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantMsg string
	}{
		{
			name:    "missing topic",
			query:   "",
			wantMsg: "topic is required",
		},
		{
			name:    "whitespace topic",
			query:   "topic=%20%20%20",
			wantMsg: "topic is required",
		},
		{
			name:    "topic too long",
			query:   "topic=" + strings.Repeat("x", 501),
			wantMsg: "topic must be at most 500 characters",
		},
		{
			name:    "location too long",
			query:   "topic=oncology&location=" + strings.Repeat("x", 201),
			wantMsg: "location must be at most 200 characters",
		},
		{
			name:    "non-integer page",
			query:   "topic=oncology&page=two",
			wantMsg: "page must be an integer",
		},
		{
			name:    "negative page",
			query:   "topic=oncology&page=-1",
			wantMsg: "page must be at least 1",
		},
		{
			name:    "non-integer page size",
			query:   "topic=oncology&pageSize=big",
			wantMsg: "pageSize must be an integer",
		},
		{
			name:    "unknown mode",
			query:   "topic=oncology&mode=turbo",
			wantMsg: "mode must be one of: standard dashboard",
		},
		{
			name:    "unknown profile fetch",
			query:   "topic=oncology&profileFetch=exhaustive",
			wantMsg: "profileFetch must be one of: fast thorough",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			finder := &mockFinder{
				findFn: func(_ context.Context, _ expertise.Query) (*domain.ExpertPage, error) {
					called = true
					return nil, nil
				},
			}
			srv := newTestHTTPServer(finder)

			rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/experts?"+tt.query, nil))

			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.False(t, called, "finder should not be called for invalid requests")

			var body map[string]string
			decodeJSON(t, rr, &body)
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestSearchExperts_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "validation error carries its detail",
			err:        domain.NewValidationError("pageSize", "pageSize must be between 1 and 50"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation error: pageSize: pageSize must be between 1 and 50",
		},
		{
			name:       "rate limited",
			err:        domain.NewRateLimitError("openalex", 0),
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "rate limited",
		},
		{
			name:       "upstream unavailable",
			err:        domain.NewExternalAPIError("openalex", http.StatusBadGateway, "bad gateway", nil),
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "service unavailable",
		},
		{
			name:       "wrapped sentinel",
			err:        fmt.Errorf("fetch corpus: %w", domain.ErrServiceUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "service unavailable",
		},
		{
			name:       "not found",
			err:        domain.NewNotFoundError("author", "A1"),
			wantStatus: http.StatusNotFound,
			wantMsg:    "resource not found",
		},
		{
			name:       "unknown errors are not leaked",
			err:        errors.New("pipeline exploded"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &mockFinder{
				findFn: func(_ context.Context, _ expertise.Query) (*domain.ExpertPage, error) {
					return nil, tt.err
				},
			}
			srv := newTestHTTPServer(finder)

			rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/experts?topic=oncology", nil))

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			var body map[string]string
			decodeJSON(t, rr, &body)
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestHTTPServer(&mockFinder{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]string
	decodeJSON(t, rr, &health)
	assert.Equal(t, "ok", health["status"])

	rr = serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var ready map[string]string
	decodeJSON(t, rr, &ready)
	assert.Equal(t, "ready", ready["status"])
}
