package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/worksources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxAuthorPapers is the maximum number of papers fetched per author.
	MaxAuthorPapers = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// authorSearchFields is the field list requested from author search.
	authorSearchFields = "authorId,name,aliases,paperCount,citationCount,affiliations"

	// authorPaperFields is the field list requested for author papers.
	authorPaperFields = "paperId,title,year,citationCount,externalIds"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int
}

// AuthorRecord is a cross-reference author match from the secondary source.
type AuthorRecord struct {
	AuthorID      string
	Name          string
	Aliases       []string
	PaperCount    int
	CitationCount int
}

// PaperRecord is a compact paper record used for DOI overlap checks.
type PaperRecord struct {
	PaperID   string
	Title     string
	Year      int
	Citations int
	DOI       string
}

// Client is the Semantic Scholar Graph API client.
type Client struct {
	httpClient *worksources.HTTPClient
	config     Config
}

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *worksources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	if httpClient == nil {
		httpClient = worksources.NewHTTPClient(worksources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// SearchAuthors queries the author search endpoint by name.
// Returns the matching author records ordered by the API's relevance.
func (c *Client) SearchAuthors(ctx context.Context, name string) ([]AuthorRecord, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("name", "cannot be empty")
	}

	query := url.Values{}
	query.Set("query", name)
	query.Set("fields", authorSearchFields)
	searchURL := c.config.BaseURL + "/author/search?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var searchResp AuthorSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	authors := make([]AuthorRecord, 0, len(searchResp.Data))
	for _, a := range searchResp.Data {
		if a.AuthorID == "" {
			continue
		}
		authors = append(authors, AuthorRecord{
			AuthorID:      a.AuthorID,
			Name:          a.Name,
			Aliases:       a.Aliases,
			PaperCount:    a.PaperCount,
			CitationCount: a.CitationCount,
		})
	}
	return authors, nil
}

// GetAuthorPapers fetches an author's papers, capped at MaxAuthorPapers.
func (c *Client) GetAuthorPapers(ctx context.Context, authorID string, limit int) ([]PaperRecord, error) {
	if authorID == "" {
		return nil, domain.NewValidationError("authorID", "cannot be empty")
	}
	if limit <= 0 || limit > MaxAuthorPapers {
		limit = MaxAuthorPapers
	}

	query := url.Values{}
	query.Set("fields", authorPaperFields)
	query.Set("limit", strconv.Itoa(limit))
	papersURL := fmt.Sprintf("%s/author/%s/papers?%s", c.config.BaseURL, url.PathEscape(authorID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, papersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	var papersResp AuthorPapersResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&papersResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]PaperRecord, 0, len(papersResp.Data))
	for _, p := range papersResp.Data {
		record := PaperRecord{
			PaperID:   p.PaperID,
			Title:     p.Title,
			Year:      p.Year,
			Citations: p.CitationCount,
		}
		if p.ExternalIDs != nil {
			record.DOI = normalizeDOI(p.ExternalIDs.DOI)
		}
		papers = append(papers, record)
	}
	return papers, nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// handleErrorResponse converts non-2xx responses to domain errors.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.NewNotFoundError("author", resp.Request.URL.Path)
	}

	body, err := worksources.ReadBody(resp)
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// normalizeDOI lowercases a DOI and strips URL prefixes so overlap checks
// compare like with like across sources.
func normalizeDOI(doi string) string {
	if doi == "" {
		return ""
	}
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}
