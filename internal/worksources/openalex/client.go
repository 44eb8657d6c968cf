package openalex

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
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxPerPage is the OpenAlex API page size limit.
	MaxPerPage = 200

	// MaxAuthorBatch is the maximum number of author IDs per batch lookup.
	MaxAuthorBatch = 50

	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool.
	// Providing an email grants access to higher rate limits.
	Email string

	// Timeout is the request timeout.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to 10 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to 10.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// SearchParams defines the parameters for a works search.
type SearchParams struct {
	// Query is the full-text search query (required).
	Query string

	// FromDate filters works published on or after this date.
	FromDate *time.Time

	// MinCitations filters works to those with at least this many citations.
	// A value of 0 applies no citation filter.
	MinCitations int

	// ExcludePreprints excludes works of type preprint when true.
	ExcludePreprints bool

	// CountryCode restricts works to those with at least one authorship
	// institution in the given ISO 3166-1 alpha-2 country.
	CountryCode string

	// PerPage is the page size, capped at MaxPerPage. Zero uses MaxPerPage.
	PerPage int

	// Page is the 1-indexed page number. Zero means page 1.
	Page int

	// SortByCitations requests results ordered by cited_by_count descending.
	SortByCitations bool
}

// WorksResult contains one page of works search results.
type WorksResult struct {
	// Works contains the converted domain works.
	Works []domain.Work

	// TotalCount is the total number of works matching the query.
	TotalCount int

	// HasMore indicates whether additional pages are available.
	HasMore bool

	// NextPage is the page number of the next page when HasMore is true.
	NextPage int
}

// Client is the OpenAlex API client.
type Client struct {
	config     Config
	httpClient *worksources.HTTPClient
}

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := worksources.NewHTTPClient(worksources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "Helixir-ExpertFinder/1.0 (mailto:" + cfg.Email + ")",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *worksources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// SearchWorks queries OpenAlex for works matching the given parameters.
func (c *Client) SearchWorks(ctx context.Context, params SearchParams) (*WorksResult, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := worksources.ReadBody(resp)
		return nil, domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var worksResp WorksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&worksResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	works := make([]domain.Work, 0, len(worksResp.Results))
	for i := range worksResp.Results {
		if w := workToDomain(&worksResp.Results[i]); w != nil {
			works = append(works, *w)
		}
	}

	page := params.Page
	if page == 0 {
		page = 1
	}
	perPage := params.PerPage
	if perPage == 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	hasMore := page*perPage < worksResp.Meta.Count

	return &WorksResult{
		Works:      works,
		TotalCount: worksResp.Meta.Count,
		HasMore:    hasMore,
		NextPage:   page + 1,
	}, nil
}

// GetAuthors fetches authoritative author records for the given OpenAlex
// author IDs in a single batch request. The batch is limited to
// MaxAuthorBatch IDs; callers must chunk larger sets.
func (c *Client) GetAuthors(ctx context.Context, ids []string) ([]domain.AuthorProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxAuthorBatch {
		return nil, domain.NewValidationError("ids", fmt.Sprintf("at most %d author IDs per batch", MaxAuthorBatch))
	}

	authorsURL, err := c.buildAuthorsURL(ids)
	if err != nil {
		return nil, fmt.Errorf("building authors URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authorsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := worksources.ReadBody(resp)
		return nil, domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
	}

	var authorsResp AuthorsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&authorsResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	profiles := make([]domain.AuthorProfile, 0, len(authorsResp.Results))
	for i := range authorsResp.Results {
		profiles = append(profiles, authorToProfile(&authorsResp.Results[i]))
	}
	return profiles, nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return "OpenAlex"
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// buildSearchURL constructs the works search URL with query parameters.
func (c *Client) buildSearchURL(params SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	query := url.Values{}
	if params.Query != "" {
		query.Set("search", params.Query)
	}

	filters := buildFilters(params)
	if len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	perPage := params.PerPage
	if perPage == 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	query.Set("per_page", strconv.Itoa(perPage))

	if params.Page > 1 {
		query.Set("page", strconv.Itoa(params.Page))
	}

	if params.SortByCitations {
		query.Set("sort", "cited_by_count:desc")
	}

	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildFilters constructs the filter query string components.
func buildFilters(params SearchParams) []string {
	var filters []string

	if params.FromDate != nil {
		filters = append(filters, fmt.Sprintf("from_publication_date:%s", params.FromDate.Format("2006-01-02")))
	}

	if params.MinCitations > 0 {
		filters = append(filters, fmt.Sprintf("cited_by_count:>%d", params.MinCitations-1))
	}

	// OpenAlex type for preprints is "preprint"
	if params.ExcludePreprints {
		filters = append(filters, "type:!preprint")
	}

	if params.CountryCode != "" {
		filters = append(filters, "authorships.institutions.country_code:"+strings.ToUpper(params.CountryCode))
	}

	return filters
}

// buildAuthorsURL constructs the batch author lookup URL.
// OpenAlex supports OR-ing up to 50 IDs in a single filter value.
func (c *Client) buildAuthorsURL(ids []string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/authors"

	short := make([]string, 0, len(ids))
	for _, id := range ids {
		short = append(short, normalizeOpenAlexID(id))
	}

	query := url.Values{}
	query.Set("filter", "openalex.id:"+strings.Join(short, "|"))
	query.Set("per-page", strconv.Itoa(MaxAuthorBatch))
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// workToDomain converts an OpenAlex Work to a domain Work.
// Works without an ID or title are dropped.
func workToDomain(work *Work) *domain.Work {
	if work == nil {
		return nil
	}

	id := normalizeOpenAlexID(work.ID)
	if id == "" && work.IDs.OpenAlex != "" {
		id = normalizeOpenAlexID(work.IDs.OpenAlex)
	}

	title := work.DisplayName
	if title == "" {
		title = work.Title
	}

	if id == "" || title == "" {
		return nil
	}

	doi := normalizeDOI(work.DOI)
	if doi == "" && work.IDs.DOI != "" {
		doi = normalizeDOI(work.IDs.DOI)
	}

	authorships := make([]domain.Authorship, 0, len(work.Authorships))
	for _, a := range work.Authorships {
		authorID := normalizeOpenAlexID(a.Author.ID)
		if authorID == "" {
			continue
		}
		institutions := make([]domain.Institution, 0, len(a.Institutions))
		for _, inst := range a.Institutions {
			institutions = append(institutions, domain.Institution{
				Name:        inst.DisplayName,
				CountryCode: strings.ToUpper(inst.CountryCode),
			})
		}
		authorships = append(authorships, domain.Authorship{
			AuthorID:        authorID,
			AuthorName:      a.Author.DisplayName,
			ORCID:           normalizeORCID(a.Author.Orcid),
			Position:        positionFromString(a.AuthorPosition),
			IsCorresponding: a.IsCorresponding,
			Institutions:    institutions,
		})
	}

	concepts := make([]domain.ConceptScore, 0, len(work.Concepts))
	for _, con := range work.Concepts {
		concepts = append(concepts, domain.ConceptScore{
			Name:  con.DisplayName,
			Score: con.Score,
		})
	}

	return &domain.Work{
		ID:           id,
		Title:        title,
		Year:         work.PublicationYear,
		CitedByCount: work.CitedByCount,
		DOI:          doi,
		Authorships:  authorships,
		Concepts:     concepts,
	}
}

// authorToProfile converts an OpenAlex Author record to a domain profile.
func authorToProfile(a *Author) domain.AuthorProfile {
	counts := make([]domain.YearCount, 0, len(a.CountsByYear))
	for _, yc := range a.CountsByYear {
		counts = append(counts, domain.YearCount{
			Year:      yc.Year,
			Works:     yc.WorksCount,
			Citations: yc.CitedByCount,
		})
	}

	institutions := make([]domain.Institution, 0, len(a.LastKnownInstitutions))
	for _, inst := range a.LastKnownInstitutions {
		institutions = append(institutions, domain.Institution{
			Name:        inst.DisplayName,
			CountryCode: strings.ToUpper(inst.CountryCode),
		})
	}

	return domain.AuthorProfile{
		AuthorID:     normalizeOpenAlexID(a.ID),
		Name:         a.DisplayName,
		ORCID:        normalizeORCID(a.Orcid),
		WorksCount:   a.WorksCount,
		CitedByCount: a.CitedByCount,
		CountsByYear: counts,
		Institutions: institutions,
	}
}

// positionFromString maps OpenAlex author_position values to domain positions.
func positionFromString(pos string) domain.AuthorPosition {
	switch pos {
	case "first":
		return domain.PositionFirst
	case "last":
		return domain.PositionLast
	default:
		return domain.PositionMiddle
	}
}

// normalizeDOI strips the https://doi.org/ prefix from DOIs and returns lowercase.
func normalizeDOI(doi string) string {
	if doi == "" {
		return ""
	}
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, doiPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}

// normalizeOpenAlexID extracts the short ID from full OpenAlex URLs.
func normalizeOpenAlexID(id string) string {
	if id == "" {
		return ""
	}
	id = strings.TrimPrefix(id, openAlexIDPrefix)
	return strings.TrimSpace(id)
}

// normalizeORCID strips any URL prefixes from ORCID identifiers.
func normalizeORCID(orcid string) string {
	if orcid == "" {
		return ""
	}
	orcid = strings.TrimPrefix(orcid, "https://orcid.org/")
	return strings.TrimSpace(orcid)
}
