// Package openalex provides a client for the OpenAlex API.
//
// OpenAlex is a free, open catalog of scholarly works, authors, venues,
// institutions, and concepts. It is the primary bibliographic source for
// the expert finder pipeline: corpus fetching reads the works endpoint and
// profile enrichment reads the authors endpoint.
//
// API Documentation: https://docs.openalex.org/
package openalex

// WorksResponse represents the top-level response from the works search endpoint.
type WorksResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// AuthorsResponse represents the top-level response from the authors endpoint.
type AuthorsResponse struct {
	Meta    Meta     `json:"meta"`
	Results []Author `json:"results"`
}

// Meta contains metadata about the results including pagination info.
type Meta struct {
	Count      int    `json:"count"`
	DBTime     int    `json:"db_response_time_ms"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	NextCursor string `json:"next_cursor"`
}

// Work represents a scholarly work in OpenAlex.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	PublicationDate string       `json:"publication_date"`
	Type            string       `json:"type"`
	CitedByCount    int          `json:"cited_by_count"`
	Authorships     []Authorship `json:"authorships"`
	Concepts        []Concept    `json:"concepts"`
	IDs             IDs          `json:"ids"`
}

// Authorship represents an author's contribution to a work.
type Authorship struct {
	AuthorPosition  string        `json:"author_position"`
	Author          AuthorInfo    `json:"author"`
	IsCorresponding bool          `json:"is_corresponding"`
	Institutions    []Institution `json:"institutions"`
}

// AuthorInfo contains basic author information embedded in authorships.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Orcid       string `json:"orcid"`
}

// Institution represents an academic institution.
type Institution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}

// Concept is a tagged research concept with the tagger's confidence score.
type Concept struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Level       int     `json:"level"`
	Score       float64 `json:"score"`
}

// IDs contains various identifiers for a work.
type IDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
	MAG      string `json:"mag"`
	PMID     string `json:"pmid"`
	PMCID    string `json:"pmcid"`
}

// Author represents a full author record from the authors endpoint.
type Author struct {
	ID                    string         `json:"id"`
	Orcid                 string         `json:"orcid"`
	DisplayName           string         `json:"display_name"`
	WorksCount            int            `json:"works_count"`
	CitedByCount          int            `json:"cited_by_count"`
	CountsByYear          []YearCounts   `json:"counts_by_year"`
	LastKnownInstitutions []Institution  `json:"last_known_institutions"`
	Affiliations          []Affiliation  `json:"affiliations"`
	SummaryStats          *AuthorSummary `json:"summary_stats"`
}

// YearCounts holds an author's output for one year.
type YearCounts struct {
	Year         int `json:"year"`
	WorksCount   int `json:"works_count"`
	CitedByCount int `json:"cited_by_count"`
}

// Affiliation pairs an institution with the years the author was affiliated.
type Affiliation struct {
	Institution Institution `json:"institution"`
	Years       []int       `json:"years"`
}

// AuthorSummary holds OpenAlex's computed author statistics.
type AuthorSummary struct {
	HIndex               int     `json:"h_index"`
	I10Index             int     `json:"i10_index"`
	TwoYearMeanCitedness float64 `json:"2yr_mean_citedness"`
}
