// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// Semantic Scholar is the secondary bibliographic source in the expert
// finder pipeline. It is consulted only during cross-reference verification:
// candidate authors found in the works index are looked up here by name and
// their publication lists compared by DOI overlap.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// AuthorSearchResponse represents the response from the author search endpoint.
type AuthorSearchResponse struct {
	// Total is the total number of authors matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Next is the offset for the next page of results.
	// A value of 0 indicates no more results.
	Next int `json:"next"`

	// Data contains the list of authors returned by the search.
	Data []AuthorResult `json:"data"`
}

// AuthorResult represents a single author in the API response.
type AuthorResult struct {
	// AuthorID is the Semantic Scholar unique identifier for the author.
	AuthorID string `json:"authorId"`

	// Name is the author's display name.
	Name string `json:"name"`

	// Aliases are alternative spellings of the author's name.
	Aliases []string `json:"aliases,omitempty"`

	// PaperCount is the author's total paper count.
	PaperCount int `json:"paperCount"`

	// CitationCount is the author's total citation count.
	CitationCount int `json:"citationCount"`

	// Affiliations lists the author's known affiliations.
	Affiliations []string `json:"affiliations,omitempty"`
}

// AuthorPapersResponse represents the response from the author papers endpoint.
type AuthorPapersResponse struct {
	Offset int           `json:"offset"`
	Next   int           `json:"next"`
	Data   []PaperResult `json:"data"`
}

// PaperResult represents a single paper in the API response.
type PaperResult struct {
	// PaperID is the Semantic Scholar unique identifier for the paper.
	PaperID string `json:"paperId"`

	// Title is the title of the paper.
	Title string `json:"title"`

	// Year is the publication year.
	Year int `json:"year"`

	// CitationCount is the number of citations this paper has received.
	CitationCount int `json:"citationCount"`

	// ExternalIDs contains external identifiers for the paper (DOI, etc.).
	ExternalIDs *ExternalIDs `json:"externalIds,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	// DOI is the Digital Object Identifier.
	DOI string `json:"DOI,omitempty"`

	// PubMed is the PubMed identifier.
	PubMed string `json:"PubMed,omitempty"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	// Error is the error message from the API.
	Error string `json:"error,omitempty"`

	// Message is an alternative error message field.
	Message string `json:"message,omitempty"`
}
