// Package domain provides domain models and business logic for the Expert Finder Service.
package domain

import (
	"sort"
)

// SourceType represents the bibliographic source API that provided data.
type SourceType string

const (
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
)

// AuthorPosition is the position of an author on a work's author list.
type AuthorPosition string

const (
	PositionFirst  AuthorPosition = "first"
	PositionMiddle AuthorPosition = "middle"
	PositionLast   AuthorPosition = "last"
)

// Institution is an author's affiliation at the time of publication.
type Institution struct {
	// Name is the institution's display name.
	Name string

	// CountryCode is the ISO 3166-1 alpha-2 country code, uppercase.
	// Empty when the source does not provide one.
	CountryCode string
}

// Authorship is the relationship of one author to one work.
type Authorship struct {
	// AuthorID is the source-assigned author identifier (e.g. OpenAlex A-id).
	AuthorID string

	// AuthorName is the author's display name.
	AuthorName string

	// ORCID is the normalized ORCID identifier, if known.
	ORCID string

	// Position is first, middle, or last.
	Position AuthorPosition

	// IsCorresponding indicates a corresponding-author flag from the source.
	IsCorresponding bool

	// Institutions lists the author's affiliations on this work.
	Institutions []Institution
}

// ConceptScore is a controlled-vocabulary concept tag on a work with the
// source's confidence score in [0,1].
type ConceptScore struct {
	Name  string
	Score float64
}

// Work is a single publication record from the scholarly-works index.
// Works are read-only: they are sourced externally and never persisted.
type Work struct {
	ID           string
	Title        string
	Year         int
	CitedByCount int
	DOI          string
	Authorships  []Authorship
	Concepts     []ConceptScore
}

// AuthorWork is one retained work in an author candidate's publication list,
// carrying only what the scoring stages need.
type AuthorWork struct {
	WorkID    string
	Title     string
	Year      int
	Citations int
	DOI       string
	Position  AuthorPosition

	// IsTrial marks a work detected as a clinical-trial publication.
	IsTrial bool

	// Relevance is the work's topical relevance in [0,1] computed during
	// aggregation against the expanded search constraints.
	Relevance float64

	// IsCorresponding records the corresponding-author flag for this work.
	IsCorresponding bool
}

// AuthorCandidate is the aggregation unit for one distinct author.
// Works is append-only during aggregation and frozen afterward.
type AuthorCandidate struct {
	AuthorID string
	Name     string
	ORCID    string

	Works []AuthorWork

	TotalCitations int
	RelevanceSum   float64

	RecentWorks1y int
	RecentWorks2y int
	RecentWorks5y int

	FirstAuthorCount         int
	LastAuthorCount          int
	CorrespondingAuthorCount int

	// Institutions and CountryCodes are de-duplicated sets.
	Institutions map[string]struct{}
	CountryCodes map[string]struct{}

	FieldRelevance float64
	RawPIScore     float64

	// LocationBonus is the tiered location-match bonus in [0,1]
	// (city > state > country > none). Tie-break only, never part of
	// the final score.
	LocationBonus float64

	// LifetimeWorks and LifetimeCitations hold authoritative career totals
	// after enrichment. They fall back to len(Works) and TotalCitations and
	// are therefore always populated, never zero-for-missing.
	LifetimeWorks     int
	LifetimeCitations int
}

// NewAuthorCandidate creates an empty candidate for the given author identity.
func NewAuthorCandidate(authorID, name, orcid string) *AuthorCandidate {
	return &AuthorCandidate{
		AuthorID:     authorID,
		Name:         name,
		ORCID:        orcid,
		Institutions: make(map[string]struct{}),
		CountryCodes: make(map[string]struct{}),
	}
}

// AddInstitution records an institution name and country code in the
// candidate's sets. Empty values are ignored.
func (c *AuthorCandidate) AddInstitution(inst Institution) {
	if inst.Name != "" {
		c.Institutions[inst.Name] = struct{}{}
	}
	if inst.CountryCode != "" {
		c.CountryCodes[inst.CountryCode] = struct{}{}
	}
}

// InstitutionNames returns the institution set as a sorted slice.
func (c *AuthorCandidate) InstitutionNames() []string {
	names := make([]string, 0, len(c.Institutions))
	for name := range c.Institutions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DOIs returns the candidate's known work DOIs as a set.
func (c *AuthorCandidate) DOIs() map[string]struct{} {
	dois := make(map[string]struct{}, len(c.Works))
	for _, w := range c.Works {
		if w.DOI != "" {
			dois[w.DOI] = struct{}{}
		}
	}
	return dois
}

// VerificationMethod identifies how a candidate passed cross-reference
// verification.
type VerificationMethod string

const (
	VerifiedByDOIOverlap VerificationMethod = "doi_overlap"
	VerifiedByNameMatch  VerificationMethod = "name_match"
)

// VerifiedCandidate is an AuthorCandidate that passed cross-reference
// verification against the secondary bibliographic source. Unverified
// candidates are dropped, never retained.
type VerifiedCandidate struct {
	AuthorCandidate

	CrossRefAuthorID    string
	Method              VerificationMethod
	NameMatchScore      float64
	OverlappingDOICount int
}

// ScoreBreakdown holds the normalized sub-scores and the final composite
// score for one ranked expert. All values are in [0,1].
type ScoreBreakdown struct {
	Works          float64 `json:"works"`
	Citations      float64 `json:"citations"`
	Recency        float64 `json:"recency"`
	FieldRelevance float64 `json:"fieldRelevance"`
	Seniority      float64 `json:"seniority"`
	TopicDominance float64 `json:"topicDominance"`
	PIScore        float64 `json:"piScore"`
	Location       float64 `json:"location"`
	Final          float64 `json:"final"`
}

// RankedExpert is a verified candidate with its computed score breakdown.
// Immutable once ranked; its lifetime is the ranked-list cache TTL.
type RankedExpert struct {
	VerifiedCandidate

	Scores ScoreBreakdown

	// RealWorksCount and RealCitationCount are the authoritative lifetime
	// totals used in the public response, never null: enrichment results
	// when available, search-derived counts otherwise.
	RealWorksCount    int
	RealCitationCount int
}
