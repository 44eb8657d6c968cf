package domain

// Confidence classifies how much supporting evidence backs an expert result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceTier computes the evidence tier for an expert from their
// topic-scoped citation total, topic work count, and recent work count
// (works within the last two years). Thresholds are deliberately coarse;
// the tier is a label for consumers, not a ranking input.
func ConfidenceTier(citations, works, recentWorks int) Confidence {
	switch {
	case citations >= 500 && works >= 20 && recentWorks >= 3:
		return ConfidenceHigh
	case citations >= 100 && works >= 10 && recentWorks >= 2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ExpertMetrics is the public metrics block of an expert result.
type ExpertMetrics struct {
	TopicWorks      int     `json:"topicWorks"`
	TopicCitations  int     `json:"topicCitations"`
	LifetimeWorks   int     `json:"lifetimeWorks,omitempty"`
	RecentWorks     int     `json:"recentWorks"`
	FirstAuthor     int     `json:"firstAuthorCount"`
	LastAuthor      int     `json:"lastAuthorCount"`
	Corresponding   int     `json:"correspondingAuthorCount"`
	FieldRelevance  float64 `json:"fieldRelevance"`
	TrialWorks      int     `json:"trialWorks,omitempty"`
	TrialLastAuthor int     `json:"trialLastAuthorCount,omitempty"`
}

// ExpertVerification is the public verification block of an expert result.
type ExpertVerification struct {
	Verified            bool    `json:"verified"`
	Method              string  `json:"method,omitempty"`
	OverlappingDOICount int     `json:"overlappingDoiCount,omitempty"`
	NameMatchScore      float64 `json:"nameMatchScore,omitempty"`
}

// RecentWork is a compact view of one of an expert's recent publications.
type RecentWork struct {
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Citations int    `json:"citations"`
	DOI       string `json:"doi,omitempty"`
}

// Expert is the public shape of a single ranked expert.
type Expert struct {
	AuthorID     string             `json:"authorId"`
	Name         string             `json:"name"`
	ORCID        string             `json:"orcid,omitempty"`
	OrcidURL     string             `json:"orcidUrl,omitempty"`
	Institutions []string           `json:"institutions"`
	Countries    []string           `json:"countries,omitempty"`
	Rank         int                `json:"rank"`
	Score        float64            `json:"score"`
	Scores       ScoreBreakdown     `json:"scoreBreakdown"`
	Confidence   Confidence         `json:"confidence"`
	Metrics      ExpertMetrics      `json:"metrics"`
	Verification ExpertVerification `json:"verification"`
	RecentWorks  []RecentWork       `json:"recentWorks,omitempty"`
	Biography    string             `json:"biography,omitempty"`
}

// ExpertPage is a single page of ranked expert results.
type ExpertPage struct {
	Experts      []Expert      `json:"experts"`
	TotalFound   int           `json:"totalFound"`
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	HasMore      bool          `json:"hasMore"`
	Degradations []Degradation `json:"degradations,omitempty"`
}
