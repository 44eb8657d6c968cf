package expertise

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/observability"
	"github.com/helixir/expert-finder-service/internal/worksources/semanticscholar"
)

// Verification bounds and thresholds.
const (
	// maxVerifyCandidates is how many candidates, by topic citations, get
	// cross-referenced.
	maxVerifyCandidates = 20

	// maxVerifyPapers is how many of the secondary source's papers are
	// fetched per matched profile.
	maxVerifyPapers = 100

	// maxProfileMatches caps how many name-search hits are tried per
	// candidate.
	maxProfileMatches = 3

	// nameSimilarityThreshold is the minimum token-overlap similarity for a
	// name-based verification.
	nameSimilarityThreshold = 0.7

	// nameMatchMinPapers is the minimum paper count the matched profile
	// must have for a name-based verification.
	nameMatchMinPapers = 5

	verifyConcurrency = 4
)

// Verifier cross-references candidates against the secondary bibliographic
// source and drops those that cannot be confirmed.
type Verifier struct {
	client  *semanticscholar.Client
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewVerifier creates a Verifier.
func NewVerifier(client *semanticscholar.Client, logger zerolog.Logger, metrics *observability.Metrics) *Verifier {
	return &Verifier{
		client:  client,
		logger:  observability.WithStageContext(logger, string(domain.StageVerify)),
		metrics: metrics,
	}
}

// Candidates verifies the top candidates by topic citation count against
// the secondary source. A candidate passes on DOI overlap with a matched
// profile's papers, or on a strong name similarity to a profile with
// enough papers. Unverified candidates are dropped entirely; per-candidate
// lookup failures skip that candidate. The relative citation order of the
// input is preserved in the output.
func (v *Verifier) Candidates(ctx context.Context, candidates []*domain.AuthorCandidate) ([]domain.VerifiedCandidate, *domain.Degradation) {
	subset := candidates
	if len(subset) > maxVerifyCandidates {
		subset = subset[:maxVerifyCandidates]
	}
	if len(subset) == 0 {
		return nil, nil
	}

	verified := make([]*domain.VerifiedCandidate, len(subset))
	var mu sync.Mutex
	var failures int
	var lastErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)

	for i, c := range subset {
		i, c := i, c
		g.Go(func() error {
			vc, err := v.verifyOne(gctx, c)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				authLogger := observability.WithAuthorContext(v.logger, c.AuthorID, c.Name)
				authLogger.Warn().Err(err).Msg("verification lookup failed, skipping candidate")
				failures++
				lastErr = err
				return nil
			}
			if vc != nil {
				v.metrics.RecordCandidateVerified(string(vc.Method))
				verified[i] = vc
			} else {
				v.metrics.RecordCandidatesRejected(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.VerifiedCandidate, 0, len(subset))
	for _, vc := range verified {
		if vc != nil {
			out = append(out, *vc)
		}
	}

	if failures > 0 && len(out) == 0 {
		v.metrics.RecordStageDegradation(string(domain.StageVerify))
		deg := domain.NewDegradation(domain.StageVerify, lastErr)
		return out, &deg
	}
	return out, nil
}

// verifyOne checks a single candidate against the secondary source.
// Returns nil, nil when no profile confirms the candidate.
func (v *Verifier) verifyOne(ctx context.Context, c *domain.AuthorCandidate) (*domain.VerifiedCandidate, error) {
	t0 := time.Now()
	matches, err := v.client.SearchAuthors(ctx, c.Name)
	v.metrics.RecordSourceRequest("semantic_scholar", "author_search", time.Since(t0).Seconds())
	if err != nil {
		v.metrics.RecordSourceRequestFailed("semantic_scholar", "author_search", "fetch")
		return nil, err
	}
	if len(matches) > maxProfileMatches {
		matches = matches[:maxProfileMatches]
	}

	dois := c.DOIs()

	for _, match := range matches {
		nameSim := NameSimilarity(c.Name, match.Name)
		for _, alias := range match.Aliases {
			nameSim = max(nameSim, NameSimilarity(c.Name, alias))
		}

		// DOI overlap needs a papers fetch; skip it when the candidate has
		// no DOIs to compare against.
		overlap := 0
		if len(dois) > 0 {
			t1 := time.Now()
			papers, err := v.client.GetAuthorPapers(ctx, match.AuthorID, maxVerifyPapers)
			v.metrics.RecordSourceRequest("semantic_scholar", "author_papers", time.Since(t1).Seconds())
			if err != nil {
				v.metrics.RecordSourceRequestFailed("semantic_scholar", "author_papers", "fetch")
				continue
			}
			for _, p := range papers {
				if p.DOI == "" {
					continue
				}
				if _, ok := dois[p.DOI]; ok {
					overlap++
				}
			}
		}

		switch {
		case overlap > 0:
			return &domain.VerifiedCandidate{
				AuthorCandidate:     *c,
				CrossRefAuthorID:    match.AuthorID,
				Method:              domain.VerifiedByDOIOverlap,
				NameMatchScore:      nameSim,
				OverlappingDOICount: overlap,
			}, nil
		case nameSim >= nameSimilarityThreshold && match.PaperCount >= nameMatchMinPapers:
			return &domain.VerifiedCandidate{
				AuthorCandidate:  *c,
				CrossRefAuthorID: match.AuthorID,
				Method:           domain.VerifiedByNameMatch,
				NameMatchScore:   nameSim,
			}, nil
		}
	}

	return nil, nil
}

// NameSimilarity computes a token-overlap similarity between two author
// names in [0,1]. Both names are diacritic-folded and lowercased, split
// into tokens, and tokens match exactly or by single-letter prefix (so
// "J. McMurray" matches "John McMurray"). The match count is divided by
// the larger token-set size.
func NameSimilarity(a, b string) float64 {
	tokensA := nameTokens(a)
	tokensB := nameTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	used := make([]bool, len(tokensB))
	matched := 0
	for _, ta := range tokensA {
		for j, tb := range tokensB {
			if used[j] {
				continue
			}
			if tokensMatch(ta, tb) {
				used[j] = true
				matched++
				break
			}
		}
	}

	larger := max(len(tokensA), len(tokensB))
	return float64(matched) / float64(larger)
}

// nameTokens splits a folded name into comparison tokens, dropping
// punctuation-only fragments.
func nameTokens(name string) []string {
	folded := foldName(name)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '.' || r == ',' || r == '-'
	})
	tokens := fields[:0]
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// tokensMatch reports whether two name tokens match exactly, or one is an
// initial of the other.
func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) == 1 {
		return strings.HasPrefix(b, a)
	}
	if len(b) == 1 {
		return strings.HasPrefix(a, b)
	}
	return false
}

// topByCitations returns the candidates sorted by topic citations
// descending, without mutating the input slice.
func topByCitations(candidates []*domain.AuthorCandidate) []*domain.AuthorCandidate {
	sorted := make([]*domain.AuthorCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalCitations != sorted[j].TotalCitations {
			return sorted[i].TotalCitations > sorted[j].TotalCitations
		}
		return sorted[i].AuthorID < sorted[j].AuthorID
	})
	return sorted
}
