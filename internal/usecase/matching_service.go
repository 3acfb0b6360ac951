package usecase

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/foodlens/backend/internal/domain"
)

// Match thresholds used by the resolution and alternative pipelines.
const (
	// GoodMatchThreshold is the score at which a database match is trusted
	// outright, without waiting on the model.
	GoodMatchThreshold = 60.0
	// MinimumMatchThreshold is the floor below which candidates are dropped.
	MinimumMatchThreshold = 25.0
	// ImageTrustThreshold is the minimum score for a database match to
	// donate its image to a model-generated record. Strictly higher than
	// the minimum so a weakly related product's photo is never attached.
	ImageTrustThreshold = 40.0
)

// Scoring weights
const (
	scoreExact           = 100.0
	scoreContainment     = 90.0
	tokenOverlapWeight   = 80.0
	charSimilarityWeight = 60.0
)

// MatchingService ranks candidate records against a free-text query using
// token overlap and edit distance.
type MatchingService struct {
	logger *zap.Logger
}

// NewMatchingService creates a new matching service
func NewMatchingService(logger *zap.Logger) *MatchingService {
	return &MatchingService{logger: logger}
}

// ScoredProduct pairs a candidate record with its match score.
type ScoredProduct struct {
	Product domain.ProductRecord
	Score   float64
}

// Score computes a similarity score in [0,100] between a query and a
// candidate name:
//   - exact match (case-insensitive) scores 100
//   - one string containing the other scores 90
//   - otherwise the maximum of a token-overlap score (x80) and a
//     character-level edit-distance similarity (x60)
func (s *MatchingService) Score(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))

	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return scoreExact
	}
	if strings.Contains(c, q) || strings.Contains(q, c) {
		return scoreContainment
	}

	tokenScore := tokenOverlapScore(q, c)
	charScore := charSimilarityScore(q, c)

	if tokenScore >= charScore {
		return tokenScore
	}
	return charScore
}

// RankCandidates scores every candidate against the query and returns them
// sorted best-first. Candidates below the minimum threshold are excluded.
func (s *MatchingService) RankCandidates(query string, candidates []domain.ProductRecord) []ScoredProduct {
	var ranked []ScoredProduct
	for _, p := range candidates {
		score := s.Score(query, p.Name)
		if brandScore := s.Score(query, strings.TrimSpace(p.Brand+" "+p.Name)); brandScore > score {
			score = brandScore
		}
		if score < MinimumMatchThreshold {
			continue
		}
		ranked = append(ranked, ScoredProduct{Product: p, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if s.logger != nil && len(ranked) > 0 {
		s.logger.Debug("ranked candidates",
			zap.String("query", query),
			zap.String("best", ranked[0].Product.Name),
			zap.Float64("score", ranked[0].Score),
		)
	}

	return ranked
}

// tokenOverlapScore credits each query token (length > 1) that equals,
// contains, or is contained by any candidate token, normalized by the
// larger token count.
func tokenOverlapScore(query, candidate string) float64 {
	queryTokens := matchTokens(query)
	candidateTokens := matchTokens(candidate)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return 0
	}

	matched := 0
	for _, qt := range queryTokens {
		for _, ct := range candidateTokens {
			if qt == ct || strings.Contains(ct, qt) || strings.Contains(qt, ct) {
				matched++
				break
			}
		}
	}

	denom := len(queryTokens)
	if len(candidateTokens) > denom {
		denom = len(candidateTokens)
	}

	return float64(matched) / float64(denom) * tokenOverlapWeight
}

// charSimilarityScore converts edit distance into a similarity in [0,60].
func charSimilarityScore(query, candidate string) float64 {
	maxLen := len([]rune(query))
	if l := len([]rune(candidate)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}

	dist := levenshteinDistance(query, candidate)
	return float64(maxLen-dist) / float64(maxLen) * charSimilarityWeight
}

// matchTokens splits a lowercased string into tokens longer than one rune.
func matchTokens(s string) []string {
	var tokens []string
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) > 1 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of the full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
