package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/foodlens/backend/internal/domain"
)

// maxAlternatives caps how many suggestions the model is asked for.
const maxAlternatives = 4

// AlternativeService asks the model for healthier same-category products,
// verifies each against the public database, and filters by a strict
// improvement rule. It reuses the resolution engine's fusion machinery:
// the same gateway, extractor, and fuzzy scorer.
type AlternativeService struct {
	database domain.FoodDatabase
	model    domain.ModelGateway
	matcher  *MatchingService
	logger   *zap.Logger
}

// NewAlternativeService creates an alternative-suggestion service.
func NewAlternativeService(
	database domain.FoodDatabase,
	model domain.ModelGateway,
	matcher *MatchingService,
	logger *zap.Logger,
) *AlternativeService {
	return &AlternativeService{
		database: database,
		model:    model,
		matcher:  matcher,
		logger:   logger,
	}
}

// NeedsAlternatives reports whether a product triggers the pipeline: a
// C/D/E nutrition grade or the most processed tier. A- and B-graded,
// lightly processed products never do.
func (s *AlternativeService) NeedsAlternatives(p domain.ProductRecord) bool {
	switch p.NutriScore {
	case domain.GradeC, domain.GradeD, domain.GradeE:
		return true
	}
	return p.NovaGroup == 4
}

// Suggest returns verified, filtered, best-grade-first alternatives for
// the product, or an empty list when the product does not trigger the
// pipeline or the model produced nothing usable.
func (s *AlternativeService) Suggest(ctx context.Context, p domain.ProductRecord) ([]domain.AlternativeSuggestion, error) {
	if !s.NeedsAlternatives(p) {
		return nil, nil
	}
	if !s.model.Configured() {
		return nil, domain.ErrModelNotConfigured
	}

	raw, err := s.model.GenerateText(ctx, BuildAlternativesPrompt(p, targetGrades(p)))
	if err != nil {
		return nil, err
	}

	var proposals []modelAlternative
	if err := ExtractArray(raw, &proposals, "alternatives", "suggestions", "products"); err != nil {
		return nil, err
	}
	if len(proposals) > maxAlternatives {
		proposals = proposals[:maxAlternatives]
	}

	suggestions := make([]domain.AlternativeSuggestion, len(proposals))
	var wg sync.WaitGroup
	for i, proposal := range proposals {
		wg.Add(1)
		go func(i int, proposal modelAlternative) {
			defer wg.Done()
			suggestions[i] = s.verify(ctx, proposal)
		}(i, proposal)
	}
	wg.Wait()

	filtered := filterAndSort(suggestions)
	s.logger.Info("alternative suggestions ready",
		zap.String("product", p.Name),
		zap.Int("proposed", len(proposals)),
		zap.Int("returned", len(filtered)),
	)
	return filtered, nil
}

// targetGrades maps the original grade to the grade range a suggestion must
// claim: strictly better than the original.
func targetGrades(p domain.ProductRecord) []domain.Grade {
	if p.NutriScore == domain.GradeC {
		return []domain.Grade{domain.GradeA, domain.GradeB}
	}
	// D, E, or triggered only by the processing tier.
	return []domain.Grade{domain.GradeA, domain.GradeB, domain.GradeC}
}

// verify checks one proposal against the public database. A database match
// is accepted only when a meaningful query token appears in the combined
// brand+name text, and the database's own grade is preferred when known.
// Unverified proposals pass through with the model's claim and no barcode.
func (s *AlternativeService) verify(ctx context.Context, proposal modelAlternative) domain.AlternativeSuggestion {
	suggestion := domain.AlternativeSuggestion{
		Name:        strings.TrimSpace(proposal.Name),
		Brand:       strings.TrimSpace(proposal.Brand),
		NutriScore:  domain.NormalizeGrade(proposal.NutriScore),
		NovaGroup:   proposal.NovaGroup,
		Reason:      strings.TrimSpace(proposal.Reason),
		SearchQuery: strings.TrimSpace(proposal.SearchQuery),
	}

	query := suggestion.SearchQuery
	if query == "" {
		query = suggestion.Name
	}
	if query == "" {
		return suggestion
	}

	results, err := s.database.SearchByText(ctx, query)
	if err != nil {
		s.logger.Info("alternative verification skipped",
			zap.String("query", query), zap.Error(err))
		return suggestion
	}

	ranked := s.matcher.RankCandidates(query, results)
	for _, sp := range ranked {
		if !tokenAppears(query, sp.Product.Brand+" "+sp.Product.Name) {
			continue
		}
		suggestion.Barcode = sp.Product.Barcode
		suggestion.ImageURL = sp.Product.ImageURL
		suggestion.Verified = true
		if sp.Product.NutriScore.Known() {
			suggestion.NutriScore = sp.Product.NutriScore
		}
		if sp.Product.NovaGroup > 0 {
			suggestion.NovaGroup = sp.Product.NovaGroup
		}
		break
	}
	return suggestion
}

// tokenAppears reports whether any meaningful query token (length > 2)
// occurs in the candidate text.
func tokenAppears(query, text string) bool {
	haystack := strings.ToLower(text)
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(token)) <= 2 {
			continue
		}
		if strings.Contains(haystack, token) {
			return true
		}
	}
	return false
}

// filterAndSort applies the hard filter and ordering: a D/E alternative is
// never surfaced regardless of source; unknown-grade model-only fallbacks
// pass through untouched; the rest sort best grade first.
func filterAndSort(suggestions []domain.AlternativeSuggestion) []domain.AlternativeSuggestion {
	var kept []domain.AlternativeSuggestion
	for _, sg := range suggestions {
		if sg.Name == "" {
			continue
		}
		if sg.NutriScore == domain.GradeD || sg.NutriScore == domain.GradeE {
			continue
		}
		kept = append(kept, sg)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].NutriScore.Rank() < kept[j].NutriScore.Rank()
	})
	return kept
}
