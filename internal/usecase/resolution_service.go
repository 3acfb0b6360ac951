package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foodlens/backend/internal/domain"
)

// maxTextMatches caps how many database matches a text search returns.
const maxTextMatches = 5

// ResolutionService is the top-level policy: given an input modality it
// runs the source adapters in the right order, merges partial results, and
// returns one ranked product with provenance, or a typed not-found outcome.
// Adapter failures are caught here and degrade to the next source in the
// chain; nothing propagates past this boundary.
type ResolutionService struct {
	cache    domain.ScanCache
	database domain.FoodDatabase
	model    domain.ModelGateway
	images   domain.ImageResolver
	matcher  *MatchingService
	eco      *EcoEstimator
	logger   *zap.Logger
}

// NewResolutionService creates a resolution service with its collaborators.
func NewResolutionService(
	cache domain.ScanCache,
	database domain.FoodDatabase,
	model domain.ModelGateway,
	images domain.ImageResolver,
	matcher *MatchingService,
	eco *EcoEstimator,
	logger *zap.Logger,
) *ResolutionService {
	return &ResolutionService{
		cache:    cache,
		database: database,
		model:    model,
		images:   images,
		matcher:  matcher,
		eco:      eco,
		logger:   logger,
	}
}

// ResolveBarcode resolves a scanned barcode: cache, then the public
// database, then a model fill-in for records missing nutrition. A barcode
// absent from the database is a definitive not-found; the model is never
// asked to invent a product from a bare barcode.
func (s *ResolutionService) ResolveBarcode(ctx context.Context, barcode string) (*domain.ResolvedProduct, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, domain.ErrInvalidRequest
	}

	if cached, err := s.cache.GetByBarcode(ctx, barcode); err == nil {
		r := domain.NewResolved(*cached, domain.SourceLocalCache)
		return &r, nil
	}

	record, err := s.database.FetchByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, domain.ErrProductNotFound
		}
		s.logger.Warn("food database unavailable for barcode",
			zap.String("barcode", barcode), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrDatabaseUnavailable, err)
	}

	if !record.HasUsableName() {
		return nil, domain.ErrProductNotFound
	}

	// A record with exactly zero energy is treated as missing nutrition and
	// sent to the model for a fill-in. Genuinely zero-calorie products pay
	// one extra model round-trip; the database's identity fields and grades
	// still win in the merge.
	if record.Nutrition.HasEnergy() {
		complete := s.withImage(ctx, s.withEcoScore(*record))
		r := domain.NewResolved(complete, domain.SourcePublicDatabase)
		return &r, nil
	}

	filled, confidence, err := s.fillNutrition(ctx, *record)
	if err != nil {
		s.logger.Info("model fill-in unavailable, returning database record as-is",
			zap.String("barcode", barcode), zap.Error(err))
		partial := s.withImage(ctx, s.withEcoScore(*record))
		r := domain.NewResolved(partial, domain.SourcePublicDatabase)
		return &r, nil
	}

	merged := s.withImage(ctx, s.withEcoScore(filled))
	r := domain.NewModelResolved(merged, domain.SourceModelPartial, confidence)
	return &r, nil
}

// ResolveText resolves a free-text query. The cache is consulted first;
// otherwise the public database and the model are queried concurrently.
// A good database match with an image wins immediately; a usable model
// record is the fallback, and a weak database match never donates its
// image to it.
func (s *ResolutionService) ResolveText(ctx context.Context, query string) ([]domain.ResolvedProduct, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidRequest
	}

	if cached, err := s.cache.SearchByName(ctx, query); err == nil && len(cached) > 0 {
		ranked := s.matcher.RankCandidates(query, cached)
		if len(ranked) > 0 && ranked[0].Score >= GoodMatchThreshold {
			r := domain.NewResolved(ranked[0].Product, domain.SourceLocalCache)
			return []domain.ResolvedProduct{r}, nil
		}
	}

	var (
		dbResults []domain.ProductRecord
		dbErr     error
		modelText string
		modelErr  error
	)

	// Both sources run concurrently; each failure is recorded, not
	// propagated, so the slower source still gets its chance.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dbResults, dbErr = s.database.SearchByText(gctx, query)
		return nil
	})
	g.Go(func() error {
		if !s.model.Configured() {
			modelErr = domain.ErrModelNotConfigured
			return nil
		}
		modelText, modelErr = s.model.GenerateText(gctx, BuildProductPrompt(query))
		return nil
	})
	_ = g.Wait()

	if dbErr != nil {
		s.logger.Warn("food database search failed", zap.String("query", query), zap.Error(dbErr))
	}
	if modelErr != nil {
		s.logger.Info("model search failed", zap.String("query", query), zap.Error(modelErr))
	}

	ranked := s.matcher.RankCandidates(query, dbResults)

	if len(ranked) > 0 && ranked[0].Score >= GoodMatchThreshold && ranked[0].Product.ImageURL != "" {
		return s.databaseMatches(ranked), nil
	}

	if modelErr == nil {
		record, confidence, err := ParseModelProduct(modelText)
		if err == nil {
			// A database image is only reused when its match clears the
			// image-trust threshold; a weak match must never donate its
			// photo to a model result.
			if len(ranked) > 0 && ranked[0].Score >= ImageTrustThreshold && ranked[0].Product.ImageURL != "" {
				record.ImageURL = ranked[0].Product.ImageURL
			}
			source := domain.SourceModelGenerated
			if confidence < domain.ConfidenceHigh {
				source = domain.SourceModelPartial
			}
			record = s.withEcoScore(record)
			r := domain.NewModelResolved(record, source, confidence)
			return []domain.ResolvedProduct{r}, nil
		}
		s.logger.Info("model output unusable", zap.String("query", query), zap.Error(err))
	}

	// Model produced nothing; a good database match without an image is
	// still better than no result.
	if len(ranked) > 0 && ranked[0].Score >= GoodMatchThreshold {
		return s.databaseMatches(ranked), nil
	}

	return nil, domain.ErrProductNotFound
}

// ResolveImage resolves a captured photo. Recognition below the medium
// confidence threshold is rejected before any database call. The returned
// record always carries the captured photo reference, never a database
// photo, so the user sees what they just photographed.
func (s *ResolutionService) ResolveImage(ctx context.Context, image []byte, mimeType, imageRef string) (*domain.ResolvedProduct, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidRequest
	}
	if !s.model.Configured() {
		return nil, domain.ErrModelNotConfigured
	}

	raw, err := s.model.GenerateVision(ctx, BuildImageRecognitionPrompt(), image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotRecognized, err)
	}

	var mp modelProduct
	if err := ExtractObject(raw, &mp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotRecognized, err)
	}

	confidence := clampConfidence(mp.Confidence)
	if confidence < domain.ConfidenceMedium {
		s.logger.Info("image recognition below medium confidence",
			zap.Float64("confidence", confidence))
		return nil, domain.ErrNotRecognized
	}

	guess := mp.toRecord()
	if !guess.HasUsableName() {
		return nil, domain.ErrNotRecognized
	}

	if enriched := s.enrichFromDatabase(ctx, guess); enriched != nil {
		enriched.ImageURL = imageRef
		r := domain.NewResolved(s.withEcoScore(*enriched), domain.SourceImagePipeline)
		return &r, nil
	}

	guess.ImageURL = imageRef
	guess = s.withEcoScore(guess)
	r := domain.NewResolved(guess, domain.SourceImagePipeline)
	return &r, nil
}

// enrichFromDatabase searches the database for the recognized name and
// returns a merged record when a result shares a leading word with the
// recognition and carries nonzero nutrition.
func (s *ResolutionService) enrichFromDatabase(ctx context.Context, guess domain.ProductRecord) *domain.ProductRecord {
	results, err := s.database.SearchByText(ctx, guess.Name)
	if err != nil {
		s.logger.Info("database enrichment failed", zap.String("name", guess.Name), zap.Error(err))
		return nil
	}

	lead := leadingWord(guess.Name)
	for _, candidate := range results {
		if !candidate.Nutrition.HasEnergy() {
			continue
		}
		if leadingWord(candidate.Name) != lead && !strings.Contains(strings.ToLower(candidate.Name), lead) {
			continue
		}
		merged := candidate
		merged.ResolvedAt = time.Now()
		return &merged
	}
	return nil
}

// fillNutrition asks the model for nutrition only and merges it under the
// database record's identity fields. Database name, brand, image, and
// allergens win where present; nutrition and unknown grades come from the
// model.
func (s *ResolutionService) fillNutrition(ctx context.Context, dbRecord domain.ProductRecord) (domain.ProductRecord, float64, error) {
	if !s.model.Configured() {
		return domain.ProductRecord{}, 0, domain.ErrModelNotConfigured
	}

	raw, err := s.model.GenerateText(ctx, BuildNutritionFillPrompt(dbRecord.Name, dbRecord.Brand))
	if err != nil {
		return domain.ProductRecord{}, 0, err
	}

	modelRecord, confidence, err := ParseModelProduct(raw)
	if err != nil {
		return domain.ProductRecord{}, 0, err
	}

	merged := dbRecord
	merged.Nutrition = modelRecord.Nutrition
	if !merged.NutriScore.Known() {
		merged.NutriScore = modelRecord.NutriScore
	}
	if merged.NovaGroup == 0 {
		merged.NovaGroup = modelRecord.NovaGroup
	}
	if len(merged.Allergens) == 0 {
		merged.Allergens = modelRecord.Allergens
	}
	if merged.Ingredients == "" {
		merged.Ingredients = modelRecord.Ingredients
	}
	merged.ResolvedAt = time.Now()

	return merged, confidence, nil
}

// databaseMatches converts ranked database candidates into resolved
// products, capped at maxTextMatches.
func (s *ResolutionService) databaseMatches(ranked []ScoredProduct) []domain.ResolvedProduct {
	var out []domain.ResolvedProduct
	for _, sp := range ranked {
		if len(out) == maxTextMatches {
			break
		}
		out = append(out, domain.NewResolved(s.withEcoScore(sp.Product), domain.SourcePublicDatabase))
	}
	return out
}

// withEcoScore fills a missing environmental grade with the heuristic
// estimate. The authoritative database grade is never overwritten.
func (s *ResolutionService) withEcoScore(p domain.ProductRecord) domain.ProductRecord {
	if p.EcoScore.Known() {
		return p
	}
	p.EcoScore = s.eco.Estimate(p)
	return p
}

// withImage fills a missing image reference from the derived CDN
// candidates, validated by the image resolver.
func (s *ResolutionService) withImage(ctx context.Context, p domain.ProductRecord) domain.ProductRecord {
	if p.ImageURL != "" || s.images == nil {
		return p
	}
	p.ImageURL = s.images.BestImage(ctx, p.Barcode)
	return p
}

// leadingWord returns the lowercase first whitespace-separated token.
func leadingWord(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
