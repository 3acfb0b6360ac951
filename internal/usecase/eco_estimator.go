package usecase

import (
	"strings"

	"github.com/foodlens/backend/internal/domain"
)

// EcoEstimator produces a heuristic environmental grade from packaging,
// processing, origin, category, and certification signals. It is applied
// only when the public database supplies no eco grade of its own.
type EcoEstimator struct {
	homeCountry string
}

// NewEcoEstimator creates an estimator; homeCountry marks which origin
// counts as local.
func NewEcoEstimator(homeCountry string) *EcoEstimator {
	return &EcoEstimator{homeCountry: strings.ToLower(homeCountry)}
}

const ecoBaseline = 50

// longHaulOrigins penalize imports that typically travel far to European
// shelves.
var longHaulOrigins = []string{"china", "brazil", "argentina", "new zealand", "australia", "chile", "peru"}

// Estimate scores the record from a neutral baseline and buckets the result
// into the five-letter scale.
func (e *EcoEstimator) Estimate(p domain.ProductRecord) domain.Grade {
	score := ecoBaseline

	score += processingAdjustment(p.NovaGroup)
	score += packagingAdjustment(p.Packaging)
	score += e.originAdjustment(p.Origins)
	score += categoryAdjustment(p.Category)
	score += labelAdjustment(p.Labels)

	switch {
	case score >= 80:
		return domain.GradeA
	case score >= 60:
		return domain.GradeB
	case score >= 40:
		return domain.GradeC
	case score >= 20:
		return domain.GradeD
	default:
		return domain.GradeE
	}
}

func processingAdjustment(novaGroup int) int {
	switch novaGroup {
	case 4:
		return -20
	case 3:
		return -10
	case 1:
		return 10
	default:
		return 0
	}
}

func packagingAdjustment(packaging string) int {
	pkg := strings.ToLower(packaging)
	adj := 0
	if strings.Contains(pkg, "plastic") || strings.Contains(pkg, "plastique") {
		adj -= 15
	}
	if strings.Contains(pkg, "metal") || strings.Contains(pkg, "aluminium") || strings.Contains(pkg, "tin") {
		adj -= 10
	}
	if strings.Contains(pkg, "glass") || strings.Contains(pkg, "verre") {
		adj -= 5
	}
	if strings.Contains(pkg, "paper") || strings.Contains(pkg, "cardboard") || strings.Contains(pkg, "carton") {
		adj += 10
	}
	return adj
}

func (e *EcoEstimator) originAdjustment(origins string) int {
	org := strings.ToLower(origins)
	if org == "" {
		return 0
	}
	if strings.Contains(org, "local") || strings.Contains(org, "regional") ||
		(e.homeCountry != "" && strings.Contains(org, e.homeCountry)) {
		return 10
	}
	for _, far := range longHaulOrigins {
		if strings.Contains(org, far) {
			return -10
		}
	}
	return 0
}

func categoryAdjustment(category string) int {
	cat := strings.ToLower(category)
	adj := 0
	if strings.Contains(cat, "meat") || strings.Contains(cat, "beef") || strings.Contains(cat, "pork") {
		adj -= 20
	}
	if strings.Contains(cat, "dairy") || strings.Contains(cat, "cheese") || strings.Contains(cat, "milk") {
		adj -= 10
	}
	if strings.Contains(cat, "plant") || strings.Contains(cat, "vegetable") ||
		strings.Contains(cat, "fruit") || strings.Contains(cat, "legume") {
		adj += 10
	}
	return adj
}

func labelAdjustment(labels []string) int {
	adj := 0
	for _, label := range labels {
		l := strings.ToLower(label)
		switch {
		case strings.Contains(l, "organic") || strings.Contains(l, "bio"):
			adj += 10
		case strings.Contains(l, "fair-trade") || strings.Contains(l, "fair trade") || strings.Contains(l, "fairtrade"):
			adj += 5
		case strings.Contains(l, "sustainable") || strings.Contains(l, "rainforest"):
			adj += 5
		}
	}
	return adj
}
