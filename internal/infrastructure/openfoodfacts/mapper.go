package openfoodfacts

import (
	"strconv"
	"strings"
	"time"

	"github.com/foodlens/backend/internal/domain"
)

// offProduct is the subset of an Open Food Facts product record this
// engine consumes. Every field is optional on the wire and defaults to
// empty or zero.
type offProduct struct {
	Code            string                 `json:"code"`
	ProductName     string                 `json:"product_name"`
	ProductNameEn   string                 `json:"product_name_en"`
	GenericName     string                 `json:"generic_name"`
	Brands          string                 `json:"brands"`
	ImageURL        string                 `json:"image_url"`
	ImageFrontURL   string                 `json:"image_front_url"`
	Categories      string                 `json:"categories"`
	IngredientsText string                 `json:"ingredients_text"`
	Nutriments      map[string]interface{} `json:"nutriments"`
	AllergensTags   []string               `json:"allergens_tags"`
	LabelsTags      []string               `json:"labels_tags"`
	NutriscoreGrade string                 `json:"nutriscore_grade"`
	EcoscoreGrade   string                 `json:"ecoscore_grade"`
	NovaGroup       interface{}            `json:"nova_group"` // number or string on the wire
	ServingSize     string                 `json:"serving_size"`
	Packaging       string                 `json:"packaging"`
	Origins         string                 `json:"origins"`
	Stores          string                 `json:"stores"`
	Countries       string                 `json:"countries"`
}

// name returns the best available product name, in fallback order.
func (p *offProduct) name() string {
	if p.ProductName != "" {
		return p.ProductName
	}
	if p.ProductNameEn != "" {
		return p.ProductNameEn
	}
	return p.GenericName
}

// image prefers the front photo over the generic one.
func (p *offProduct) image() string {
	if p.ImageFrontURL != "" {
		return p.ImageFrontURL
	}
	return p.ImageURL
}

// MapProduct normalizes a raw Open Food Facts product into the canonical
// record shape. Missing nutriments map to 0, grades are canonicalized, and
// taxonomy tags lose their language prefix.
func MapProduct(p *offProduct, barcode string) domain.ProductRecord {
	if barcode == "" {
		barcode = p.Code
	}

	nutrition := domain.Nutrition{
		EnergyKcal:    nutriment(p.Nutriments, "energy-kcal_100g"),
		EnergyKJ:      nutriment(p.Nutriments, "energy-kj_100g"),
		Fat:           nutriment(p.Nutriments, "fat_100g"),
		SaturatedFat:  nutriment(p.Nutriments, "saturated-fat_100g"),
		Carbohydrates: nutriment(p.Nutriments, "carbohydrates_100g"),
		Sugars:        nutriment(p.Nutriments, "sugars_100g"),
		Fiber:         nutriment(p.Nutriments, "fiber_100g"),
		Protein:       nutriment(p.Nutriments, "proteins_100g"),
		Salt:          nutriment(p.Nutriments, "salt_100g"),
		Sodium:        nutriment(p.Nutriments, "sodium_100g"),
	}
	if nutrition.EnergyKcal == 0 && nutrition.EnergyKJ > 0 {
		nutrition.EnergyKcal = nutrition.EnergyKJ / 4.184
	}

	return domain.ProductRecord{
		ID:          barcode,
		Barcode:     barcode,
		Name:        strings.TrimSpace(p.name()),
		Brand:       firstSegment(p.Brands),
		ImageURL:    p.image(),
		Category:    firstSegment(p.Categories),
		Ingredients: strings.TrimSpace(p.IngredientsText),
		Nutrition:   nutrition,
		Allergens:   stripTagPrefixes(p.AllergensTags),
		Labels:      stripTagPrefixes(p.LabelsTags),
		NutriScore:  domain.NormalizeGrade(p.NutriscoreGrade),
		EcoScore:    domain.NormalizeGrade(p.EcoscoreGrade),
		NovaGroup:   novaGroup(p.NovaGroup),
		ServingSize: strings.TrimSpace(p.ServingSize),
		Packaging:   strings.TrimSpace(p.Packaging),
		Origins:     strings.TrimSpace(p.Origins),
		Stores:      strings.TrimSpace(p.Stores),
		Countries:   strings.TrimSpace(p.Countries),
		ResolvedAt:  time.Now(),
	}
}

// nutriment coerces a nutriments map value to a non-negative float64.
// Values arrive as numbers or numeric strings.
func nutriment(m map[string]interface{}, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case float64:
		if x < 0 {
			return 0
		}
		return x
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil && f >= 0 {
			return f
		}
	}
	return 0
}

// novaGroup coerces the wire value (number or string) into the 0-4 range.
func novaGroup(v interface{}) int {
	var n int
	switch x := v.(type) {
	case float64:
		n = int(x)
	case string:
		n, _ = strconv.Atoi(strings.TrimSpace(x))
	default:
		return 0
	}
	if n < 0 || n > 4 {
		return 0
	}
	return n
}

// firstSegment returns the first entry of a comma-separated list.
func firstSegment(s string) string {
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// stripTagPrefixes removes the language prefix from taxonomy tags, turning
// "en:gluten" into "gluten".
func stripTagPrefixes(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if idx := strings.Index(tag, ":"); idx >= 0 {
			tag = tag[idx+1:]
		}
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
