package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foodlens/backend/internal/domain"
)

// referenceTable pins well-known products so numeric estimates stay
// anchored instead of drifting between calls.
const referenceTable = `Reference values (per 100g) for calibration:
Nutella (3017620422003): 539 kcal, 30.9g fat, 10.6g sat. fat, 57.5g carbs, 56.3g sugars, 6.3g protein, 0.107g salt, Nutri-Score E, NOVA 4
Coca-Cola: 42 kcal, 0g fat, 10.6g carbs, 10.6g sugars, 0g protein, 0g salt, Nutri-Score E, NOVA 4
KitKat: 518 kcal, 26.6g fat, 60.4g carbs, 47.8g sugars, 7.3g protein, 0.11g salt, Nutri-Score E, NOVA 4
Plain low-fat yogurt: 47 kcal, 1.5g fat, 4.7g carbs, 4.7g sugars, 4.3g protein, 0.13g salt, Nutri-Score A, NOVA 1
Whole-grain bread: 247 kcal, 3.4g fat, 41g carbs, 5.7g sugars, 13g protein, 1.2g salt, Nutri-Score A, NOVA 3`

const productJSONShape = `{
  "name": "", "brand": "", "category": "", "ingredients": "",
  "energy_kcal": 0, "energy_kj": 0, "fat": 0, "saturated_fat": 0,
  "carbohydrates": 0, "sugars": 0, "fiber": 0, "protein": 0, "salt": 0,
  "allergens": [], "labels": [], "nutriscore": "a-e or unknown",
  "nova_group": 0, "serving_size": "", "packaging": "", "origin": "",
  "confidence": 0.0
}`

// BuildProductPrompt asks the model for a full record estimate of a product
// named in free text.
func BuildProductPrompt(query string) string {
	return fmt.Sprintf(`You are a food product database. Estimate the packaged food product best matching %q.

%s

Respond with ONLY a JSON object, no prose, in this exact shape:
%s

All nutrition values are per 100g. Use 0 for values you cannot estimate.
Set "confidence" to your probability (0.0-1.0) that the estimate is accurate.`,
		query, referenceTable, productJSONShape)
}

// BuildNutritionFillPrompt asks the model to fill nutrition and grades only,
// for a product whose identity the public database already confirmed.
func BuildNutritionFillPrompt(name, brand string) string {
	label := name
	if brand != "" {
		label = brand + " " + name
	}
	return fmt.Sprintf(`You are a food product database. The product %q exists but its nutrition data is missing. Estimate its nutrition per 100g.

%s

Respond with ONLY a JSON object, no prose, in this exact shape:
%s

Set "confidence" to your probability (0.0-1.0) that the estimate is accurate.`,
		label, referenceTable, productJSONShape)
}

// BuildImageRecognitionPrompt asks the model to identify the product in an
// attached photo and estimate a full record.
func BuildImageRecognitionPrompt() string {
	return fmt.Sprintf(`Identify the packaged food product in this photo.

%s

Respond with ONLY a JSON object, no prose, in this exact shape:
%s

Set "confidence" to your probability (0.0-1.0) that you identified the right product. If the photo is not a recognizable packaged food product, set "confidence" below 0.3.`,
		referenceTable, productJSONShape)
}

// BuildAlternativesPrompt asks for up to four same-category alternatives
// strictly better than the original, limited to the target grades.
func BuildAlternativesPrompt(p domain.ProductRecord, targetGrades []domain.Grade) string {
	grades := make([]string, len(targetGrades))
	for i, g := range targetGrades {
		grades[i] = string(g)
	}

	return fmt.Sprintf(`The product %q (brand %q, category %q) has Nutri-Score %s and NOVA group %d.
Suggest up to 4 healthier alternatives in the same category, each with Nutri-Score %s.

Respond with ONLY a JSON array, no prose:
[{"name": "", "brand": "", "search_query": "", "nutriscore": "", "nova_group": 0, "reason": "one sentence"}]

"search_query" must be a short query that finds the product in a public food database.`,
		p.Name, p.Brand, p.Category, p.NutriScore, p.NovaGroup, strings.Join(grades, " or "))
}

// modelProduct mirrors the JSON shape the prompts request from the model.
type modelProduct struct {
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Category      string   `json:"category"`
	Ingredients   string   `json:"ingredients"`
	EnergyKcal    float64  `json:"energy_kcal"`
	EnergyKJ      float64  `json:"energy_kj"`
	Fat           float64  `json:"fat"`
	SaturatedFat  float64  `json:"saturated_fat"`
	Carbohydrates float64  `json:"carbohydrates"`
	Sugars        float64  `json:"sugars"`
	Fiber         float64  `json:"fiber"`
	Protein       float64  `json:"protein"`
	Salt          float64  `json:"salt"`
	Allergens     []string `json:"allergens"`
	Labels        []string `json:"labels"`
	NutriScore    string   `json:"nutriscore"`
	NovaGroup     int      `json:"nova_group"`
	ServingSize   string   `json:"serving_size"`
	Packaging     string   `json:"packaging"`
	Origin        string   `json:"origin"`
	Confidence    float64  `json:"confidence"`
}

// modelAlternative mirrors one element of the alternatives array.
type modelAlternative struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	SearchQuery string `json:"search_query"`
	NutriScore  string `json:"nutriscore"`
	NovaGroup   int    `json:"nova_group"`
	Reason      string `json:"reason"`
}

// ParseModelProduct extracts a product estimate and its self-reported
// confidence from free-form model text. Estimates with no usable name or
// with confidence below the minimum threshold are rejected as if the model
// had produced nothing.
func ParseModelProduct(raw string) (domain.ProductRecord, float64, error) {
	var mp modelProduct
	if err := ExtractObject(raw, &mp); err != nil {
		return domain.ProductRecord{}, 0, err
	}

	record := mp.toRecord()
	if !record.HasUsableName() {
		return domain.ProductRecord{}, 0, domain.ErrProductNotFound
	}

	confidence := clampConfidence(mp.Confidence)
	if confidence < domain.ConfidenceMinimum {
		return domain.ProductRecord{}, confidence, domain.ErrNotRecognized
	}

	return record, confidence, nil
}

func (mp modelProduct) toRecord() domain.ProductRecord {
	n := domain.Nutrition{
		EnergyKcal:    nonNegative(mp.EnergyKcal),
		EnergyKJ:      nonNegative(mp.EnergyKJ),
		Fat:           nonNegative(mp.Fat),
		SaturatedFat:  nonNegative(mp.SaturatedFat),
		Carbohydrates: nonNegative(mp.Carbohydrates),
		Sugars:        nonNegative(mp.Sugars),
		Fiber:         nonNegative(mp.Fiber),
		Protein:       nonNegative(mp.Protein),
		Salt:          nonNegative(mp.Salt),
	}
	if n.EnergyKJ == 0 && n.EnergyKcal > 0 {
		n.EnergyKJ = n.EnergyKcal * 4.184
	}
	if n.Salt > 0 {
		n.Sodium = n.Salt * 0.4
	}

	nova := mp.NovaGroup
	if nova < 0 || nova > 4 {
		nova = 0
	}

	return domain.ProductRecord{
		ID:          uuid.NewString(),
		Barcode:     "model-" + uuid.NewString(),
		Name:        strings.TrimSpace(mp.Name),
		Brand:       strings.TrimSpace(mp.Brand),
		Category:    strings.TrimSpace(mp.Category),
		Ingredients: strings.TrimSpace(mp.Ingredients),
		Nutrition:   n,
		Allergens:   mp.Allergens,
		Labels:      mp.Labels,
		NutriScore:  domain.NormalizeGrade(mp.NutriScore),
		EcoScore:    domain.GradeUnknown,
		NovaGroup:   nova,
		ServingSize: strings.TrimSpace(mp.ServingSize),
		Packaging:   strings.TrimSpace(mp.Packaging),
		Origins:     strings.TrimSpace(mp.Origin),
		ResolvedAt:  time.Now(),
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
