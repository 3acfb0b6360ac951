package domain

import "time"

// Data source tags identifying which collaborator produced a resolved record.
const (
	SourceLocalCache     = "local-cache"
	SourcePublicDatabase = "public-database"
	SourceModelGenerated = "model-generated"
	SourceModelPartial   = "model-partial"
	SourceImagePipeline  = "image-pipeline"
)

// Confidence thresholds for model-produced records.
const (
	ConfidenceHigh    = 0.8 // above this, no fields are flagged uncertain
	ConfidenceMedium  = 0.5 // below this, image recognition is rejected
	ConfidenceMinimum = 0.3 // below this, a model record is discarded entirely
)

// UncertainFields is the fixed set of fields flagged on a model record
// whose confidence falls below ConfidenceHigh.
var UncertainFields = []string{
	"energyKcal", "fat", "saturatedFat", "carbohydrates", "sugars",
	"fiber", "protein", "salt", "novaGroup", "nutriScore",
}

// Nutrition holds values per 100g. Absent values are 0, never null.
type Nutrition struct {
	EnergyKcal    float64 `json:"energyKcal"`
	EnergyKJ      float64 `json:"energyKj"`
	Fat           float64 `json:"fat"`
	SaturatedFat  float64 `json:"saturatedFat"`
	Carbohydrates float64 `json:"carbohydrates"`
	Sugars        float64 `json:"sugars"`
	Fiber         float64 `json:"fiber"`
	Protein       float64 `json:"protein"`
	Salt          float64 `json:"salt"`
	Sodium        float64 `json:"sodium"`
}

// HasEnergy reports whether the record carries any energy value at all.
func (n Nutrition) HasEnergy() bool {
	return n.EnergyKcal > 0 || n.EnergyKJ > 0
}

// ProductRecord is the canonical normalized product shape shared by every
// source adapter. A record is built fresh on each resolution and never
// mutated afterward; merging sources constructs a new record.
type ProductRecord struct {
	ID          string    `json:"id"`
	Barcode     string    `json:"barcode"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	ImageURL    string    `json:"imageUrl"`
	Category    string    `json:"category"`
	Ingredients string    `json:"ingredients"`
	Nutrition   Nutrition `json:"nutrition"`
	Allergens   []string  `json:"allergens"`
	Labels      []string  `json:"labels"`
	NutriScore  Grade     `json:"nutriScore"`
	EcoScore    Grade     `json:"ecoScore"`
	NovaGroup   int       `json:"novaGroup"` // 0 = unknown, 1-4 processing tiers
	ServingSize string    `json:"servingSize"`
	Packaging   string    `json:"packaging"`
	Origins     string    `json:"origins"`
	Stores      string    `json:"stores"`
	Countries   string    `json:"countries"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

// HasUsableName reports whether the name is meaningful enough to act on.
func (p ProductRecord) HasUsableName() bool {
	return len(p.Name) > 2
}

// ResolvedProduct attaches provenance metadata to a ProductRecord.
// Confidence is set only for model sources; UncertainFields is non-empty
// exactly when the source is a model source and confidence is below the
// high threshold.
type ResolvedProduct struct {
	Product         ProductRecord `json:"product"`
	Source          string        `json:"dataSource"`
	Confidence      float64       `json:"confidence,omitempty"`
	UncertainFields []string      `json:"uncertainFields,omitempty"`
}

// NewResolved tags a record with a non-model source.
func NewResolved(p ProductRecord, source string) ResolvedProduct {
	return ResolvedProduct{Product: p, Source: source}
}

// NewModelResolved tags a record with a model source, flagging the fixed
// uncertain-field set when confidence is below the high threshold.
func NewModelResolved(p ProductRecord, source string, confidence float64) ResolvedProduct {
	r := ResolvedProduct{Product: p, Source: source, Confidence: confidence}
	if confidence < ConfidenceHigh {
		r.UncertainFields = append([]string(nil), UncertainFields...)
	}
	return r
}

// AlternativeSuggestion is a healthier-product candidate. Barcode is empty
// until the suggestion is verified against the public database.
type AlternativeSuggestion struct {
	Barcode     string `json:"barcode,omitempty"`
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	NutriScore  Grade  `json:"nutriScore"`
	NovaGroup   int    `json:"novaGroup"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Reason      string `json:"reason"`
	SearchQuery string `json:"searchQuery,omitempty"`
	Verified    bool   `json:"verified"`
}
