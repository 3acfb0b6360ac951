package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/foodlens/backend/internal/domain"
)

func newTestAlternatives(db *fakeDatabase, model *fakeModel) *AlternativeService {
	logger := zap.NewNop()
	return NewAlternativeService(db, model, NewMatchingService(logger), logger)
}

func TestNeedsAlternatives(t *testing.T) {
	svc := newTestAlternatives(&fakeDatabase{}, &fakeModel{})

	tests := []struct {
		name    string
		product domain.ProductRecord
		want    bool
	}{
		{"grade A lightly processed", domain.ProductRecord{NutriScore: domain.GradeA, NovaGroup: 1}, false},
		{"grade B", domain.ProductRecord{NutriScore: domain.GradeB, NovaGroup: 2}, false},
		{"grade C", domain.ProductRecord{NutriScore: domain.GradeC}, true},
		{"grade D", domain.ProductRecord{NutriScore: domain.GradeD}, true},
		{"grade E", domain.ProductRecord{NutriScore: domain.GradeE}, true},
		{"grade A but ultra-processed", domain.ProductRecord{NutriScore: domain.GradeA, NovaGroup: 4}, true},
		{"unknown grade, unknown processing", domain.ProductRecord{NutriScore: domain.GradeUnknown}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.NeedsAlternatives(tt.product); got != tt.want {
				t.Errorf("NeedsAlternatives() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuggest_NotTriggered(t *testing.T) {
	model := &fakeModel{configured: true}
	svc := newTestAlternatives(&fakeDatabase{}, model)

	got, err := svc.Suggest(context.Background(), domain.ProductRecord{NutriScore: domain.GradeA, NovaGroup: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil for a product that needs no alternatives", got)
	}
	if model.textCalls != 0 {
		t.Error("untriggered product must not cost a model call")
	}
}

func TestSuggest_NotConfigured(t *testing.T) {
	svc := newTestAlternatives(&fakeDatabase{}, &fakeModel{configured: false})

	_, err := svc.Suggest(context.Background(), domain.ProductRecord{NutriScore: domain.GradeE})
	if !errors.Is(err, domain.ErrModelNotConfigured) {
		t.Errorf("error = %v, want ErrModelNotConfigured", err)
	}
}

func TestSuggest_FiltersAndSorts(t *testing.T) {
	// The model proposes four products; the grade-d one must be dropped and
	// the rest must come back best grade first.
	model := &fakeModel{
		configured: true,
		textResponse: `{"alternatives": [
			{"name": "Dark Chocolate 85%", "nutriscore": "c", "reason": "less sugar"},
			{"name": "Oat Bar", "nutriscore": "a", "reason": "whole grain"},
			{"name": "Milk Chocolate Lite", "nutriscore": "d", "reason": "reduced fat"},
			{"name": "Fruit and Nut Mix", "nutriscore": "b", "reason": "unprocessed"}
		]}`,
	}
	svc := newTestAlternatives(&fakeDatabase{}, model)

	got, err := svc.Suggest(context.Background(), domain.ProductRecord{Name: "Chocolate Spread", NutriScore: domain.GradeE})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (the grade-d proposal dropped)", len(got))
	}
	wantOrder := []string{"Oat Bar", "Fruit and Nut Mix", "Dark Chocolate 85%"}
	for i, want := range wantOrder {
		if got[i].Name != want {
			t.Errorf("position %d = %q, want %q", i, got[i].Name, want)
		}
	}
	for _, sg := range got {
		if sg.NutriScore == domain.GradeD || sg.NutriScore == domain.GradeE {
			t.Errorf("suggestion %q surfaced with grade %v", sg.Name, sg.NutriScore)
		}
	}
}

func TestSuggest_VerificationPrefersDatabaseGrade(t *testing.T) {
	// The model claims grade a; the database knows the real product is b.
	db := &fakeDatabase{searchHits: []domain.ProductRecord{
		{
			Barcode:    "555",
			Name:       "Oat Crunch Bar",
			Brand:      "GoodGrain",
			ImageURL:   "https://img.example/oat.jpg",
			NutriScore: domain.GradeB,
			NovaGroup:  3,
		},
	}}
	model := &fakeModel{
		configured:   true,
		textResponse: `[{"name": "Oat Crunch Bar", "brand": "GoodGrain", "search_query": "oat crunch bar", "nutriscore": "a", "reason": "more fiber"}]`,
	}
	svc := newTestAlternatives(db, model)

	got, err := svc.Suggest(context.Background(), domain.ProductRecord{Name: "Candy Bar", NutriScore: domain.GradeE})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	sg := got[0]
	if !sg.Verified {
		t.Error("database match must mark the suggestion verified")
	}
	if sg.Barcode != "555" {
		t.Errorf("Barcode = %q, want the database's 555", sg.Barcode)
	}
	if sg.NutriScore != domain.GradeB {
		t.Errorf("NutriScore = %v, want the database's b over the model's claim", sg.NutriScore)
	}
	if sg.NovaGroup != 3 {
		t.Errorf("NovaGroup = %d, want the database's 3", sg.NovaGroup)
	}
}

func TestSuggest_TokenGuardRejectsUnrelatedMatch(t *testing.T) {
	// The database returns something fuzzy-adjacent but sharing no
	// meaningful token with the query; the suggestion stays unverified.
	db := &fakeDatabase{searchHits: []domain.ProductRecord{
		{Barcode: "777", Name: "Rye Crispbread", NutriScore: domain.GradeA},
	}}
	model := &fakeModel{
		configured:   true,
		textResponse: `[{"name": "Kale Chips", "search_query": "kale chips", "nutriscore": "a", "reason": "baked not fried"}]`,
	}
	svc := newTestAlternatives(db, model)

	got, err := svc.Suggest(context.Background(), domain.ProductRecord{Name: "Potato Chips", NutriScore: domain.GradeD})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Verified {
		t.Error("match sharing no query token must not verify the suggestion")
	}
	if got[0].Barcode != "" {
		t.Errorf("Barcode = %q, want empty for an unverified suggestion", got[0].Barcode)
	}
}

func TestSuggest_UnknownGradePassesThrough(t *testing.T) {
	model := &fakeModel{
		configured:   true,
		textResponse: `[{"name": "Local Bakery Bread", "reason": "fewer additives"}]`,
	}
	svc := newTestAlternatives(&fakeDatabase{}, model)

	got, err := svc.Suggest(context.Background(), domain.ProductRecord{Name: "Packaged Bread", NovaGroup: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].NutriScore != domain.GradeUnknown {
		t.Errorf("NutriScore = %v, want unknown", got[0].NutriScore)
	}
}

func TestSuggest_CapsProposals(t *testing.T) {
	model := &fakeModel{
		configured: true,
		textResponse: `[
			{"name": "One", "nutriscore": "a"},
			{"name": "Two", "nutriscore": "a"},
			{"name": "Three", "nutriscore": "a"},
			{"name": "Four", "nutriscore": "a"},
			{"name": "Five", "nutriscore": "a"},
			{"name": "Six", "nutriscore": "a"}
		]`,
	}
	svc := newTestAlternatives(&fakeDatabase{}, model)

	got, err := svc.Suggest(context.Background(), domain.ProductRecord{NutriScore: domain.GradeE})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > maxAlternatives {
		t.Errorf("len = %d, want at most %d", len(got), maxAlternatives)
	}
}

func TestTargetGrades(t *testing.T) {
	cGrades := targetGrades(domain.ProductRecord{NutriScore: domain.GradeC})
	if len(cGrades) != 2 || cGrades[0] != domain.GradeA || cGrades[1] != domain.GradeB {
		t.Errorf("grade c targets = %v, want [a b]", cGrades)
	}

	eGrades := targetGrades(domain.ProductRecord{NutriScore: domain.GradeE})
	if len(eGrades) != 3 || eGrades[2] != domain.GradeC {
		t.Errorf("grade e targets = %v, want [a b c]", eGrades)
	}
}
