package usecase

import (
	"testing"

	"go.uber.org/zap"

	"github.com/foodlens/backend/internal/domain"
)

func newTestMatcher() *MatchingService {
	return NewMatchingService(zap.NewNop())
}

func TestScore_ExactMatch(t *testing.T) {
	svc := newTestMatcher()

	for _, s := range []string{"Nutella", "whole milk", "Coca-Cola Zero", "x"} {
		if got := svc.Score(s, s); got != 100 {
			t.Errorf("Score(%q, %q) = %v, want 100", s, s, got)
		}
	}
}

func TestScore_CaseInsensitive(t *testing.T) {
	svc := newTestMatcher()
	if got := svc.Score("NUTELLA", "nutella"); got != 100 {
		t.Errorf("Score = %v, want 100", got)
	}
}

func TestScore_Containment(t *testing.T) {
	svc := newTestMatcher()

	if got := svc.Score("nutella", "Nutella hazelnut spread"); got != 90 {
		t.Errorf("candidate containing query = %v, want 90", got)
	}
	if got := svc.Score("Nutella hazelnut spread", "nutella"); got != 90 {
		t.Errorf("query containing candidate = %v, want 90", got)
	}
}

func TestScore_TokenOverlap(t *testing.T) {
	svc := newTestMatcher()

	// 2 of 3 candidate tokens match 2 of 2 query tokens: 2/3 * 80 ≈ 53.3
	got := svc.Score("dark chocolate", "chocolate bar dark")
	if got < 50 || got > 60 {
		t.Errorf("Score = %v, want roughly 53", got)
	}
}

func TestScore_WeakMatchBelowImageTrust(t *testing.T) {
	svc := newTestMatcher()

	// An unrelated product must stay below the image-trust threshold so its
	// photo is never donated to a model result.
	got := svc.Score("Carrot cake", "Margarine with olive oil")
	if got >= ImageTrustThreshold {
		t.Errorf("Score = %v, want < %v", got, ImageTrustThreshold)
	}
}

func TestScore_Empty(t *testing.T) {
	svc := newTestMatcher()
	if got := svc.Score("", "anything"); got != 0 {
		t.Errorf("Score with empty query = %v, want 0", got)
	}
	if got := svc.Score("anything", ""); got != 0 {
		t.Errorf("Score with empty candidate = %v, want 0", got)
	}
}

func TestRankCandidates(t *testing.T) {
	svc := newTestMatcher()

	candidates := []domain.ProductRecord{
		{Name: "Margarine with olive oil"},
		{Name: "Carrot cake mix"},
		{Name: "Carrot cake"},
	}

	ranked := svc.RankCandidates("Carrot cake", candidates)
	if len(ranked) == 0 {
		t.Fatal("expected at least one ranked candidate")
	}
	if ranked[0].Product.Name != "Carrot cake" {
		t.Errorf("best = %q, want \"Carrot cake\"", ranked[0].Product.Name)
	}
	if ranked[0].Score != 100 {
		t.Errorf("best score = %v, want 100", ranked[0].Score)
	}
	for _, sp := range ranked {
		if sp.Product.Name == "Margarine with olive oil" {
			t.Error("unrelated candidate should fall below the minimum threshold")
		}
	}
}

func TestRankCandidates_SortedDescending(t *testing.T) {
	svc := newTestMatcher()

	ranked := svc.RankCandidates("greek yogurt", []domain.ProductRecord{
		{Name: "Greek style yogurt"},
		{Name: "Greek yogurt"},
		{Name: "Yogurt drink greek honey flavor"},
	})

	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("ranking not descending at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"nutella", "nutela", 1},
		{"same", "same", 0},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.s1, tt.s2); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
		}
	}
}
