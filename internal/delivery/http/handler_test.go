package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodlens/backend/config"
	"github.com/foodlens/backend/internal/domain"
	"github.com/foodlens/backend/internal/infrastructure/cache"
	"github.com/foodlens/backend/internal/usecase"
)

type stubDatabase struct {
	byBarcode map[string]domain.ProductRecord
}

func (s *stubDatabase) FetchByBarcode(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	if r, ok := s.byBarcode[barcode]; ok {
		return &r, nil
	}
	return nil, domain.ErrProductNotFound
}

func (s *stubDatabase) SearchByText(ctx context.Context, query string) ([]domain.ProductRecord, error) {
	return nil, domain.ErrProductNotFound
}

type stubModel struct {
	response   string
	configured bool
}

func (s *stubModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	if !s.configured {
		return "", domain.ErrModelNotConfigured
	}
	return s.response, nil
}

func (s *stubModel) GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if !s.configured {
		return "", domain.ErrModelNotConfigured
	}
	return s.response, nil
}

func (s *stubModel) Configured() bool { return s.configured }

type stubImages struct{}

func (stubImages) BestImage(ctx context.Context, barcode string, candidates ...string) string {
	return ""
}

func setupTestRouter(db *stubDatabase, model *stubModel) (http.Handler, *cache.ScanCache) {
	cfg := &config.Config{}
	cfg.Server.AllowedOrigins = []string{"*"}

	logger := zap.NewNop()
	scanCache := cache.NewScanCache(10)
	matcher := usecase.NewMatchingService(logger)

	resolver := usecase.NewResolutionService(
		scanCache, db, model, stubImages{}, matcher,
		usecase.NewEcoEstimator("france"), logger,
	)
	alternatives := usecase.NewAlternativeService(db, model, matcher, logger)
	handler := NewHandler(resolver, alternatives, scanCache, logger)

	return SetupRouter(cfg, handler, logger), scanCache
}

func postJSON(router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupTestRouter(&stubDatabase{}, &stubModel{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestResolveBarcode_OK(t *testing.T) {
	db := &stubDatabase{byBarcode: map[string]domain.ProductRecord{
		"3017620422003": {
			Barcode:    "3017620422003",
			Name:       "Nutella",
			Nutrition:  domain.Nutrition{EnergyKcal: 539},
			NutriScore: domain.GradeE,
			EcoScore:   domain.GradeD,
		},
	}}
	router, scanCache := setupTestRouter(db, &stubModel{})

	w := postJSON(router, "/api/v1/resolve/barcode", map[string]string{"barcode": "3017620422003"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Product    domain.ProductRecord `json:"product"`
		DataSource string               `json:"dataSource"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Nutella", resp.Product.Name)
	assert.Equal(t, string(domain.SourcePublicDatabase), resp.DataSource)

	// A successful resolution lands in the scan cache.
	cached, err := scanCache.GetByBarcode(context.Background(), "3017620422003")
	require.NoError(t, err)
	assert.Equal(t, "Nutella", cached.Name)
}

func TestResolveBarcode_SecondScanHitsCache(t *testing.T) {
	db := &stubDatabase{byBarcode: map[string]domain.ProductRecord{
		"111": {Barcode: "111", Name: "Granola", Nutrition: domain.Nutrition{EnergyKcal: 450}},
	}}
	router, _ := setupTestRouter(db, &stubModel{})

	first := postJSON(router, "/api/v1/resolve/barcode", map[string]string{"barcode": "111"})
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), string(domain.SourcePublicDatabase))

	second := postJSON(router, "/api/v1/resolve/barcode", map[string]string{"barcode": "111"})
	require.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), string(domain.SourceLocalCache))
}

func TestResolveBarcode_NotFound(t *testing.T) {
	router, _ := setupTestRouter(&stubDatabase{}, &stubModel{})

	w := postJSON(router, "/api/v1/resolve/barcode", map[string]string{"barcode": "0000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestResolveBarcode_MissingField(t *testing.T) {
	router, _ := setupTestRouter(&stubDatabase{}, &stubModel{})

	w := postJSON(router, "/api/v1/resolve/barcode", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_request")
}

func TestResolveText_ModelAnswer(t *testing.T) {
	model := &stubModel{
		configured: true,
		response:   `{"name": "KitKat", "brand": "Nestle", "energy_kcal": 518, "nutriscore": "e", "confidence": 0.95}`,
	}
	router, _ := setupTestRouter(&stubDatabase{}, model)

	w := postJSON(router, "/api/v1/resolve/text", map[string]string{"query": "KitKat"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []struct {
			Product    domain.ProductRecord `json:"product"`
			DataSource string               `json:"dataSource"`
			Confidence float64              `json:"confidence"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "KitKat", resp.Results[0].Product.Name)
	assert.Equal(t, string(domain.SourceModelGenerated), resp.Results[0].DataSource)
	assert.Equal(t, 0.95, resp.Results[0].Confidence)
}

func TestResolveImage_InvalidBase64(t *testing.T) {
	router, _ := setupTestRouter(&stubDatabase{}, &stubModel{configured: true})

	w := postJSON(router, "/api/v1/resolve/image", map[string]string{"image": "!!!not-base64!!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_request")
}

func TestResolveImage_ModelNotConfigured(t *testing.T) {
	router, _ := setupTestRouter(&stubDatabase{}, &stubModel{configured: false})

	w := postJSON(router, "/api/v1/resolve/image", map[string]string{"image": "aGVsbG8="})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "model_not_configured")
}

func TestGetAlternatives_EmptyForHealthyProduct(t *testing.T) {
	router, _ := setupTestRouter(&stubDatabase{}, &stubModel{configured: true})

	w := postJSON(router, "/api/v1/alternatives", map[string]interface{}{
		"name": "Plain Oats", "nutriScore": "A", "novaGroup": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Alternatives []domain.AlternativeSuggestion `json:"alternatives"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Alternatives)
}

func TestGetAlternatives_Suggestions(t *testing.T) {
	model := &stubModel{
		configured: true,
		response:   `[{"name": "Dark Chocolate 85%", "nutriscore": "b", "reason": "less sugar"}]`,
	}
	router, _ := setupTestRouter(&stubDatabase{}, model)

	w := postJSON(router, "/api/v1/alternatives", map[string]interface{}{
		"name": "Milk Chocolate", "nutriScore": "E", "novaGroup": 4,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Alternatives []domain.AlternativeSuggestion `json:"alternatives"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Alternatives, 1)
	assert.Equal(t, "Dark Chocolate 85%", resp.Alternatives[0].Name)
	assert.Equal(t, domain.GradeB, resp.Alternatives[0].NutriScore)
}

func TestCORSHeaders(t *testing.T) {
	router, _ := setupTestRouter(&stubDatabase{}, &stubModel{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/resolve/text", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
