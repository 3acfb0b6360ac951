package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodlens/backend/internal/domain"
	"github.com/foodlens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver     *usecase.ResolutionService
	alternatives *usecase.AlternativeService
	cache        domain.ScanCache
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	resolver *usecase.ResolutionService,
	alternatives *usecase.AlternativeService,
	cache domain.ScanCache,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		resolver:     resolver,
		alternatives: alternatives,
		cache:        cache,
		logger:       logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "foodlens-backend",
		"version": "1.0.0",
	})
}

type barcodeRequest struct {
	Barcode string `json:"barcode" binding:"required"`
}

type textRequest struct {
	Query string `json:"query" binding:"required"`
}

type imageRequest struct {
	Image    string `json:"image" binding:"required"` // base64-encoded bytes
	MimeType string `json:"mimeType"`
	ImageRef string `json:"imageRef"` // client-side reference to the captured photo
}

// ResolveBarcode handles barcode resolution requests
func (h *Handler) ResolveBarcode(c *gin.Context) {
	var req barcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"outcome": "invalid_request", "error": err.Error()})
		return
	}

	resolved, err := h.resolver.ResolveBarcode(c.Request.Context(), req.Barcode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.storeScan(c, *resolved)
	c.JSON(http.StatusOK, resolved)
}

// ResolveText handles free-text resolution requests
func (h *Handler) ResolveText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"outcome": "invalid_request", "error": err.Error()})
		return
	}

	results, err := h.resolver.ResolveText(c.Request.Context(), req.Query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ResolveImage handles photo resolution requests
func (h *Handler) ResolveImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"outcome": "invalid_request", "error": err.Error()})
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"outcome": "invalid_request", "error": "image must be base64-encoded"})
		return
	}

	resolved, err := h.resolver.ResolveImage(c.Request.Context(), image, req.MimeType, req.ImageRef)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.storeScan(c, *resolved)
	c.JSON(http.StatusOK, resolved)
}

// GetAlternatives handles healthier-alternative requests
func (h *Handler) GetAlternatives(c *gin.Context) {
	var product domain.ProductRecord
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"outcome": "invalid_request", "error": err.Error()})
		return
	}
	// Clients echo records back; tolerate non-canonical grade casing.
	product.NutriScore = domain.NormalizeGrade(string(product.NutriScore))
	product.EcoScore = domain.NormalizeGrade(string(product.EcoScore))

	suggestions, err := h.alternatives.Suggest(c.Request.Context(), product)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if suggestions == nil {
		suggestions = []domain.AlternativeSuggestion{}
	}

	c.JSON(http.StatusOK, gin.H{"alternatives": suggestions})
}

// storeScan writes a successful resolution back into the scan cache. The
// engine itself never mutates the cache; that responsibility sits here.
func (h *Handler) storeScan(c *gin.Context, resolved domain.ResolvedProduct) {
	if resolved.Source == domain.SourceLocalCache {
		return
	}
	if err := h.cache.Put(c.Request.Context(), resolved.Product); err != nil {
		h.logger.Warn("failed to cache scan",
			zap.String("barcode", resolved.Product.Barcode), zap.Error(err))
	}
}

// respondError maps engine outcomes onto HTTP statuses. Not-found and
// not-recognized are explicit outcomes, not server errors.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"outcome": "invalid_request"})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"outcome": "not_found"})
	case errors.Is(err, domain.ErrNotRecognized):
		c.JSON(http.StatusNotFound, gin.H{"outcome": "not_recognized"})
	case errors.Is(err, domain.ErrModelNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"outcome": "model_not_configured"})
	default:
		h.logger.Error("resolution failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"outcome": "source_unavailable"})
	}
}
