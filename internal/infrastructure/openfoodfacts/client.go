package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/foodlens/backend/config"
	"github.com/foodlens/backend/internal/domain"
)

// searchPageSize caps how many candidates a text search fetches; callers
// re-rank locally anyway.
const searchPageSize = 10

// Client handles communication with the Open Food Facts API. Requests are
// single-attempt: caller-level fallback handles failure, so there is no
// retry loop here.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new Open Food Facts client.
func NewClient(cfg config.DatabaseConfig, logger *zap.Logger) *Client {
	// Open Food Facts asks for at most 100 product requests per minute.
	limiter := rate.NewLimiter(rate.Limit(100.0/60.0), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		rateLimiter: limiter,
		logger:      logger,
	}
}

// productResponse is the fetch-by-barcode envelope.
type productResponse struct {
	Status  int         `json:"status"` // 1 = found, 0 = not found
	Code    string      `json:"code"`
	Product *offProduct `json:"product"`
}

// searchResponse is the text-search envelope.
type searchResponse struct {
	Count    int          `json:"count"`
	Products []offProduct `json:"products"`
}

// FetchByBarcode returns the record for an exact barcode, or
// ErrProductNotFound when the database has no entry for it.
func (c *Client) FetchByBarcode(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))

	body, status, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrProductNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrDatabaseUnavailable, status)
	}

	var resp productResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Status != 1 || resp.Product == nil {
		return nil, domain.ErrProductNotFound
	}

	record := MapProduct(resp.Product, barcode)
	c.logger.Debug("barcode fetched",
		zap.String("barcode", barcode), zap.String("name", record.Name))
	return &record, nil
}

// SearchByText returns the database's ranked candidates for a free-text
// query. An empty result set is ErrProductNotFound, not an error.
func (c *Client) SearchByText(ctx context.Context, query string) ([]domain.ProductRecord, error) {
	params := url.Values{}
	params.Add("search_terms", query)
	params.Add("search_simple", "1")
	params.Add("action", "process")
	params.Add("json", "1")
	params.Add("page_size", fmt.Sprintf("%d", searchPageSize))

	reqURL := fmt.Sprintf("%s/cgi/search.pl?%s", c.baseURL, params.Encode())

	body, status, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrDatabaseUnavailable, status)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Products) == 0 {
		return nil, domain.ErrProductNotFound
	}

	records := make([]domain.ProductRecord, 0, len(resp.Products))
	for i := range resp.Products {
		records = append(records, MapProduct(&resp.Products[i], resp.Products[i].Code))
	}

	c.logger.Debug("text search completed",
		zap.String("query", query), zap.Int("results", len(records)))
	return records, nil
}

// doRequest executes a rate-limited GET and returns the body and status.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrDatabaseUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}
