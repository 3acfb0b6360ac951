package openrouter

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/foodlens/backend/config"
	"github.com/foodlens/backend/internal/domain"
)

// Client invokes the generative model through the OpenRouter chat
// completions API. It tries an ordered list of model identifiers:
// rate-limiting (429) and model-not-found (404) responses are non-fatal
// and advance to the next model; any other transport or status error
// aborts the chain.
type Client struct {
	http      *resty.Client
	models    []string
	maxTokens int
	logger    *zap.Logger
}

// NewClient creates a model gateway. When the API key is empty the client
// reports itself unconfigured and every call fails fast without a network
// round-trip.
func NewClient(cfg config.ModelConfig, models []string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	} else {
		httpClient = nil
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	return &Client{
		http:      httpClient,
		models:    models,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Configured reports whether the gateway has credentials.
func (c *Client) Configured() bool {
	return c.http != nil
}

type message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string, or []contentPart for vision
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateText asks for a completion of a text-only prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, []message{{Role: "user", Content: prompt}})
}

// GenerateVision asks for a completion of a prompt with inline image bytes.
func (c *Client) GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	return c.generate(ctx, []message{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		},
	}})
}

// generate walks the model fallback list and returns the first non-empty
// text payload.
func (c *Client) generate(ctx context.Context, messages []message) (string, error) {
	if c.http == nil {
		return "", domain.ErrModelNotConfigured
	}

	for _, model := range c.models {
		var parsed chatResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(chatRequest{
				Model:       model,
				Messages:    messages,
				MaxTokens:   c.maxTokens,
				Temperature: 0.2,
			}).
			SetResult(&parsed).
			Post("/chat/completions")
		if err != nil {
			// Transport-level failure is fatal; the next model would hit
			// the same network.
			return "", fmt.Errorf("model request failed: %w", err)
		}

		switch resp.StatusCode() {
		case http.StatusOK:
			// fall through to content check
		case http.StatusTooManyRequests, http.StatusNotFound:
			c.logger.Warn("model unavailable, trying next",
				zap.String("model", model),
				zap.Int("status", resp.StatusCode()),
			)
			continue
		default:
			return "", fmt.Errorf("model request failed: status %d: %s", resp.StatusCode(), resp.String())
		}

		if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
			c.logger.Warn("model returned empty content, trying next",
				zap.String("model", model))
			continue
		}

		c.logger.Debug("model answered",
			zap.String("model", model),
			zap.Int("content_length", len(parsed.Choices[0].Message.Content)),
		)
		return parsed.Choices[0].Message.Content, nil
	}

	return "", domain.ErrModelsExhausted
}
