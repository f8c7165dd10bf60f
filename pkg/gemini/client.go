// Package gemini wraps the genai SDK for the two calls the engine makes:
// single-turn text generation and text embedding.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukex/flowforge/pkg/config"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned by calls made without an API key.
var ErrNotConfigured = errors.New("gemini API key is not configured")

// APIError is returned for any non-2xx provider response.
type APIError struct {
	StatusCode int
	RetryAfter string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Gemini API failed (%d): %s", e.StatusCode, e.Body)
}

// Retriable reports whether the provider asked to be retried (429 or 5xx).
func (e *APIError) Retriable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client calls Gemini through the genai SDK.
type Client struct {
	models         *genai.Models
	model          string
	embeddingModel string
	logger         *slog.Logger
}

// NewClient creates a client. A nil httpClient uses http.DefaultClient. Without
// an API key the client is returned unconfigured and every call fails with
// ErrNotConfigured.
func NewClient(ctx context.Context, cfg config.Gemini, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	def := config.Default().Gemini

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = def.BaseURL
	}

	c := &Client{
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logger.With("module", "gemini"),
	}

	if c.model == "" {
		c.model = def.Model
	}

	if c.embeddingModel == "" {
		c.embeddingModel = def.EmbeddingModel
	}

	if cfg.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: withResponseCapture(httpClient),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: "v1beta",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c.models = client.Models

	return c, nil
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.models != nil
}

// GenerateContent performs a single generateContent call and returns the text of
// the first part of the first candidate, or an empty string when there is none.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c.models == nil {
		return "", ErrNotConfigured
	}

	var response *genai.GenerateContentResponse

	err := c.call(ctx, c.model, func(ctx context.Context) error {
		var err error

		response, err = c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)

		return err
	})
	if err != nil {
		return "", err
	}

	return firstText(response), nil
}

// EmbedContent returns the embedding vector of text.
func (c *Client) EmbedContent(ctx context.Context, text string) ([]float32, error) {
	if c.models == nil {
		return nil, ErrNotConfigured
	}

	var response *genai.EmbedContentResponse

	err := c.call(ctx, c.embeddingModel, func(ctx context.Context) error {
		var err error

		response, err = c.models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), nil)

		return err
	})
	if err != nil {
		return nil, err
	}

	if response == nil || len(response.Embeddings) == 0 || response.Embeddings[0] == nil || len(response.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini embedding response has no values")
	}

	return response.Embeddings[0].Values, nil
}

// call runs fn with a response slot in its context and turns SDK failures
// into *APIError carrying the status and Retry-After of the failed response.
func (c *Client) call(ctx context.Context, model string, fn func(ctx context.Context) error) error {
	captured := &capturedResponse{}

	err := fn(context.WithValue(ctx, capturedResponseKey{}, captured))
	if err == nil {
		return nil
	}

	status, retryAfter := captured.get()

	sdkErr, ok := asSDKError(err)
	if !ok {
		if status >= http.StatusMultipleChoices {
			return &APIError{StatusCode: status, RetryAfter: retryAfter, Body: err.Error()}
		}

		return fmt.Errorf("gemini request failed: %w", err)
	}

	if sdkErr.Code != 0 {
		status = sdkErr.Code
	}

	c.logger.DebugContext(ctx, "gemini call failed", "model", model, "status", status)

	return &APIError{StatusCode: status, RetryAfter: retryAfter, Body: sdkErr.Message}
}

func asSDKError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}

	var pointer *genai.APIError
	if errors.As(err, &pointer) && pointer != nil {
		return *pointer, true
	}

	return genai.APIError{}, false
}

func firstText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}

	candidate := response.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	part := candidate.Content.Parts[0]
	if part == nil {
		return ""
	}

	return part.Text
}
