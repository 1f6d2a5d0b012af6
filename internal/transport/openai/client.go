package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/metrics"
)

// Client is a model provider using the OpenAI-compatible API.
type Client struct {
	api             *openai.Client
	embeddingModel  openai.EmbeddingModel
	completionModel string
	temperature     float32
	logger          *zap.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey          string
	BaseURL         string
	EmbeddingModel  string
	CompletionModel string
	Temperature     float32
	Logger          *zap.Logger
}

// NewClient creates an OpenAI-compatible provider client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:             openai.NewClientWithConfig(clientCfg),
		embeddingModel:  openai.EmbeddingModel(cfg.EmbeddingModel),
		completionModel: cfg.CompletionModel,
		temperature:     cfg.Temperature,
		logger:          cfg.Logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with
// transport-level metrics.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.embeddingModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("embeddings", "error").Inc()
		return domain.EmbeddingResult{}, classifyErr("embeddings", err)
	}
	if len(resp.Data) == 0 {
		metrics.ProviderRequestsTotal.WithLabelValues("embeddings", "error").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrProviderTransient)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("embeddings", "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("embeddings").Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues("embeddings", "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ProviderTokensTotal.WithLabelValues("embeddings", "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// Complete implements domain.Completer via the chat completions API.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.completionModel,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("completions", "error").Inc()
		return "", classifyErr("completions", err)
	}
	if len(resp.Choices) == 0 {
		metrics.ProviderRequestsTotal.WithLabelValues("completions", "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrProviderTransient)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("completions", "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("completions").Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues("completions", "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ProviderTokensTotal.WithLabelValues("completions", "total").Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classifyErr maps a provider failure onto the transient/permanent
// taxonomy. Timeouts, rate limits and server errors retry; the rest of
// the 4xx range does not.
func classifyErr(operation string, err error) error {
	status, detail := extractStatus(err)

	wrap := domain.ErrProviderTransient
	if status >= 400 && status < 500 && !transientStatus(status) {
		wrap = domain.ErrProviderPermanent
	}

	if status > 0 {
		return fmt.Errorf("%s API error %d: %s: %w", operation, status, detail, wrap)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request timed out: %w: %s", operation, wrap, err)
	}
	return fmt.Errorf("%s request failed: %w: %s", operation, wrap, err)
}

func transientStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
}

// extractStatus pulls the HTTP status and a readable detail out of the
// client's error types.
func extractStatus(err error) (int, string) {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return reqErr.HTTPStatusCode, detail
		}
		return reqErr.HTTPStatusCode, string(reqErr.Body)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}
	return 0, ""
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
