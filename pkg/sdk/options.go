package sdk

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	apiKey          string
	baseURL         string
	embeddingModel  string
	completionModel string
	temperature     float32

	topK         int
	alpha        float64
	chunkSize    int
	chunkOverlap int
	workers      int
	maxSteps     int

	l1Capacity int
	l1TTL      time.Duration
	l2TTL      time.Duration

	logger *zap.Logger
}

// WithOpenAI sets the model provider API key. Required.
func WithOpenAI(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
	})
}

// WithBaseURL points the provider client at an OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithModels overrides the embedding and completion model names.
func WithModels(embedding, completion string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = embedding
		c.completionModel = completion
	})
}

// WithTemperature sets the completion sampling temperature.
func WithTemperature(t float32) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = t
	})
}

// WithRedis configures the shared second cache tier. Without it the
// client runs on the in-process cache tier alone.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithSearchDefaults sets the default result count and fusion weight.
func WithSearchDefaults(topK int, alpha float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = topK
		c.alpha = alpha
	})
}

// WithChunking sets the ingestion window size and overlap in words.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithAnalysisWorkers bounds concurrent analysis jobs.
func WithAnalysisWorkers(workers int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = workers
	})
}

// WithCacheSizing tunes the in-process cache tier and the TTLs.
func WithCacheSizing(l1Capacity int, l1TTL, l2TTL time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.l1Capacity = l1Capacity
		c.l1TTL = l1TTL
		c.l2TTL = l2TTL
	})
}

// WithLogger enables structured logging for client operations.
// Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
