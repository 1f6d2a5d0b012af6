package embcache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// vectorCache is the consumer interface for the tiered cache (ISP).
type vectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Put(ctx context.Context, key string, vec []float32)
}

// CachedEmbedder caches embedding vectors keyed by a fingerprint of
// the model and normalized input text.
type CachedEmbedder struct {
	inner  domain.Embedder
	cache  vectorCache
	model  string
	logger *zap.Logger
}

// New creates a caching decorator around inner. model participates in
// the cache key so switching models never serves stale vectors.
func New(inner domain.Embedder, cache vectorCache, model string, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		model:  model,
		logger: logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := domain.Fingerprint(c.model, text)

	if vec, ok := c.cache.Get(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.cache.Put(ctx, key, result.Embedding)
	return result, nil
}
