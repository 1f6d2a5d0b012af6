package embcache

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/retriever/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, mc := newTestCachedEmbedder(t, inner)

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if len(mc.putKeys) != 1 {
		t.Fatalf("expected 1 cache put, got %d", len(mc.putKeys))
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	ce, mc := newTestCachedEmbedder(t, inner)

	mc.data[domain.Fingerprint("test-model", "test text")] = []float32{0.4, 0.5, 0.6}

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.calls != 0 {
		t.Fatalf("cache hit must not call inner, got %d calls", inner.calls)
	}
}

func TestEmbed_WhitespaceVariantsShareKey(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{1},
		TotalTokens: 4,
	}}
	ce, _ := newTestCachedEmbedder(t, inner)

	if _, err := ce.Embed(context.Background(), "loan  guarantee\tterms"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := ce.Embed(context.Background(), "loan guarantee terms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("whitespace variants must share a cache entry, got %d inner calls", inner.calls)
	}
	if res.TotalTokens != 0 {
		t.Fatalf("expected cache hit, TotalTokens=%d", res.TotalTokens)
	}
}

func TestEmbed_ModelScopesKey(t *testing.T) {
	a := domain.Fingerprint("model-a", "same text")
	b := domain.Fingerprint("model-b", "same text")
	if a == b {
		t.Fatal("different models must not share cache keys")
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, mc := newTestCachedEmbedder(t, inner)

	_, err := ce.Embed(context.Background(), "test text")
	if err == nil {
		t.Fatal("expected error from inner embedder")
	}
	if len(mc.putKeys) != 0 {
		t.Fatal("failed embeds must not be cached")
	}
}
