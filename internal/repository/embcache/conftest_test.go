package embcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

// mockCache implements the consumer interface for tests.
type mockCache struct {
	data    map[string][]float32
	gotKeys []string
	putKeys []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]float32)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]float32, bool) {
	m.gotKeys = append(m.gotKeys, key)
	vec, ok := m.data[key]
	return vec, ok
}

func (m *mockCache) Put(_ context.Context, key string, vec []float32) {
	m.putKeys = append(m.putKeys, key)
	m.data[key] = vec
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mockCache) {
	t.Helper()
	mc := newMockCache()
	ce := New(inner, mc, "test-model", zap.NewNop())
	return ce, mc
}
