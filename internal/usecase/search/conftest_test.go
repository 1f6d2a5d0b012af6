package search

import (
	"context"

	"github.com/kailas-cloud/retriever/internal/domain"
)

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

type mockCorpus struct {
	semantic []domain.Hit
	keyword  []domain.Hit
	content  map[string]string
	size     int

	keywordCalls int
}

func (m *mockCorpus) SearchKeyword(_ string, _ int) []domain.Hit {
	m.keywordCalls++
	return m.keyword
}

func (m *mockCorpus) SearchSemantic(_ []float32, _ int) []domain.Hit {
	return m.semantic
}

func (m *mockCorpus) Content(id string) (string, bool) {
	c, ok := m.content[id]
	return c, ok
}

func (m *mockCorpus) Size() int { return m.size }
