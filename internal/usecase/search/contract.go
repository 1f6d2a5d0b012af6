package search

import (
	"context"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Corpus is the indexed document store consumed by search.
type Corpus interface {
	SearchKeyword(query string, k int) []domain.Hit
	SearchSemantic(vec []float32, k int) []domain.Hit
	Content(id string) (string, bool)
	Size() int
}
