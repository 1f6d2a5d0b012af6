package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EmbeddingResult holds a vector and the token usage that produced it.
// A cache hit reports zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Completer generates a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HealthChecker is implemented by providers that can verify availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Fingerprint derives the cache key for a text under a given embedding
// model. The text is whitespace-normalized first, so identical content
// always maps to the same key; distinct models never collide.
func Fingerprint(model, text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.Sum256([]byte(model + ":" + normalized))
	return hex.EncodeToString(h[:])
}
