// Package provider decorates model provider clients with retry and
// circuit breaker discipline.
package provider

import (
	"context"

	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/resilience"
)

// ResilientEmbedder runs every embedding call through a resilience
// executor scoped to the embeddings endpoint.
type ResilientEmbedder struct {
	inner domain.Embedder
	exec  *resilience.Executor
}

// NewEmbedder wraps inner with the given executor.
func NewEmbedder(inner domain.Embedder, exec *resilience.Executor) *ResilientEmbedder {
	return &ResilientEmbedder{inner: inner, exec: exec}
}

// Embed delegates to the inner embedder under retry policy.
func (r *ResilientEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var result domain.EmbeddingResult
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = r.inner.Embed(ctx, text)
		return opErr
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return result, nil
}

// ResilientCompleter runs every completion call through a resilience
// executor scoped to the completions endpoint.
type ResilientCompleter struct {
	inner domain.Completer
	exec  *resilience.Executor
}

// NewCompleter wraps inner with the given executor.
func NewCompleter(inner domain.Completer, exec *resilience.Executor) *ResilientCompleter {
	return &ResilientCompleter{inner: inner, exec: exec}
}

// Complete delegates to the inner completer under retry policy.
func (r *ResilientCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	var result string
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = r.inner.Complete(ctx, prompt)
		return opErr
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
