// Package ingest splits documents into chunks and indexes them.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// Validation errors surfaced to the transport layer.
var (
	// ErrEmptyDocument signals a document with no indexable words.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrBadChunking signals an overlap not smaller than the window size.
	ErrBadChunking = errors.New("chunk overlap must be smaller than chunk size")
)

// Embedder vectorizes chunk text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Indexer receives embedded chunks.
type Indexer interface {
	Add(chunk domain.Chunk, vec []float32)
}

// Config holds chunking settings.
type Config struct {
	ChunkSize    int // words per chunk (default 500)
	ChunkOverlap int // words shared between adjacent chunks (default 50)
}

// ApplyDefaults fills zero fields with default chunking settings.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 500
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 50
	}
}

// Result summarizes one ingestion.
type Result struct {
	Chunks     int `json:"chunks"`
	TokensUsed int `json:"tokens_used"`
}

// Service chunks, embeds and indexes documents.
type Service struct {
	embedder Embedder
	index    Indexer
	cfg      Config
	logger   *zap.Logger
}

// NewService creates an ingestion service.
func NewService(embedder Embedder, index Indexer, cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ingest splits the document into overlapping word windows using the
// configured chunking, embeds each chunk and adds it to the index.
// Chunks embedded before a failure stay indexed.
func (s *Service) Ingest(ctx context.Context, text string) (Result, error) {
	return s.IngestChunked(ctx, text, 0, -1)
}

// IngestChunked ingests with a per-document window size and overlap.
// A non-positive size and a negative overlap fall back to the
// configured chunking; overlap zero means no shared words.
func (s *Service) IngestChunked(ctx context.Context, text string, size, overlap int) (Result, error) {
	if size <= 0 {
		size = s.cfg.ChunkSize
	}
	if overlap < 0 {
		overlap = s.cfg.ChunkOverlap
	}
	if overlap >= size {
		return Result{}, fmt.Errorf("%w: got %d >= %d", ErrBadChunking, overlap, size)
	}

	chunks := splitText(text, size, overlap)
	if len(chunks) == 0 {
		return Result{}, ErrEmptyDocument
	}

	var tokens int
	for i, chunkText := range chunks {
		res, err := s.embedder.Embed(ctx, chunkText)
		if err != nil {
			return Result{Chunks: i, TokensUsed: tokens}, fmt.Errorf("embed chunk %d/%d: %w", i+1, len(chunks), err)
		}
		tokens += res.TotalTokens
		s.index.Add(domain.Chunk{ID: uuid.NewString(), Text: chunkText}, res.Embedding)
	}

	s.logger.Info("Document ingested",
		zap.Int("chunks", len(chunks)),
		zap.Int("tokens", tokens),
	)
	return Result{Chunks: len(chunks), TokensUsed: tokens}, nil
}

// splitText windows the document into chunks of size words where
// adjacent chunks share overlap words.
func splitText(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
