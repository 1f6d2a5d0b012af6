// Package search implements hybrid retrieval over the document corpus.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// Config holds search defaults.
type Config struct {
	TopK  int     // default result count (default 5)
	Alpha float64 // semantic weight in fusion (default 0.5)
	RRFK  int     // rank fusion dampening constant (default 60)
}

// ApplyDefaults fills zero fields with default search settings.
func (c *Config) ApplyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = 0.5
	}
	if c.RRFK <= 0 {
		c.RRFK = defaultRRFK
	}
}

// Request is one search invocation.
type Request struct {
	Query  string
	TopK   int      // 0 means the configured default
	Hybrid bool     // fuse keyword and semantic rankings
	Alpha  *float64 // nil means the configured default
}

// Service runs hybrid and semantic-only searches.
type Service struct {
	embedder Embedder
	corpus   Corpus
	cfg      Config
	logger   *zap.Logger
}

// NewService creates a search service.
func NewService(embedder Embedder, corpus Corpus, cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		embedder: embedder,
		corpus:   corpus,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search retrieves the most relevant documents for the query. Hybrid
// mode runs the semantic and keyword legs concurrently and fuses their
// rankings; otherwise only the semantic ranking is returned.
func (s *Service) Search(ctx context.Context, req Request) ([]domain.ScoredDocument, error) {
	if s.corpus.Size() == 0 {
		return nil, domain.ErrNoDocumentsIndexed
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	alpha := s.cfg.Alpha
	if req.Alpha != nil && *req.Alpha >= 0 && *req.Alpha <= 1 {
		alpha = *req.Alpha
	}

	var semantic, keyword []domain.Hit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.embedder.Embed(gctx, req.Query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		semantic = s.corpus.SearchSemantic(result.Embedding, topK)
		return nil
	})
	if req.Hybrid {
		g.Go(func() error {
			keyword = s.corpus.SearchKeyword(req.Query, topK)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []domain.ScoredDocument
	if req.Hybrid {
		docs = fuseRRF(semantic, keyword, alpha, s.cfg.RRFK, topK)
	} else {
		docs = make([]domain.ScoredDocument, len(semantic))
		for i, h := range semantic {
			docs[i] = domain.ScoredDocument{
				ID:            h.ID,
				SemanticScore: h.Score,
				FusedScore:    h.Score,
				Rank:          i + 1,
			}
		}
	}

	for i := range docs {
		if content, ok := s.corpus.Content(docs[i].ID); ok {
			docs[i].Content = content
		}
	}

	s.logger.Debug("Search completed",
		zap.String("query", req.Query),
		zap.Bool("hybrid", req.Hybrid),
		zap.Int("results", len(docs)),
	)
	return docs, nil
}
