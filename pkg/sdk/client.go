package sdk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/cache"
	"github.com/kailas-cloud/retriever/internal/db"
	dbRedis "github.com/kailas-cloud/retriever/internal/db/redis"
	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/index"
	"github.com/kailas-cloud/retriever/internal/repository/embcache"
	"github.com/kailas-cloud/retriever/internal/repository/jobs"
	"github.com/kailas-cloud/retriever/internal/repository/provider"
	"github.com/kailas-cloud/retriever/internal/resilience"
	openaiProvider "github.com/kailas-cloud/retriever/internal/transport/openai"
	analysisuc "github.com/kailas-cloud/retriever/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/retriever/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/retriever/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/retriever/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces so tests can substitute the wired services.
type searchUseCase interface {
	Search(ctx context.Context, req searchuc.Request) ([]domain.ScoredDocument, error)
}

type ingestUseCase interface {
	Ingest(ctx context.Context, text string) (ingestuc.Result, error)
}

type analysisUseCase interface {
	Submit(ctx context.Context) (domain.AnalysisJob, error)
	Get(id string) (domain.AnalysisJob, error)
	Cancel(id string) error
	Close()
}

type cacheUseCase interface {
	Stats() cache.Stats
	Clear(ctx context.Context) error
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the retriever SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	ingestSvc ingestUseCase
	analysis  analysisUseCase
	cacheSvc  cacheUseCase
	healthSvc healthUseCase
}

// New creates a retriever Client. A model provider API key is required;
// the shared cache store is optional.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.apiKey == "" {
		return nil, errors.New("retriever: provider API key required (use WithOpenAI)")
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
			DB:       cfg.db,
		})
		if err != nil {
			return nil, fmt.Errorf("retriever: create cache store: %w", err)
		}
		if err := redisStore.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			redisStore.Close()
			return nil, fmt.Errorf("retriever: cache store not ready: %w", err)
		}
		store = redisStore
	}

	c, err := wireClient(store, cfg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger

	registry := resilience.NewRegistry(resilience.BreakerConfig{}, nil)
	retryCfg := resilience.RetryConfig{}
	embExec := resilience.NewExecutor(retryCfg, registry.Get("embeddings"), logger)
	compExec := resilience.NewExecutor(retryCfg, registry.Get("completions"), logger)

	providerClient := openaiProvider.NewClient(&openaiProvider.Config{
		APIKey:          cfg.apiKey,
		BaseURL:         cfg.baseURL,
		EmbeddingModel:  cfg.embeddingModel,
		CompletionModel: cfg.completionModel,
		Temperature:     cfg.temperature,
		Logger:          logger,
	})
	resilientEmbedder := provider.NewEmbedder(providerClient, embExec)
	completer := provider.NewCompleter(providerClient, compExec)

	cacheCfg := cache.Config{
		L1Capacity: cfg.l1Capacity,
		L1TTL:      cfg.l1TTL,
		L2TTL:      cfg.l2TTL,
	}
	var tiered *cache.Tiered
	var err error
	if store != nil {
		tiered, err = cache.NewTiered(store, cacheCfg, nil, logger)
	} else {
		tiered, err = cache.NewTiered(nil, cacheCfg, nil, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("retriever: create embedding cache: %w", err)
	}

	model := cfg.embeddingModel
	if model == "" {
		model = "text-embedding-3-small"
	}
	embedder := embcache.New(resilientEmbedder, tiered, model, logger)

	corpus := index.New()
	searchSvc := searchuc.NewService(embedder, corpus, searchuc.Config{
		TopK:  cfg.topK,
		Alpha: cfg.alpha,
	}, logger)
	ingestSvc := ingestuc.NewService(embedder, corpus, ingestuc.Config{
		ChunkSize:    cfg.chunkSize,
		ChunkOverlap: cfg.chunkOverlap,
	}, logger)

	analysisSvc, err := analysisuc.NewService(
		&hybridSearcher{svc: searchSvc},
		completer,
		jobs.New(),
		analysisuc.NewAuditDecider(),
		analysisuc.Config{
			Workers:  cfg.workers,
			MaxSteps: cfg.maxSteps,
			TopK:     cfg.topK,
		},
		nil,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("retriever: create analysis service: %w", err)
	}

	var pinger healthuc.StorePinger
	if store != nil {
		pinger = store
	}

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		ingestSvc: ingestSvc,
		analysis:  analysisSvc,
		cacheSvc:  tiered,
		healthSvc: healthuc.New(pinger, providerClient),
	}, nil
}

// Close releases the worker pool and the cache store connection.
func (c *Client) Close() {
	c.analysis.Close()
	if c.store != nil {
		c.store.Close()
	}
}

// Ingest chunks, embeds and indexes a document.
func (c *Client) Ingest(ctx context.Context, text string) (IngestResult, error) {
	res, err := c.ingestSvc.Ingest(ctx, text)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	return IngestResult{Chunks: res.Chunks, TokensUsed: res.TokensUsed}, nil
}

// Search retrieves the most relevant indexed chunks for the query.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	docs, err := c.searchSvc.Search(ctx, searchuc.Request{
		Query:  query,
		TopK:   opts.TopK,
		Hybrid: !opts.SemanticOnly,
		Alpha:  opts.Alpha,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]SearchResult, len(docs))
	for i, d := range docs {
		results[i] = SearchResult{
			ID:            d.ID,
			Content:       d.Content,
			SemanticScore: d.SemanticScore,
			KeywordScore:  d.KeywordScore,
			Score:         d.FusedScore,
			Rank:          d.Rank,
		}
	}
	return results, nil
}

// Analyze submits an asynchronous analysis job over the indexed corpus.
func (c *Client) Analyze(ctx context.Context) (AnalysisJob, error) {
	job, err := c.analysis.Submit(ctx)
	if err != nil {
		return AnalysisJob{}, fmt.Errorf("analyze: %w", err)
	}
	return jobFromDomain(job), nil
}

// GetAnalysis returns a snapshot of the job.
func (c *Client) GetAnalysis(id string) (AnalysisJob, error) {
	job, err := c.analysis.Get(id)
	if err != nil {
		return AnalysisJob{}, fmt.Errorf("get analysis: %w", err)
	}
	return jobFromDomain(job), nil
}

// CancelAnalysis aborts a pending or running job.
func (c *Client) CancelAnalysis(id string) error {
	if err := c.analysis.Cancel(id); err != nil {
		return fmt.Errorf("cancel analysis: %w", err)
	}
	return nil
}

// WaitForAnalysis polls the job until it reaches a terminal state or
// the timeout expires.
func (c *Client) WaitForAnalysis(ctx context.Context, id string, timeout time.Duration) (AnalysisJob, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := c.GetAnalysis(id)
		if err != nil {
			return AnalysisJob{}, err
		}
		if job.Done() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, fmt.Errorf("wait for analysis %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// CacheStats returns an embedding cache effectiveness snapshot.
func (c *Client) CacheStats() CacheStats {
	s := c.cacheSvc.Stats()
	return CacheStats{
		L1Hits:    s.L1Hits,
		L1Misses:  s.L1Misses,
		L1Size:    s.L1Size,
		L1HitRate: s.L1HitRate,
	}
}

// ClearCache drops both embedding cache tiers.
func (c *Client) ClearCache(ctx context.Context) error {
	if err := c.cacheSvc.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Health checks the health of all wired components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

func jobFromDomain(job domain.AnalysisJob) AnalysisJob {
	out := AnalysisJob{
		ID:          job.ID,
		Status:      JobStatus(job.Status),
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		ErrorDetail: job.ErrorDetail,
	}
	if job.Result != nil {
		out.Result = &AnalysisReport{
			GuaranteeType:   job.Result.GuaranteeType,
			GuaranteeObject: job.Result.GuaranteeObject,
			InterestRate:    job.Result.InterestRate,
			TermMonths:      job.Result.TermMonths,
			PrincipalAmount: job.Result.PrincipalAmount,
			LegalRisk:       RiskLevel(job.Result.LegalRisk),
			ComplianceCheck: job.Result.ComplianceCheck,
			Notes:           job.Result.Notes,
		}
	}
	if job.Statistics != nil {
		out.Statistics = &AnalysisStats{
			Steps:           job.Statistics.Steps,
			RetrievalCalls:  job.Statistics.RetrievalCalls,
			DurationSeconds: job.Statistics.DurationSeconds,
		}
	}
	return out
}

// hybridSearcher adapts the search service to the analysis retrieval
// contract: every analysis step queries in hybrid mode.
type hybridSearcher struct {
	svc *searchuc.Service
}

func (h *hybridSearcher) Search(ctx context.Context, query string, topK int) ([]domain.ScoredDocument, error) {
	return h.svc.Search(ctx, searchuc.Request{Query: query, TopK: topK, Hybrid: true})
}
