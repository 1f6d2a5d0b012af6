package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/cache"
	"github.com/kailas-cloud/retriever/internal/config"
	"github.com/kailas-cloud/retriever/internal/db"
	dbRedis "github.com/kailas-cloud/retriever/internal/db/redis"
	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/index"
	logpkg "github.com/kailas-cloud/retriever/internal/logger"
	"github.com/kailas-cloud/retriever/internal/metrics"
	"github.com/kailas-cloud/retriever/internal/repository/embcache"
	"github.com/kailas-cloud/retriever/internal/repository/jobs"
	"github.com/kailas-cloud/retriever/internal/repository/provider"
	"github.com/kailas-cloud/retriever/internal/resilience"
	chiTransport "github.com/kailas-cloud/retriever/internal/transport/chi"
	openaiProvider "github.com/kailas-cloud/retriever/internal/transport/openai"
	analysisuc "github.com/kailas-cloud/retriever/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/retriever/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/retriever/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/retriever/internal/usecase/search"
	"github.com/kailas-cloud/retriever/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting retriever API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// The shared cache store is optional. Without it the engine runs on
	// the in-process cache tier alone.
	ctx := context.Background()
	var store db.Store
	if len(cfg.Database.Addrs) > 0 {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer redisStore.Close()

		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		store = redisStore
		logger.Info("Connected to cache store")
	} else {
		logger.Warn("No cache store configured, second cache tier disabled")
	}

	// Register engine metrics explicitly (no init())
	metrics.RegisterEngineMetrics()

	// One breaker per provider endpoint, transitions exported as metrics.
	registry := resilience.NewRegistry(resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		SuccessesToClose: cfg.Resilience.SuccessesToClose,
		OpenTimeout:      time.Duration(cfg.Resilience.OpenTimeoutSec) * time.Second,
	}, func(endpoint string, from, to resilience.State) {
		metrics.CircuitTransitionsTotal.WithLabelValues(endpoint, to.String()).Inc()
		metrics.CircuitState.WithLabelValues(endpoint).Set(float64(to))
		logger.Warn("Circuit breaker transition",
			zap.String("endpoint", endpoint),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})

	retryCfg := resilience.RetryConfig{
		MaxAttempts:  cfg.Resilience.MaxAttempts,
		InitialDelay: time.Duration(cfg.Resilience.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Resilience.MaxDelayMs) * time.Millisecond,
	}
	onRetry := resilience.WithRetryObserver(func(endpoint string) {
		metrics.RetryAttemptsTotal.WithLabelValues(endpoint).Inc()
	})
	embExec := resilience.NewExecutor(retryCfg, registry.Get("embeddings"), logger, onRetry)
	compExec := resilience.NewExecutor(retryCfg, registry.Get("completions"), logger, onRetry)

	// Build the embedder chain: OpenAI -> Resilient -> Cached
	client := openaiProvider.NewClient(&openaiProvider.Config{
		APIKey:          cfg.Provider.APIKey,
		BaseURL:         cfg.Provider.BaseURL,
		EmbeddingModel:  cfg.Provider.EmbeddingModel,
		CompletionModel: cfg.Provider.CompletionModel,
		Temperature:     cfg.Provider.Temperature,
		Logger:          logger,
	})
	resilientEmbedder := provider.NewEmbedder(client, embExec)
	completer := provider.NewCompleter(client, compExec)

	tiered, err := newTieredCache(store, cfg.Cache, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding cache", zap.Error(err))
	}
	embedder := embcache.New(resilientEmbedder, tiered, cfg.Provider.EmbeddingModel, logger)
	logger.Info("Embedder chain created",
		zap.String("embedding_model", cfg.Provider.EmbeddingModel),
		zap.String("completion_model", cfg.Provider.CompletionModel),
	)

	// In-memory corpus shared by ingestion and both search legs.
	corpus := index.New()

	searchSvc := searchuc.NewService(embedder, corpus, searchuc.Config{
		TopK:  cfg.Search.TopK,
		Alpha: cfg.Search.Alpha,
		RRFK:  cfg.Search.RRFK,
	}, logger)
	ingestSvc := ingestuc.NewService(embedder, corpus, ingestuc.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
	}, logger)

	analysisSvc, err := analysisuc.NewService(
		&hybridSearcher{svc: searchSvc},
		completer,
		jobs.New(),
		analysisuc.NewAuditDecider(),
		analysisuc.Config{
			Workers:  cfg.Analysis.Workers,
			MaxSteps: cfg.Analysis.MaxSteps,
			TopK:     cfg.Search.TopK,
		},
		metrics.AnalysisJobsTotal,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create analysis service", zap.Error(err))
	}
	defer analysisSvc.Close()

	// Health service. A missing cache store is not a health failure.
	var pinger healthuc.StorePinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, client)

	server := chiTransport.NewServer(searchSvc, ingestSvc, analysisSvc, tiered, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// newTieredCache wires the optional second tier. The nil check happens
// before the interface conversion so a missing store stays a true nil.
func newTieredCache(store db.Store, cfg config.CacheConfig, logger *zap.Logger) (*cache.Tiered, error) {
	cacheCfg := cache.Config{
		L1Capacity: cfg.L1Capacity,
		L1TTL:      time.Duration(cfg.L1TTLSec) * time.Second,
		L2TTL:      time.Duration(cfg.L2TTLSec) * time.Second,
		KeyPrefix:  cfg.KeyPrefix,
	}
	if store == nil {
		return cache.NewTiered(nil, cacheCfg, metrics.CacheTotal, logger)
	}
	return cache.NewTiered(store, cacheCfg, metrics.CacheTotal, logger)
}

// hybridSearcher adapts the search service to the analysis retrieval
// contract: every analysis step queries in hybrid mode.
type hybridSearcher struct {
	svc *searchuc.Service
}

func (h *hybridSearcher) Search(ctx context.Context, query string, topK int) ([]domain.ScoredDocument, error) {
	return h.svc.Search(ctx, searchuc.Request{Query: query, TopK: topK, Hybrid: true})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
