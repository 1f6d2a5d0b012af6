// Package chi exposes the retrieval engine over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/cache"
	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/metrics"
	healthuc "github.com/kailas-cloud/retriever/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/retriever/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/retriever/internal/usecase/search"
)

const maxTopK = 100

// ErrorCode identifies an API error class for clients.
type ErrorCode string

const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeJobNotFound        ErrorCode = "job_not_found"
	CodeJobConflict        ErrorCode = "job_conflict"
	CodeNoDocumentsIndexed ErrorCode = "no_documents_indexed"
	CodeCircuitOpen        ErrorCode = "circuit_open"
	CodeProviderError      ErrorCode = "provider_error"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchService runs retrieval queries.
type SearchService interface {
	Search(ctx context.Context, req searchuc.Request) ([]domain.ScoredDocument, error)
}

// IngestService chunks and indexes documents.
type IngestService interface {
	IngestChunked(ctx context.Context, text string, size, overlap int) (ingestuc.Result, error)
}

// AnalysisService manages asynchronous analysis jobs.
type AnalysisService interface {
	Submit(ctx context.Context) (domain.AnalysisJob, error)
	Get(id string) (domain.AnalysisJob, error)
	Cancel(id string) error
}

// CacheControl exposes embedding cache introspection.
type CacheControl interface {
	Stats() cache.Stats
	Clear(ctx context.Context) error
}

// HealthService aggregates component health checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the retrieval API.
type Server struct {
	search        SearchService
	ingest        IngestService
	analysis      AnalysisService
	cache         CacheControl
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search SearchService,
	ingest IngestService,
	analysis AnalysisService,
	cacheCtl CacheControl,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		ingest:   ingest,
		analysis: analysis,
		cache:    cacheCtl,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, CodeJobNotFound),
		sentinelHandler(domain.ErrJobCancelled, http.StatusConflict, CodeJobConflict),
		sentinelHandler(domain.ErrNoDocumentsIndexed, http.StatusBadRequest, CodeNoDocumentsIndexed),
		sentinelHandler(domain.ErrCircuitOpen, http.StatusServiceUnavailable, CodeCircuitOpen),
		sentinelHandler(domain.ErrProviderTransient, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrProviderPermanent, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", s.IngestDocument)
		r.Post("/search", s.SearchDocuments)
		r.Post("/analyze", s.SubmitAnalysis)
		r.Get("/analyze/{id}", s.GetAnalysis)
		r.Delete("/analyze/{id}", s.CancelAnalysis)
		r.Get("/cache/stats", s.CacheStats)
		r.Delete("/cache", s.ClearCache)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// IngestRequest is the body of POST /api/v1/ingest. Omitted chunking
// fields fall back to the configured defaults.
type IngestRequest struct {
	Text         string `json:"text"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap *int   `json:"chunk_overlap,omitempty"`
}

// IngestDocument handles POST /api/v1/ingest.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text is required")
		return
	}
	if req.ChunkSize < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "chunk_size must be positive")
		return
	}
	overlap := -1
	if req.ChunkOverlap != nil {
		if *req.ChunkOverlap < 0 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "chunk_overlap must not be negative")
			return
		}
		overlap = *req.ChunkOverlap
	}

	result, err := s.ingest.IngestChunked(r.Context(), req.Text, req.ChunkSize, overlap)
	if err != nil {
		if errors.Is(err, ingestuc.ErrEmptyDocument) || errors.Is(err, ingestuc.ErrBadChunking) {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query  string   `json:"query"`
	TopK   *int     `json:"top_k,omitempty"`
	Hybrid *bool    `json:"hybrid,omitempty"`
	Alpha  *float64 `json:"alpha,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Items []domain.ScoredDocument `json:"items"`
	Total int                     `json:"total"`
}

// SearchDocuments handles POST /api/v1/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ucReq, err := searchRequestFromDTO(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	docs, err := s.search.Search(r.Context(), ucReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	mode := "semantic"
	if ucReq.Hybrid {
		mode = "hybrid"
	}
	metrics.SearchRequestsTotal.WithLabelValues(mode).Inc()

	if docs == nil {
		docs = []domain.ScoredDocument{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Items: docs, Total: len(docs)})
}

// SubmitAnalysis handles POST /api/v1/analyze.
func (s *Server) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	job, err := s.analysis.Submit(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// GetAnalysis handles GET /api/v1/analyze/{id}.
func (s *Server) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.analysis.Get(id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// CancelAnalysis handles DELETE /api/v1/analyze/{id}.
func (s *Server) CancelAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.analysis.Cancel(id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CacheStats handles GET /api/v1/cache/stats.
func (s *Server) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

// ClearCache handles DELETE /api/v1/cache.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func searchRequestFromDTO(req SearchRequest) (searchuc.Request, error) {
	if req.Query == "" {
		return searchuc.Request{}, errors.New("query is required")
	}

	topK := 0
	if req.TopK != nil {
		if *req.TopK <= 0 || *req.TopK > maxTopK {
			return searchuc.Request{}, errors.New("top_k must be between 1 and 100")
		}
		topK = *req.TopK
	}

	if req.Alpha != nil && (*req.Alpha < 0 || *req.Alpha > 1) {
		return searchuc.Request{}, errors.New("alpha must be between 0 and 1")
	}

	// Hybrid fusion is the default; semantic-only is opt-in.
	hybrid := true
	if req.Hybrid != nil {
		hybrid = *req.Hybrid
	}

	return searchuc.Request{
		Query:  req.Query,
		TopK:   topK,
		Hybrid: hybrid,
		Alpha:  req.Alpha,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrJobNotFound,
		domain.ErrJobCancelled,
		domain.ErrNoDocumentsIndexed,
		domain.ErrCircuitOpen,
		domain.ErrProviderTransient,
		domain.ErrProviderPermanent,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
