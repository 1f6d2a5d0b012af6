// Package analysis runs asynchronous contract audits over the indexed
// corpus: a fixed retrieval plan gathers passages, a completion turns
// them into a validated structured report.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// Config holds analysis worker settings.
type Config struct {
	Workers  int // concurrent analysis jobs (default 4)
	MaxSteps int // retrieval step ceiling per job (default 10)
	TopK     int // passages fetched per retrieval step (default 5)
}

// ApplyDefaults fills zero fields with default worker settings.
func (c *Config) ApplyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 10
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
}

// Service accepts analysis jobs and runs them on a bounded worker pool.
type Service struct {
	searcher  Searcher
	completer Completer
	store     JobStore
	decider   Decider
	pool      *ants.Pool
	cfg       Config
	jobsTotal *prometheus.CounterVec
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService creates the analysis service and its worker pool.
// jobsTotal is a counter vec with label "status", passed explicitly.
func NewService(
	searcher Searcher,
	completer Completer,
	store JobStore,
	decider Decider,
	cfg Config,
	jobsTotal *prometheus.CounterVec,
	logger *zap.Logger,
) (*Service, error) {
	cfg.ApplyDefaults()
	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{
		searcher:  searcher,
		completer: completer,
		store:     store,
		decider:   decider,
		pool:      pool,
		cfg:       cfg,
		jobsTotal: jobsTotal,
		logger:    logger,
		now:       time.Now,
		cancels:   make(map[string]context.CancelFunc),
	}, nil
}

// Submit registers a new job and schedules it on the pool. The run is
// detached from the caller's context so the job survives the request
// that created it.
func (s *Service) Submit(ctx context.Context) (domain.AnalysisJob, error) {
	id := uuid.NewString()
	job := s.store.Create(id)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()

	if err := s.pool.Submit(func() { s.run(runCtx, id) }); err != nil {
		s.finish(id, "failed")
		_ = s.store.Fail(id, fmt.Sprintf("schedule analysis: %v", err))
		return domain.AnalysisJob{}, fmt.Errorf("schedule analysis: %w", err)
	}

	s.logger.Info("Analysis job submitted", zap.String("job_id", id))
	return job, nil
}

// Get returns a snapshot of the job.
func (s *Service) Get(id string) (domain.AnalysisJob, error) {
	return s.store.Get(id)
}

// Cancel aborts a pending or running job. Cancelling a terminal or
// unknown job is reported via the returned error.
func (s *Service) Cancel(id string) error {
	job, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %q already %s: %w", id, job.Status, domain.ErrJobCancelled)
	}

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	// A pending job has no running worker to observe the context, so
	// the terminal state is written here. The worker's later Start
	// fails against the terminal status and the run never begins.
	_ = s.store.Fail(id, domain.ErrJobCancelled.Error())
	s.finish(id, "cancelled")
	s.logger.Info("Analysis job cancelled", zap.String("job_id", id))
	return nil
}

// Close drains the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

func (s *Service) run(ctx context.Context, id string) {
	if err := s.store.Start(id); err != nil {
		// Cancelled before the worker picked it up.
		return
	}
	start := s.now()

	var state State
	steps := 0
	for steps < s.cfg.MaxSteps {
		step := s.decider.Next(state)
		if step.Kind == StepFinish {
			break
		}
		steps++

		if ctx.Err() != nil {
			// Cancel wrote the terminal state already.
			return
		}

		docs, err := s.searcher.Search(ctx, step.Query, s.cfg.TopK)
		if err != nil {
			s.fail(id, fmt.Sprintf("retrieval step %d: %v", steps, err))
			return
		}
		state.Observations = append(state.Observations, Observation{Query: step.Query, Docs: docs})
	}

	if ctx.Err() != nil {
		return
	}

	output, err := s.completer.Complete(ctx, buildPrompt(state))
	if err != nil {
		s.fail(id, fmt.Sprintf("generate report: %v", err))
		return
	}

	report, err := parseReport(output)
	if err != nil {
		s.fail(id, fmt.Sprintf("parse report: %v", err))
		return
	}

	stats := &domain.AnalysisStats{
		Steps:           steps + 1, // retrieval steps plus the completion
		RetrievalCalls:  len(state.Observations),
		DurationSeconds: s.now().Sub(start).Seconds(),
	}
	if err := s.store.Complete(id, report, stats); err != nil {
		// Lost the race against Cancel; the terminal state stands.
		return
	}
	s.finish(id, "completed")
	s.logger.Info("Analysis job completed",
		zap.String("job_id", id),
		zap.Int("retrieval_calls", stats.RetrievalCalls),
		zap.Float64("duration_seconds", stats.DurationSeconds),
	)
}

func (s *Service) fail(id, detail string) {
	if job, err := s.store.Get(id); err == nil && job.Status.Terminal() {
		return
	}
	_ = s.store.Fail(id, detail)
	s.finish(id, "failed")
	s.logger.Warn("Analysis job failed", zap.String("job_id", id), zap.String("detail", detail))
}

// finish releases the cancel handle and records the terminal status.
func (s *Service) finish(id, status string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()
	if s.jobsTotal != nil {
		s.jobsTotal.WithLabelValues(status).Inc()
	}
}
