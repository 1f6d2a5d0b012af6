// Package jobs holds the in-memory analysis job store.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// Store tracks analysis jobs through their lifecycle. Transitions are
// monotonic: pending -> running -> completed or failed. Terminal jobs
// never change again.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*domain.AnalysisJob
	now  func() time.Time
}

// New creates an empty job store.
func New() *Store {
	return &Store{
		jobs: make(map[string]*domain.AnalysisJob),
		now:  time.Now,
	}
}

// Create registers a new pending job under the given ID.
func (s *Store) Create(id string) domain.AnalysisJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := &domain.AnalysisJob{
		ID:        id,
		Status:    domain.JobPending,
		CreatedAt: s.now(),
	}
	s.jobs[id] = job
	return snapshot(job)
}

// Start moves a pending job to running.
func (s *Store) Start(id string) error {
	return s.transition(id, domain.JobPending, func(job *domain.AnalysisJob) {
		job.Status = domain.JobRunning
	})
}

// Complete moves a running job to completed with its report.
func (s *Store) Complete(id string, report *domain.AnalysisReport, stats *domain.AnalysisStats) error {
	return s.transition(id, domain.JobRunning, func(job *domain.AnalysisJob) {
		now := s.now()
		job.Status = domain.JobCompleted
		job.CompletedAt = &now
		job.Result = report
		job.Statistics = stats
	})
}

// Fail moves a pending or running job to failed with an error detail.
// Failing a terminal job is a no-op so late worker errors never clobber
// a delivered result.
func (s *Store) Fail(id string, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %q: %w", id, domain.ErrJobNotFound)
	}
	if job.Status.Terminal() {
		return nil
	}
	now := s.now()
	job.Status = domain.JobFailed
	job.CompletedAt = &now
	job.ErrorDetail = detail
	return nil
}

// Get returns a snapshot of the job. Callers may mutate the returned
// value freely without affecting the store.
func (s *Store) Get(id string) (domain.AnalysisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.AnalysisJob{}, fmt.Errorf("job %q: %w", id, domain.ErrJobNotFound)
	}
	return snapshot(job), nil
}

// Count returns the number of tracked jobs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) transition(id string, from domain.JobStatus, apply func(*domain.AnalysisJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %q: %w", id, domain.ErrJobNotFound)
	}
	if job.Status != from {
		return fmt.Errorf("job %q: cannot transition from %s", id, job.Status)
	}
	apply(job)
	return nil
}

func snapshot(job *domain.AnalysisJob) domain.AnalysisJob {
	out := *job
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	if job.Result != nil {
		r := *job.Result
		out.Result = &r
	}
	if job.Statistics != nil {
		st := *job.Statistics
		out.Statistics = &st
	}
	return out
}
