package domain

import "time"

// JobStatus is the lifecycle state of an analysis job.
// Transitions are monotonic: pending -> running -> completed|failed.
type JobStatus string

const (
	// JobPending is the initial state, set at submission.
	JobPending JobStatus = "pending"
	// JobRunning is set when a worker picks the job up.
	JobRunning JobStatus = "running"
	// JobCompleted is terminal; Result is attached.
	JobCompleted JobStatus = "completed"
	// JobFailed is terminal; ErrorDetail is attached.
	JobFailed JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// AnalysisJob is a snapshot of one asynchronous analysis request.
type AnalysisJob struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *AnalysisReport `json:"result,omitempty"`
	Statistics  *AnalysisStats  `json:"statistics,omitempty"`
	ErrorDetail string          `json:"error,omitempty"`
}

// AnalysisStats summarizes one analysis run for external polling.
type AnalysisStats struct {
	Steps           int     `json:"steps"`
	RetrievalCalls  int     `json:"retrieval_calls"`
	DurationSeconds float64 `json:"duration_seconds"`
}
