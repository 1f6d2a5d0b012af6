package analysis

import (
	"context"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// Searcher retrieves contract passages relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.ScoredDocument, error)
}

// Completer generates the final structured report text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// JobStore tracks analysis jobs through their lifecycle.
type JobStore interface {
	Create(id string) domain.AnalysisJob
	Start(id string) error
	Complete(id string, report *domain.AnalysisReport, stats *domain.AnalysisStats) error
	Fail(id string, detail string) error
	Get(id string) (domain.AnalysisJob, error)
}

// StepKind discriminates what the decider wants next.
type StepKind int

const (
	// StepSearch runs one retrieval query and records the result.
	StepSearch StepKind = iota
	// StepFinish stops gathering and produces the report.
	StepFinish
)

// Step is one decision in an analysis run.
type Step struct {
	Kind  StepKind
	Query string
}

// Observation is the outcome of one retrieval step.
type Observation struct {
	Query string
	Docs  []domain.ScoredDocument
}

// State accumulates what the run has gathered so far.
type State struct {
	Observations []Observation
}

// Decider chooses the next step given the run state.
type Decider interface {
	Next(state State) Step
}
