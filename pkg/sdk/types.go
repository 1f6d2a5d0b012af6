package sdk

import "time"

// SearchOptions tunes a single search call. Zero values mean the
// configured defaults.
type SearchOptions struct {
	TopK         int
	Alpha        *float64 // semantic weight in [0, 1]
	SemanticOnly bool     // skip the keyword leg and fusion
}

// SearchResult is one fused search hit.
type SearchResult struct {
	ID            string
	Content       string
	SemanticScore float64
	KeywordScore  float64
	Score         float64
	Rank          int
}

// IngestResult summarizes one ingested document.
type IngestResult struct {
	Chunks     int
	TokensUsed int
}

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

// Job status constants.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// RiskLevel classifies the legal risk of an audited contract.
type RiskLevel string

// Risk level constants.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// AnalysisReport holds the structured metadata extracted from a contract.
type AnalysisReport struct {
	GuaranteeType   string
	GuaranteeObject string
	InterestRate    float64
	TermMonths      int
	PrincipalAmount float64
	LegalRisk       RiskLevel
	ComplianceCheck bool
	Notes           string
}

// AnalysisStats summarizes one analysis run.
type AnalysisStats struct {
	Steps           int
	RetrievalCalls  int
	DurationSeconds float64
}

// AnalysisJob is a snapshot of one asynchronous analysis request.
type AnalysisJob struct {
	ID          string
	Status      JobStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
	Result      *AnalysisReport
	Statistics  *AnalysisStats
	ErrorDetail string
}

// Done reports whether the job reached a terminal state.
func (j AnalysisJob) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// CacheStats is an embedding cache effectiveness snapshot.
type CacheStats struct {
	L1Hits    int64
	L1Misses  int64
	L1Size    int
	L1HitRate float64
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // component -> "ok"/"error"
}
