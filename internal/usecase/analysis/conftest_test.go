package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/repository/jobs"
)

const validReportJSON = `{
	"guarantee_type": "surety",
	"guarantee_object": "commercial property",
	"interest_rate": 1.2,
	"term_months": 36,
	"principal_amount": 500000,
	"legal_risk": "medium",
	"compliance_check": true
}`

type mockSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
	block   chan struct{} // when set, Search waits for close or ctx
}

func (m *mockSearcher) Search(ctx context.Context, query string, _ int) ([]domain.ScoredDocument, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return []domain.ScoredDocument{
		{ID: "doc-1", Content: "passage about " + query, FusedScore: 0.5, Rank: 1},
	}, nil
}

func (m *mockSearcher) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

type mockCompleter struct {
	output string
	err    error
}

func (m *mockCompleter) Complete(_ context.Context, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

func newTestService(t *testing.T, searcher Searcher, completer Completer) (*Service, *jobs.Store) {
	t.Helper()
	store := jobs.New()
	svc, err := NewService(searcher, completer, store, NewAuditDecider(), Config{Workers: 2}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, store
}

// waitTerminal polls until the job reaches a terminal state.
func waitTerminal(t *testing.T, svc *Service, id string) domain.AnalysisJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return domain.AnalysisJob{}
}
