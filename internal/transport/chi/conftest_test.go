package chi

import (
	"context"
	"net/http/httptest"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/cache"
	"github.com/kailas-cloud/retriever/internal/domain"
	healthuc "github.com/kailas-cloud/retriever/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/retriever/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/retriever/internal/usecase/search"
)

type stubSearch struct {
	docs []domain.ScoredDocument
	err  error
	got  searchuc.Request
}

func (s *stubSearch) Search(_ context.Context, req searchuc.Request) ([]domain.ScoredDocument, error) {
	s.got = req
	return s.docs, s.err
}

type stubIngest struct {
	result     ingestuc.Result
	err        error
	got        string
	gotSize    int
	gotOverlap int
}

func (s *stubIngest) IngestChunked(_ context.Context, text string, size, overlap int) (ingestuc.Result, error) {
	s.got = text
	s.gotSize = size
	s.gotOverlap = overlap
	return s.result, s.err
}

type stubAnalysis struct {
	job       domain.AnalysisJob
	submitErr error
	getErr    error
	cancelErr error
	cancelled []string
}

func (s *stubAnalysis) Submit(context.Context) (domain.AnalysisJob, error) {
	return s.job, s.submitErr
}

func (s *stubAnalysis) Get(string) (domain.AnalysisJob, error) {
	return s.job, s.getErr
}

func (s *stubAnalysis) Cancel(id string) error {
	s.cancelled = append(s.cancelled, id)
	return s.cancelErr
}

type stubCache struct {
	stats    cache.Stats
	clearErr error
	cleared  int
}

func (s *stubCache) Stats() cache.Stats { return s.stats }

func (s *stubCache) Clear(context.Context) error {
	s.cleared++
	return s.clearErr
}

type stubHealth struct {
	report healthuc.Report
}

func (s *stubHealth) Check(context.Context) healthuc.Report { return s.report }

type testEnv struct {
	search   *stubSearch
	ingest   *stubIngest
	analysis *stubAnalysis
	cache    *stubCache
	health   *stubHealth
	srv      *httptest.Server
}

func newTestEnv(t interface{ Cleanup(func()) }) *testEnv {
	env := &testEnv{
		search:   &stubSearch{},
		ingest:   &stubIngest{},
		analysis: &stubAnalysis{},
		cache:    &stubCache{},
		health:   &stubHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}

	server := NewServer(env.search, env.ingest, env.analysis, env.cache, env.health, zap.NewNop())
	r := chirouter.NewRouter()
	server.Register(r)

	env.srv = httptest.NewServer(r)
	t.Cleanup(env.srv.Close)
	return env
}
