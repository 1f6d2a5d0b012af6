package sdk

import (
	"context"

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
	result ingestuc.Result
	err    error
}

func (s *stubIngest) Ingest(context.Context, string) (ingestuc.Result, error) {
	return s.result, s.err
}

type stubAnalysis struct {
	jobs      []domain.AnalysisJob // consumed by successive Get calls
	submitErr error
	getErr    error
	cancelErr error
	getCalls  int
	cancelled []string
}

func (s *stubAnalysis) Submit(context.Context) (domain.AnalysisJob, error) {
	if s.submitErr != nil {
		return domain.AnalysisJob{}, s.submitErr
	}
	return s.jobs[0], nil
}

func (s *stubAnalysis) Get(string) (domain.AnalysisJob, error) {
	if s.getErr != nil {
		return domain.AnalysisJob{}, s.getErr
	}
	i := s.getCalls
	if i >= len(s.jobs) {
		i = len(s.jobs) - 1
	}
	s.getCalls++
	return s.jobs[i], nil
}

func (s *stubAnalysis) Cancel(id string) error {
	s.cancelled = append(s.cancelled, id)
	return s.cancelErr
}

func (s *stubAnalysis) Close() {}

type stubCacheCtl struct {
	stats    cache.Stats
	clearErr error
}

func (s *stubCacheCtl) Stats() cache.Stats          { return s.stats }
func (s *stubCacheCtl) Clear(context.Context) error { return s.clearErr }

type stubHealthSvc struct {
	report healthuc.Report
}

func (s *stubHealthSvc) Check(context.Context) healthuc.Report { return s.report }

func newStubClient() (*Client, *stubSearch, *stubIngest, *stubAnalysis) {
	search := &stubSearch{}
	ingest := &stubIngest{}
	analysis := &stubAnalysis{jobs: []domain.AnalysisJob{{ID: "job-1", Status: domain.JobPending}}}
	return &Client{
		searchSvc: search,
		ingestSvc: ingest,
		analysis:  analysis,
		cacheSvc:  &stubCacheCtl{},
		healthSvc: &stubHealthSvc{report: healthuc.Report{Status: healthuc.Healthy}},
	}, search, ingest, analysis
}
