package api_test

import (
	"context"

	"github.com/persistorai/friendgraph/internal/analytics"
	"github.com/persistorai/friendgraph/internal/models"
)

type mockCrawlService struct {
	startFn  func(ctx context.Context, req models.CrawlRequest) (*models.CrawlRun, error)
	submitFn func(ctx context.Context, req models.CrawlRequest) (*models.CrawlRun, error)
	getFn    func(ctx context.Context, id string) (*models.CrawlRun, error)
	listFn   func(ctx context.Context, limit int) ([]models.CrawlRun, error)
	graphFn  func(ctx context.Context, id string) (*models.Graph, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockCrawlService) StartCrawl(ctx context.Context, req models.CrawlRequest) (*models.CrawlRun, error) {
	return m.startFn(ctx, req)
}

func (m *mockCrawlService) SubmitCrawl(ctx context.Context, req models.CrawlRequest) (*models.CrawlRun, error) {
	return m.submitFn(ctx, req)
}

func (m *mockCrawlService) GetRun(ctx context.Context, id string) (*models.CrawlRun, error) {
	return m.getFn(ctx, id)
}

func (m *mockCrawlService) ListRuns(ctx context.Context, limit int) ([]models.CrawlRun, error) {
	return m.listFn(ctx, limit)
}

func (m *mockCrawlService) Graph(ctx context.Context, id string) (*models.Graph, error) {
	return m.graphFn(ctx, id)
}

func (m *mockCrawlService) DeleteRun(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockAnalyticsService struct {
	reportFn func(ctx context.Context, runID string, opts analytics.Options) (*models.Report, error)
}

func (m *mockAnalyticsService) Report(ctx context.Context, runID string, opts analytics.Options) (*models.Report, error) {
	return m.reportFn(ctx, runID, opts)
}
