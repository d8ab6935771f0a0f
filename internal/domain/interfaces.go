// Package domain defines the canonical interfaces shared across the service,
// API and CLI layers. Consumers should depend on these interfaces rather than
// re-declaring equivalent ones.
package domain

import (
	"context"
	"encoding/json"

	"github.com/persistorai/friendgraph/internal/analytics"
	"github.com/persistorai/friendgraph/internal/models"
)

// RunStore persists finished crawl runs together with their graph snapshot.
// Unknown or malformed run ids return models.ErrRunNotFound.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.CrawlRun, g *models.Graph) error
	GetRun(ctx context.Context, id string) (*models.CrawlRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.CrawlRun, error)
	LoadGraph(ctx context.Context, id string) (*models.Graph, error)
	DeleteRun(ctx context.Context, id string) error
}

// Publisher broadcasts crawl events to live subscribers.
type Publisher interface {
	Publish(eventType, runID string, data any)
	PublishRaw(eventType, runID string, data json.RawMessage)
}

// CrawlService defines crawl lifecycle operations.
type CrawlService interface {
	StartCrawl(ctx context.Context, req models.CrawlRequest) (*models.CrawlRun, error)
	SubmitCrawl(ctx context.Context, req models.CrawlRequest) (*models.CrawlRun, error)
	GetRun(ctx context.Context, id string) (*models.CrawlRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.CrawlRun, error)
	Graph(ctx context.Context, id string) (*models.Graph, error)
	DeleteRun(ctx context.Context, id string) error
}

// AnalyticsService computes structural metrics over stored snapshots.
type AnalyticsService interface {
	Report(ctx context.Context, runID string, opts analytics.Options) (*models.Report, error)
}
