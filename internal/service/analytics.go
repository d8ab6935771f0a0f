package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/analytics"
	"github.com/persistorai/friendgraph/internal/domain"
	"github.com/persistorai/friendgraph/internal/models"
)

// GraphLoader loads stored graph snapshots.
type GraphLoader interface {
	LoadGraph(ctx context.Context, id string) (*models.Graph, error)
}

var _ domain.AnalyticsService = (*AnalyticsService)(nil)

// AnalyticsService computes reports over stored crawl snapshots.
type AnalyticsService struct {
	graphs GraphLoader
	log    *logrus.Logger
}

// NewAnalyticsService creates an AnalyticsService.
func NewAnalyticsService(graphs GraphLoader, log *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{graphs: graphs, log: log}
}

// Report loads the snapshot for runID and analyzes it.
func (s *AnalyticsService) Report(ctx context.Context, runID string, opts analytics.Options) (*models.Report, error) {
	s.log.WithFields(logrus.Fields{
		"run_id":     runID,
		"normalized": opts.Betweenness.Normalized,
		"top":        opts.Top,
	}).Debug("analytics.report")

	g, err := s.graphs.LoadGraph(ctx, runID)
	if err != nil {
		return nil, err
	}

	report, err := analytics.Analyze(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("analyzing run %s: %w", runID, err)
	}

	return report, nil
}
