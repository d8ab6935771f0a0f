// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/crawl"
	"github.com/persistorai/friendgraph/internal/domain"
	"github.com/persistorai/friendgraph/internal/metrics"
	"github.com/persistorai/friendgraph/internal/models"
	"github.com/persistorai/friendgraph/internal/ws"
)

// RunStore is the persistence contract CrawlService depends on.
type RunStore = domain.RunStore

// Publisher is an alias for the canonical domain.Publisher interface.
type Publisher = domain.Publisher

// Compile-time check: *CrawlService must satisfy domain.CrawlService.
var _ domain.CrawlService = (*CrawlService)(nil)

// Defaults fill request fields the caller leaves zero.
type Defaults struct {
	MaxNodes   int
	MaxFriends int
	Workers    int
	// Timeout bounds a single crawl. Zero means no limit.
	Timeout time.Duration
}

// CrawlService runs crawls against a friend source and persists the results.
type CrawlService struct {
	source   crawl.FriendSource
	store    RunStore
	events   Publisher
	worker   *CrawlWorker
	jobs     *jobTable
	defaults Defaults
	log      *logrus.Logger
}

// NewCrawlService creates a CrawlService. events and worker may be nil; without
// a worker SubmitCrawl reports models.ErrQueueFull.
func NewCrawlService(
	source crawl.FriendSource, store RunStore, events Publisher, worker *CrawlWorker, defaults Defaults, log *logrus.Logger,
) *CrawlService {
	return &CrawlService{
		source:   source,
		store:    store,
		events:   events,
		worker:   worker,
		jobs:     newJobTable(),
		defaults: defaults,
		log:      log,
	}
}

// StartCrawl runs a crawl to completion and returns the saved run.
func (s *CrawlService) StartCrawl(ctx context.Context, req models.CrawlRequest) (*models.CrawlRun, error) {
	req, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	run := s.newRun(req)
	s.log.WithFields(logrus.Fields{"run_id": run.ID, "seed": req.Seed, "max_nodes": req.MaxNodes}).Debug("crawl.start")

	return s.execute(ctx, run, req)
}

// SubmitCrawl queues a crawl and returns its run in the queued state.
func (s *CrawlService) SubmitCrawl(_ context.Context, req models.CrawlRequest) (*models.CrawlRun, error) {
	req, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	if s.worker == nil {
		return nil, models.ErrQueueFull
	}

	run := s.newRun(req)
	snapshot := s.jobs.put(run)

	s.log.WithFields(logrus.Fields{"run_id": run.ID, "seed": req.Seed}).Debug("crawl.submit")

	job := &CrawlJob{
		RunID: run.ID,
		exec: func(jobCtx context.Context) {
			if _, err := s.execute(jobCtx, run, req); err != nil {
				s.log.WithError(err).WithField("run_id", run.ID).Warn("async crawl failed")
			}
		},
	}

	if !s.worker.Enqueue(job) {
		s.jobs.remove(run.ID)
		return nil, models.ErrQueueFull
	}

	return snapshot, nil
}

// GetRun returns an in-flight or failed job when one is tracked, otherwise
// the stored run.
func (s *CrawlService) GetRun(ctx context.Context, id string) (*models.CrawlRun, error) {
	if run, ok := s.jobs.get(id); ok {
		return run, nil
	}

	return s.store.GetRun(ctx, id)
}

// ListRuns returns stored runs (pass-through).
func (s *CrawlService) ListRuns(ctx context.Context, limit int) ([]models.CrawlRun, error) {
	return s.store.ListRuns(ctx, limit)
}

// Graph returns the snapshot of a stored run (pass-through).
func (s *CrawlService) Graph(ctx context.Context, id string) (*models.Graph, error) {
	return s.store.LoadGraph(ctx, id)
}

// DeleteRun removes a stored run and forgets any failed job with that id.
func (s *CrawlService) DeleteRun(ctx context.Context, id string) error {
	if run, ok := s.jobs.get(id); ok {
		if run.Status == models.StatusFailed {
			s.jobs.remove(id)
			return nil
		}

		return fmt.Errorf("%w: run %s is still %s", models.ErrInvalidRequest, id, run.Status)
	}

	if err := s.store.DeleteRun(ctx, id); err != nil {
		return err
	}

	s.log.WithField("run_id", id).Info("crawl run deleted")

	return nil
}

// JobCounts reports, per status, how many runs have no stored snapshot yet.
func (s *CrawlService) JobCounts() map[string]int {
	return s.jobs.counts()
}

// prepare applies defaults and validates req.
func (s *CrawlService) prepare(req models.CrawlRequest) (models.CrawlRequest, error) {
	if req.MaxNodes == 0 {
		req.MaxNodes = s.defaults.MaxNodes
	}

	if req.MaxFriends == 0 {
		req.MaxFriends = s.defaults.MaxFriends
	}

	if req.Workers == 0 {
		req.Workers = s.defaults.Workers
	}

	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("%w: %w", models.ErrInvalidRequest, err)
	}

	return req, nil
}

func (s *CrawlService) newRun(req models.CrawlRequest) *models.CrawlRun {
	return &models.CrawlRun{
		ID:         uuid.NewString(),
		Status:     models.StatusQueued,
		Seed:       req.Seed,
		MaxNodes:   req.MaxNodes,
		MaxFriends: req.MaxFriends,
		StartedAt:  time.Now().UTC(),
	}
}

func (s *CrawlService) options(runID string, req models.CrawlRequest) (crawl.Options, error) {
	order, err := crawl.ParseOrder(req.Order)
	if err != nil {
		return crawl.Options{}, fmt.Errorf("%w: %w", models.ErrInvalidRequest, err)
	}

	opts := crawl.Options{
		MaxNodes:   req.MaxNodes,
		MaxFriends: req.MaxFriends,
		Workers:    req.Workers,
		Order:      order,
		Observer: crawl.ObserverFunc(func(ev crawl.Event) {
			s.publish(ws.EventCrawlProgress, runID, ev)
		}),
	}

	if req.RandSeed != 0 {
		opts.Rand = rand.New(rand.NewPCG(req.RandSeed, req.RandSeed)) //nolint:gosec // reproducible sampling.
	}

	return opts, nil
}

// execute runs the crawl described by run and req, saves the snapshot and
// publishes lifecycle events.
func (s *CrawlService) execute(ctx context.Context, run *models.CrawlRun, req models.CrawlRequest) (*models.CrawlRun, error) {
	if s.defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.defaults.Timeout)
		defer cancel()
	}

	run.Status = models.StatusRunning
	run.StartedAt = time.Now().UTC()
	s.jobs.put(run)

	s.publish(ws.EventCrawlStarted, run.ID, map[string]any{"seed": req.Seed, "max_nodes": req.MaxNodes})

	opts, err := s.options(run.ID, req)
	if err != nil {
		return nil, s.fail(run, err)
	}

	crawler, err := crawl.New(s.source, s.log, opts)
	if err != nil {
		return nil, s.fail(run, err)
	}

	res, err := crawler.Run(ctx, req.Seed)
	if err != nil {
		return nil, s.fail(run, err)
	}

	run.Status = models.StatusDone
	run.NodeCount = res.Graph.NodeCount()
	run.EdgeCount = res.Graph.EdgeCount()
	run.Expanded = res.Expanded
	run.Skipped = len(res.Skipped)
	run.Pending = len(res.Pending)
	run.Halt = res.Halt
	run.FinishedAt = time.Now().UTC()

	// A timed-out crawl still returns a partial graph worth keeping.
	if err := s.store.SaveRun(context.WithoutCancel(ctx), run, res.Graph); err != nil {
		return nil, s.fail(run, fmt.Errorf("saving run: %w", err))
	}

	s.jobs.remove(run.ID)
	metrics.CrawlRuns.WithLabelValues(run.Halt).Inc()

	s.log.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"nodes":    run.NodeCount,
		"edges":    run.EdgeCount,
		"expanded": run.Expanded,
		"skipped":  run.Skipped,
		"halt":     run.Halt,
	}).Info("crawl finished")

	s.publish(ws.EventCrawlFinished, run.ID, run)

	out := *run

	return &out, nil
}

// fail marks run failed, keeps it queryable and returns err wrapped with the run id.
func (s *CrawlService) fail(run *models.CrawlRun, err error) error {
	run.Status = models.StatusFailed
	run.Error = err.Error()
	run.FinishedAt = time.Now().UTC()
	s.jobs.put(run)

	outcome := "error"
	if errors.Is(err, models.ErrSeedUnreachable) {
		outcome = "seed_unreachable"
	}

	metrics.CrawlRuns.WithLabelValues(outcome).Inc()
	s.publish(ws.EventCrawlFailed, run.ID, map[string]string{"error": run.Error})

	return fmt.Errorf("crawl %s: %w", run.ID, err)
}

func (s *CrawlService) publish(eventType, runID string, data any) {
	if s.events == nil {
		return
	}

	s.events.Publish(eventType, runID, data)
}
