package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/metrics"
)

// CrawlJob is one queued asynchronous crawl.
type CrawlJob struct {
	RunID string
	exec  func(ctx context.Context)
}

// CrawlWorker buffers crawl jobs and runs them one at a time on a single
// goroutine. Each crawl fans out internally, so jobs are not run in parallel.
type CrawlWorker struct {
	log  *logrus.Logger
	jobs chan *CrawlJob
}

// NewCrawlWorker creates a CrawlWorker with the given queue capacity.
func NewCrawlWorker(log *logrus.Logger, queueSize int) *CrawlWorker {
	if queueSize <= 0 {
		queueSize = 64
	}

	return &CrawlWorker{
		log:  log,
		jobs: make(chan *CrawlJob, queueSize),
	}
}

// Enqueue adds a job. Non-blocking; returns false if the queue is full.
func (w *CrawlWorker) Enqueue(job *CrawlJob) bool {
	select {
	case w.jobs <- job:
		metrics.CrawlQueueDepth.Set(float64(len(w.jobs)))
		return true
	default:
		w.log.WithField("run_id", job.RunID).Warn("crawl queue full, rejecting job")
		return false
	}
}

// Pending returns the number of queued jobs.
func (w *CrawlWorker) Pending() int {
	return len(w.jobs)
}

// Run processes jobs until ctx is cancelled. Jobs still queued at that point
// are run with the cancelled context, which fails them promptly.
func (w *CrawlWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain(ctx)
			return
		case job := <-w.jobs:
			w.process(ctx, job)
		}
	}
}

func (w *CrawlWorker) drain(ctx context.Context) {
	for {
		select {
		case job := <-w.jobs:
			w.process(ctx, job)
		default:
			return
		}
	}
}

func (w *CrawlWorker) process(ctx context.Context, job *CrawlJob) {
	metrics.CrawlQueueDepth.Set(float64(len(w.jobs)))
	w.log.WithField("run_id", job.RunID).Debug("crawl job started")
	job.exec(ctx)
}
