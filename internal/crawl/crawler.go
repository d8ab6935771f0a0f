package crawl

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/friendgraph/internal/metrics"
	"github.com/persistorai/friendgraph/internal/models"
)

// FriendSource supplies profiles and friend lists. Implementations return
// errors wrapping models.ErrSourceUnavailable or models.ErrNotFound.
type FriendSource interface {
	FetchProfile(ctx context.Context, id models.ID) (map[string]any, error)
	FetchFriends(ctx context.Context, id models.ID) ([]models.Friend, error)
}

// Worker pool limits.
const (
	DefaultWorkers = 4
	MaxWorkers     = 16
)

// Options configures a Crawler.
type Options struct {
	// MaxNodes is the node budget. Must be > 0.
	MaxNodes int
	// MaxFriends caps the friends taken per expansion; 0 takes all of them.
	MaxFriends int
	// Workers bounds concurrent friend-list fetches. Default 4.
	Workers int
	// Order selects depth-first (default) or breadth-first expansion.
	Order Order
	// Rand drives fan-out sampling. A time-seeded source is used when nil.
	Rand *rand.Rand
	// Observer, if set, is notified after every applied expansion.
	Observer Observer
}

// Event describes one applied expansion.
type Event struct {
	ID        models.ID `json:"id"`
	Friends   int       `json:"friends"`
	Added     int       `json:"added"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
}

// Observer receives crawl progress. Calls come from the coordinating goroutine.
type Observer interface {
	Expanded(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Expanded implements Observer.
func (f ObserverFunc) Expanded(ev Event) { f(ev) }

// Skip records a non-seed expansion that failed and was skipped.
type Skip struct {
	ID  models.ID
	Err error
}

// Result is the outcome of a crawl.
type Result struct {
	Graph    *models.Graph
	Expanded int
	Skipped  []Skip
	Pending  []models.ID
	Halt     string
}

// Crawler drives a Frontier and a Builder against a FriendSource.
type Crawler struct {
	source FriendSource
	log    *logrus.Logger
	opts   Options
}

// New creates a Crawler. It returns models.ErrInvalidBudget when MaxNodes <= 0.
func New(source FriendSource, log *logrus.Logger, opts Options) (*Crawler, error) {
	if opts.MaxNodes <= 0 {
		return nil, fmt.Errorf("new crawler: %w", models.ErrInvalidBudget)
	}

	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}

	if opts.MaxFriends < 0 {
		opts.MaxFriends = 0
	}

	if opts.Rand == nil {
		now := uint64(time.Now().UnixNano()) //nolint:gosec // sampling seed, not security sensitive.
		opts.Rand = rand.New(rand.NewPCG(now, now>>1))
	}

	return &Crawler{source: source, log: log, opts: opts}, nil
}

type fetchResult struct {
	id      models.ID
	friends []models.Friend
	err     error
}

// prefetchPerWorker bounds fetched but not yet applied friend lists per worker.
const prefetchPerWorker = 4

// Run crawls outward from seed until the node budget is reached, the
// frontier drains or ctx is cancelled. Failure to resolve the seed returns an
// error wrapping models.ErrSeedUnreachable and no graph.
//
// Friend lists of the next pending identifiers are fetched concurrently, but
// expansions are applied one at a time in frontier order, so the graph,
// Expanded and Pending match a single-worker crawl. An identifier is only
// removed from the frontier when its expansion is applied; prefetched ones that
// were never applied stay in Pending. Cancellation stops new fetches, applies
// the head of the frontier while its fetch is already under way, and returns
// the partial graph.
func (c *Crawler) Run(ctx context.Context, seed models.ID) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("starting crawl: %w", err)
	}

	frontier, err := NewFrontier(seed, c.opts.MaxNodes, WithOrder(c.opts.Order))
	if err != nil {
		return nil, err
	}

	log := c.log.WithFields(logrus.Fields{
		"seed":        seed,
		"max_nodes":   c.opts.MaxNodes,
		"max_friends": c.opts.MaxFriends,
		"workers":     c.opts.Workers,
		"order":       c.opts.Order.String(),
	})

	profile, err := c.source.FetchProfile(ctx, seed)
	if err != nil {
		countFailure(err)
		return nil, fmt.Errorf("%w: fetching profile of %s: %w", models.ErrSeedUnreachable, seed, err)
	}

	builder := NewBuilder()
	builder.RecordNode(seed, profile)
	metrics.NodesDiscovered.Inc()

	r := &crawlRun{
		c:        c,
		seed:     seed,
		frontier: frontier,
		builder:  builder,
		log:      log,
		res:      &Result{},
		fetchCtx: context.WithoutCancel(ctx),
		results:  make(chan fetchResult, c.opts.Workers),
		fetched:  make(map[models.ID]*fetchResult),
	}
	r.g.SetLimit(c.opts.Workers)

	halt, err := r.loop(ctx)
	r.wait()

	if err != nil {
		return nil, err
	}

	res := r.res
	res.Halt = halt
	res.Graph = builder.Snapshot()
	res.Pending = frontier.Pending()

	log.WithFields(logrus.Fields{
		"nodes":    res.Graph.NodeCount(),
		"edges":    res.Graph.EdgeCount(),
		"expanded": res.Expanded,
		"skipped":  len(res.Skipped),
		"pending":  len(res.Pending),
		"halt":     res.Halt,
	}).Info("crawl finished")

	return res, nil
}

// crawlRun is the coordinator state of one Run. Only the coordinating
// goroutine touches it; fetch goroutines report through results.
type crawlRun struct {
	c        *Crawler
	seed     models.ID
	frontier *Frontier
	builder  *Builder
	log      *logrus.Entry
	res      *Result

	g        errgroup.Group
	fetchCtx context.Context //nolint:containedctx // detached context shared by fetch goroutines.
	results  chan fetchResult
	inflight int
	// fetched holds dispatched identifiers; a nil value is still in flight.
	fetched map[models.ID]*fetchResult
}

// loop applies expansions until a halt condition and returns its reason.
func (r *crawlRun) loop(ctx context.Context) (string, error) {
	for {
		if r.frontier.IsBudgetExhausted(r.builder.NodeCount()) {
			return models.HaltBudget, nil
		}

		upcoming := r.frontier.Upcoming(r.c.opts.Workers)
		if len(upcoming) == 0 {
			return models.HaltFrontier, nil
		}

		cancelled := ctx.Err() != nil
		if !cancelled {
			r.prefetch(upcoming)
		}

		next := upcoming[0]
		fr, dispatched := r.fetched[next]

		switch {
		case fr != nil:
			if err := r.expand(fr); err != nil {
				return "", err
			}
		case !dispatched && cancelled:
			return models.HaltCancelled, nil
		default:
			r.receive(ctx, cancelled)
		}
	}
}

// prefetch starts fetches for upcoming identifiers while workers are free.
// The head always gets a worker first.
func (r *crawlRun) prefetch(upcoming []models.ID) {
	limit := prefetchPerWorker * r.c.opts.Workers

	for i, id := range upcoming {
		if r.inflight >= r.c.opts.Workers {
			return
		}

		if _, ok := r.fetched[id]; ok {
			continue
		}

		if i > 0 && len(r.fetched) >= limit {
			r.evict(upcoming)

			if len(r.fetched) >= limit {
				return
			}
		}

		r.dispatch(id)
	}
}

func (r *crawlRun) dispatch(id models.ID) {
	r.fetched[id] = nil
	r.inflight++

	r.g.Go(func() error {
		r.results <- r.c.fetch(r.fetchCtx, id)
		return nil
	})
}

// evict drops finished prefetches that have sunk below the upcoming window.
// They are fetched again if they reach the head of the frontier.
func (r *crawlRun) evict(upcoming []models.ID) {
	keep := make(map[models.ID]struct{}, len(upcoming))
	for _, id := range upcoming {
		keep[id] = struct{}{}
	}

	for id, fr := range r.fetched {
		if _, ok := keep[id]; !ok && fr != nil {
			delete(r.fetched, id)
		}
	}
}

// receive buffers one finished fetch. Before cancellation it also returns
// when ctx is done so the loop can stop dispatching.
func (r *crawlRun) receive(ctx context.Context, cancelled bool) {
	var fr fetchResult

	if cancelled {
		fr = <-r.results
	} else {
		select {
		case fr = <-r.results:
		case <-ctx.Done():
			return
		}
	}

	r.inflight--
	r.fetched[fr.id] = &fr
}

// expand applies the fetched friend list of the frontier head.
func (r *crawlRun) expand(fr *fetchResult) error {
	delete(r.fetched, fr.id)
	r.frontier.ExpandNext() //nolint:errcheck // fr.id is the head, so the frontier is not empty.

	if fr.err != nil {
		if fr.id == r.seed {
			return fmt.Errorf("%w: fetching friends of %s: %w", models.ErrSeedUnreachable, r.seed, fr.err)
		}

		r.log.WithError(fr.err).WithField("node_id", fr.id).Warn("skipping expansion")
		r.res.Skipped = append(r.res.Skipped, Skip{ID: fr.id, Err: fr.err})

		return nil
	}

	friends := sampleFriends(r.c.opts.Rand, fr.friends, r.c.opts.MaxFriends)
	added := apply(r.frontier, r.builder, fr.id, friends)
	r.res.Expanded++

	metrics.CrawlExpansions.Inc()
	metrics.NodesDiscovered.Add(float64(added))

	ev := Event{
		ID:        fr.id,
		Friends:   len(friends),
		Added:     added,
		NodeCount: r.builder.NodeCount(),
		EdgeCount: r.builder.EdgeCount(),
	}

	r.log.WithFields(logrus.Fields{
		"node_id":    ev.ID,
		"friends":    ev.Friends,
		"added":      ev.Added,
		"node_count": ev.NodeCount,
	}).Debug("crawl.expanded")

	if r.c.opts.Observer != nil {
		r.c.opts.Observer.Expanded(ev)
	}

	return nil
}

// wait lets in-flight fetches finish and discards their results.
func (r *crawlRun) wait() {
	if r.inflight > 0 {
		r.log.WithField("in_flight", r.inflight).Debug("discarding prefetched expansions")
	}

	r.g.Wait() //nolint:errcheck // workers never return errors; results carry them.
}

func (c *Crawler) fetch(ctx context.Context, id models.ID) fetchResult {
	start := time.Now()
	friends, err := c.source.FetchFriends(ctx, id)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		countFailure(err)
	}

	return fetchResult{id: id, friends: friends, err: err}
}

// apply records friends of id and offers them to the frontier. Friends are
// offered in reverse so that, depth-first, the first listed friend is expanded next.
func apply(f *Frontier, b *Builder, id models.ID, friends []models.Friend) int {
	added := 0

	for _, fr := range friends {
		if fr.ID == "" {
			continue
		}

		if b.RecordNode(fr.ID, fr.Attributes) {
			added++
		}

		b.RecordEdge(id, fr.ID)
	}

	for i := len(friends) - 1; i >= 0; i-- {
		if friends[i].ID != "" {
			f.Offer(friends[i].ID)
		}
	}

	return added
}

func countFailure(err error) {
	kind := "other"

	switch {
	case errors.Is(err, models.ErrNotFound):
		kind = "not_found"
	case errors.Is(err, models.ErrSourceUnavailable):
		kind = "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = "cancelled"
	}

	metrics.FetchFailures.WithLabelValues(kind).Inc()
}
