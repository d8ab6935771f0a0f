package analytics

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/friendgraph/internal/metrics"
	"github.com/persistorai/friendgraph/internal/models"
)

// BetweennessOptions configures Betweenness.
type BetweennessOptions struct {
	// Normalized scales scores by 2/((n-1)(n-2)) so they fall in [0, 1].
	Normalized bool
	// Workers is the number of goroutines sharing the per-source passes.
	// Defaults to GOMAXPROCS.
	Workers int
}

// Betweenness computes betweenness centrality with Brandes' algorithm. Each
// unordered pair is counted once, so raw scores are bounded by (n-1)(n-2)/2.
// Nodes in different components never contribute to each other.
func Betweenness(ctx context.Context, g *models.Graph, opts BetweennessOptions) (models.Scores, error) {
	ctx, span := tracer.Start(ctx, "analytics.Betweenness",
		trace.WithAttributes(
			attribute.Int("node_count", g.NodeCount()),
			attribute.Int("edge_count", g.EdgeCount()),
			attribute.Bool("normalized", opts.Normalized),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() { metrics.AnalyticsDuration.WithLabelValues("betweenness").Observe(time.Since(start).Seconds()) }()

	if g.NodeCount() == 0 {
		span.AddEvent("empty_graph")
		return nil, fmt.Errorf("betweenness: %w", models.ErrEmptyGraph)
	}

	ids, adj := g.Adjacency()
	n := len(ids)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	workers = min(workers, n)

	partial := make([][]float64, workers)
	eg, egCtx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			acc := make([]float64, n)
			st := newBrandesState(n)

			for s := w; s < n; s += workers {
				if err := egCtx.Err(); err != nil {
					return err
				}

				st.bfs(adj, s)
				st.accumulate(s, acc)
			}

			partial[w] = acc

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		span.AddEvent("cancelled")
		return nil, fmt.Errorf("betweenness: %w", err)
	}

	// Every unordered pair was visited from both ends.
	scale := 0.5
	if opts.Normalized && n > 2 {
		scale *= 2 / float64((n-1)*(n-2))
	}

	scores := make(models.Scores, n)

	for i, id := range ids {
		total := 0.0
		for _, acc := range partial {
			total += acc[i]
		}

		scores[id] = total * scale
	}

	return scores, nil
}

// brandesState holds per-source buffers reused across passes.
type brandesState struct {
	stack []int
	queue []int
	pred  [][]int
	sigma []float64
	dist  []int
	delta []float64
}

func newBrandesState(n int) *brandesState {
	return &brandesState{
		stack: make([]int, 0, n),
		queue: make([]int, 0, n),
		pred:  make([][]int, n),
		sigma: make([]float64, n),
		dist:  make([]int, n),
		delta: make([]float64, n),
	}
}

// bfs counts shortest paths from s and records predecessors. The visit
// order is left in stack for back-propagation.
func (st *brandesState) bfs(adj [][]int, s int) {
	st.stack = st.stack[:0]
	st.queue = st.queue[:0]

	for i := range st.dist {
		st.dist[i] = -1
		st.sigma[i] = 0
		st.delta[i] = 0
		st.pred[i] = st.pred[i][:0]
	}

	st.sigma[s] = 1
	st.dist[s] = 0
	st.queue = append(st.queue, s)

	for head := 0; head < len(st.queue); head++ {
		v := st.queue[head]
		st.stack = append(st.stack, v)

		for _, w := range adj[v] {
			if st.dist[w] < 0 {
				st.dist[w] = st.dist[v] + 1
				st.queue = append(st.queue, w)
			}

			if st.dist[w] == st.dist[v]+1 {
				st.sigma[w] += st.sigma[v]
				st.pred[w] = append(st.pred[w], v)
			}
		}
	}
}

// accumulate back-propagates pair dependencies in reverse BFS order.
func (st *brandesState) accumulate(s int, acc []float64) {
	for i := len(st.stack) - 1; i >= 0; i-- {
		w := st.stack[i]
		for _, v := range st.pred[w] {
			st.delta[v] += (st.sigma[v] / st.sigma[w]) * (1 + st.delta[w])
		}

		if w != s {
			acc[w] += st.delta[w]
		}
	}
}
