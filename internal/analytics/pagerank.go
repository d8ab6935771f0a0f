package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/persistorai/friendgraph/internal/metrics"
	"github.com/persistorai/friendgraph/internal/models"
)

// PageRank defaults.
const (
	DefaultDamping       = 0.85
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 100
)

// PageRankOptions configures PageRank. Zero fields take the defaults.
type PageRankOptions struct {
	// Damping is the probability of following an edge rather than teleporting.
	Damping float64
	// Tolerance stops iteration once the L1 change between rounds drops below it.
	Tolerance float64
	// MaxIterations caps the power iteration.
	MaxIterations int
}

func (o PageRankOptions) withDefaults() PageRankOptions {
	if o.Damping == 0 {
		o.Damping = DefaultDamping
	}

	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}

	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}

	return o
}

// Validate checks option bounds after defaults are applied.
func (o PageRankOptions) Validate() error {
	o = o.withDefaults()

	if o.Damping <= 0 || o.Damping >= 1 {
		return errors.New("damping must be in (0, 1)")
	}

	if o.Tolerance < 0 {
		return errors.New("tolerance must not be negative")
	}

	if o.MaxIterations < 0 {
		return errors.New("max iterations must not be negative")
	}

	return nil
}

// PageRankResult holds scores and convergence details.
type PageRankResult struct {
	Scores     models.Scores
	Iterations int
	Converged  bool
}

// PageRank runs power iteration over the undirected graph. Mass held by
// isolated nodes is redistributed uniformly every round, so scores always sum
// to 1. Hitting MaxIterations returns the last iterate with Converged false.
func PageRank(ctx context.Context, g *models.Graph, opts PageRankOptions) (*PageRankResult, error) {
	ctx, span := tracer.Start(ctx, "analytics.PageRank",
		trace.WithAttributes(
			attribute.Int("node_count", g.NodeCount()),
			attribute.Int("edge_count", g.EdgeCount()),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() { metrics.AnalyticsDuration.WithLabelValues("pagerank").Observe(time.Since(start).Seconds()) }()

	if g.NodeCount() == 0 {
		span.AddEvent("empty_graph")
		return nil, fmt.Errorf("pagerank: %w", models.ErrEmptyGraph)
	}

	if err := opts.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("pagerank: %w", err)
	}

	opts = opts.withDefaults()

	ids, adj := g.Adjacency()
	n := len(ids)
	nf := float64(n)

	rank := make([]float64, n)
	next := make([]float64, n)

	for i := range rank {
		rank[i] = 1 / nf
	}

	var (
		iterations int
		converged  bool
		delta      float64
	)

	for iterations < opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			span.AddEvent("cancelled", trace.WithAttributes(attribute.Int("iterations_completed", iterations)))
			return nil, fmt.Errorf("pagerank: %w", err)
		}

		dangling := 0.0
		for i, nbrs := range adj {
			if len(nbrs) == 0 {
				dangling += rank[i]
			}
		}

		base := (1-opts.Damping)/nf + opts.Damping*dangling/nf
		for i := range next {
			next[i] = base
		}

		for u, nbrs := range adj {
			if len(nbrs) == 0 {
				continue
			}

			share := opts.Damping * rank[u] / float64(len(nbrs))
			for _, v := range nbrs {
				next[v] += share
			}
		}

		delta = 0
		for i := range rank {
			delta += math.Abs(next[i] - rank[i])
		}

		rank, next = next, rank
		iterations++

		if delta < opts.Tolerance {
			converged = true
			break
		}
	}

	scores := make(models.Scores, n)
	for i, id := range ids {
		scores[id] = rank[i]
	}

	span.SetAttributes(
		attribute.Int("iterations", iterations),
		attribute.Bool("converged", converged),
		attribute.Float64("delta", delta),
	)

	return &PageRankResult{Scores: scores, Iterations: iterations, Converged: converged}, nil
}
