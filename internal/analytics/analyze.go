package analytics

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/persistorai/friendgraph/internal/models"
)

// DefaultTop is the number of ranked nodes included in a Report.
const DefaultTop = 10

// Options configures Analyze.
type Options struct {
	PageRank    PageRankOptions
	Betweenness BetweennessOptions
	// Top is the length of the ranked lists; 0 uses DefaultTop, negative omits them.
	Top int
}

// Analyze computes every metric for g. PageRank and betweenness run
// concurrently; the graph is never modified.
func Analyze(ctx context.Context, g *models.Graph, opts Options) (*models.Report, error) {
	ctx, span := tracer.Start(ctx, "analytics.Analyze")
	defer span.End()

	seq, err := DegreeSequence(g)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		NodeCount:       g.NodeCount(),
		EdgeCount:       g.EdgeCount(),
		Degrees:         Degrees(g),
		DegreeSequence:  seq,
		DegreeHistogram: DegreeHistogram(g),
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		pr, err := PageRank(egCtx, g, opts.PageRank)
		if err != nil {
			return err
		}

		report.PageRank = pr.Scores
		report.PageRankIterations = pr.Iterations
		report.PageRankConverged = pr.Converged

		return nil
	})

	eg.Go(func() error {
		bc, err := Betweenness(egCtx, g, opts.Betweenness)
		if err != nil {
			return err
		}

		report.Betweenness = bc

		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("analyzing graph: %w", err)
	}

	top := opts.Top
	if top == 0 {
		top = DefaultTop
	}

	if top > 0 {
		report.TopPageRank = withNames(g, TopN(report.PageRank, top))
		report.TopBetweenness = withNames(g, TopN(report.Betweenness, top))
	}

	return report, nil
}

// TopN returns the n highest scores, ties broken by ascending id.
func TopN(scores models.Scores, n int) []models.RankedNode {
	out := make([]models.RankedNode, 0, len(scores))
	for id, s := range scores {
		out = append(out, models.RankedNode{ID: id, Score: s})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}

		return out[i].ID < out[j].ID
	})

	if n >= 0 && len(out) > n {
		out = out[:n]
	}

	for i := range out {
		out[i].Rank = i + 1
	}

	return out
}

func withNames(g *models.Graph, ranked []models.RankedNode) []models.RankedNode {
	for i := range ranked {
		if n, ok := g.Node(ranked[i].ID); ok {
			ranked[i].Name = n.Name()
		}
	}

	return ranked
}
