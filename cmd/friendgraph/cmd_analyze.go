package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistorai/friendgraph/client"
	"github.com/persistorai/friendgraph/internal/analytics"
	"github.com/persistorai/friendgraph/internal/models"
)

type analyzeFlags struct {
	run        string
	normalized bool
	top        int
	damping    float64
}

func newAnalyzeCmd() *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze [graph.json]",
		Short: "Compute degree, PageRank and betweenness for a graph",
		Long: `Analyze a node-link graph file ("-" reads stdin), or a run stored on
the server with --run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				report *models.Report
				err    error
			)

			switch {
			case f.run != "" && len(args) > 0:
				return fmt.Errorf("give either a graph file or --run, not both")
			case f.run != "":
				report, err = apiClient.Crawls.Analytics(cmd.Context(), f.run, client.AnalyticsOptions{
					Normalized: f.normalized, Top: f.top, Damping: f.damping,
				})
			case len(args) == 1:
				report, err = analyzeFile(cmd.Context(), args[0], f)
			default:
				return fmt.Errorf("a graph file or --run is required")
			}
			if err != nil {
				return err
			}

			outputReport(os.Stdout, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.run, "run", "", "Analyze a stored run on the server")
	cmd.Flags().BoolVar(&f.normalized, "normalized", false, "Normalize betweenness by 2/((n-1)(n-2))")
	cmd.Flags().IntVar(&f.top, "top", 0, "Length of the ranked lists (0 = default, -1 = none)")
	cmd.Flags().Float64Var(&f.damping, "damping", 0, "PageRank damping factor (0 = 0.85)")

	return cmd
}

func analyzeFile(ctx context.Context, path string, f analyzeFlags) (*models.Report, error) {
	g, err := readGraph(path)
	if err != nil {
		return nil, err
	}

	opts := analytics.Options{
		PageRank:    analytics.PageRankOptions{Damping: f.damping},
		Betweenness: analytics.BetweennessOptions{Normalized: f.normalized},
		Top:         f.top,
	}
	if err := opts.PageRank.Validate(); err != nil {
		return nil, err
	}

	return analytics.Analyze(ctx, g, opts)
}
