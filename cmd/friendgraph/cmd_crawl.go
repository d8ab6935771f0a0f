package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/friendgraph/internal/crawl"
	"github.com/persistorai/friendgraph/internal/models"
	"github.com/persistorai/friendgraph/internal/source"
	"github.com/persistorai/friendgraph/internal/source/httpsource"
)

type crawlFlags struct {
	maxNodes   int
	maxFriends int
	workers    int
	order      string
	randSeed   uint64
	timeout    time.Duration

	replay      string
	sourceURL   string
	sourceToken string
	rateLimit   float64
	out         string

	remote bool
	async  bool
}

func newCrawlCmd() *cobra.Command {
	var f crawlFlags

	cmd := &cobra.Command{
		Use:   "crawl <seed>",
		Short: "Crawl the friend graph around a seed user",
		Long: `Crawl outward from a seed user and write the graph as node-link JSON.

By default the crawl runs locally against the REST source (--source-url or
SOURCE_URL) or a saved node-link file (--replay). With --remote the crawl is
started on the server instead and the run summary is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.remote {
				return runRemoteCrawl(cmd.Context(), args[0], f)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runLocalCrawl(ctx, args[0], f, newLogger(flagLevel))
		},
	}

	cmd.Flags().IntVar(&f.maxNodes, "max-nodes", 100, "Node budget")
	cmd.Flags().IntVar(&f.maxFriends, "max-friends", 0, "Friends sampled per expansion (0 = all)")
	cmd.Flags().IntVar(&f.workers, "workers", crawl.DefaultWorkers, "Concurrent friend-list fetches")
	cmd.Flags().StringVar(&f.order, "order", "dfs", "Expansion order: dfs|bfs")
	cmd.Flags().Uint64Var(&f.randSeed, "rand-seed", 0, "Seed for fan-out sampling (0 = random)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Stop expanding after this long and keep the partial graph")
	cmd.Flags().StringVar(&f.replay, "replay", "", "Crawl a saved node-link file instead of the live source")
	cmd.Flags().StringVar(&f.sourceURL, "source-url", os.Getenv("SOURCE_URL"), "Friend source base URL (env: SOURCE_URL)")
	cmd.Flags().StringVar(&f.sourceToken, "source-token", "", "Friend source bearer token (env: SOURCE_TOKEN)")
	cmd.Flags().Float64Var(&f.rateLimit, "rate-limit", 10, "Source requests per second (0 = unlimited)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the graph to this file instead of stdout")
	cmd.Flags().BoolVar(&f.remote, "remote", false, "Run the crawl on the server")
	cmd.Flags().BoolVar(&f.async, "async", false, "With --remote, queue the crawl and return immediately")

	return cmd
}

func (f crawlFlags) request(seed string) models.CrawlRequest {
	return models.CrawlRequest{
		Seed:       seed,
		MaxNodes:   f.maxNodes,
		MaxFriends: f.maxFriends,
		Workers:    f.workers,
		Order:      f.order,
		RandSeed:   f.randSeed,
	}
}

func runRemoteCrawl(ctx context.Context, seed string, f crawlFlags) error {
	req := f.request(seed)

	var (
		run *models.CrawlRun
		err error
	)
	if f.async {
		run, err = apiClient.Crawls.Submit(ctx, req)
	} else {
		run, err = apiClient.Crawls.Start(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("starting remote crawl: %w", err)
	}

	if flagFmt == "table" {
		formatTable(runHeaders, runRows([]models.CrawlRun{*run}))
		return nil
	}
	output(run, run.ID)
	return nil
}

// crawlSource picks the replay file when given, otherwise the REST source.
func crawlSource(f crawlFlags) (crawl.FriendSource, error) {
	if f.replay != "" {
		g, err := readGraph(f.replay)
		if err != nil {
			return nil, err
		}
		return source.FromGraph(g), nil
	}

	if f.sourceURL == "" {
		return nil, fmt.Errorf("no friend source: set --source-url, SOURCE_URL or --replay")
	}

	token := f.sourceToken
	if token == "" {
		token = os.Getenv("SOURCE_TOKEN")
	}

	return httpsource.New(f.sourceURL,
		httpsource.WithToken(token),
		httpsource.WithRateLimit(f.rateLimit, max(1, int(f.rateLimit))),
	), nil
}

func runLocalCrawl(ctx context.Context, seed string, f crawlFlags, log *logrus.Logger) error {
	src, err := crawlSource(f)
	if err != nil {
		return err
	}

	order, err := crawl.ParseOrder(f.order)
	if err != nil {
		return err
	}

	opts := crawl.Options{
		MaxNodes:   f.maxNodes,
		MaxFriends: f.maxFriends,
		Workers:    f.workers,
		Order:      order,
	}
	if f.randSeed != 0 {
		opts.Rand = rand.New(rand.NewPCG(f.randSeed, f.randSeed))
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	c, err := crawl.New(src, log, opts)
	if err != nil {
		return err
	}

	res, err := c.Run(ctx, seed)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"seed":     seed,
		"nodes":    res.Graph.NodeCount(),
		"edges":    res.Graph.EdgeCount(),
		"expanded": res.Expanded,
		"skipped":  len(res.Skipped),
		"pending":  len(res.Pending),
		"halt":     res.Halt,
	}).Info("crawl finished")

	return writeGraph(os.Stdout, f.out, res.Graph)
}
