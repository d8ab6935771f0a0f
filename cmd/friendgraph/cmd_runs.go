package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistorai/friendgraph/internal/models"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage crawl runs stored on the server",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsGetCmd())
	cmd.AddCommand(runsDeleteCmd())
	cmd.AddCommand(runsGraphCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runs, err := apiClient.Crawls.List(context.Background(), limit)
			if err != nil {
				fatal("list runs", err)
			}
			outputRuns(runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")
	return cmd
}

func runsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a run, including queued and running crawls",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run, err := apiClient.Crawls.Get(context.Background(), args[0])
			if err != nil {
				fatal("get run", err)
			}
			outputRuns([]models.CrawlRun{*run})
		},
	}
}

func runsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a run and its snapshot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Crawls.Delete(context.Background(), args[0]); err != nil {
				fatal("delete run", err)
			}
			output(map[string]string{"deleted": args[0]}, args[0])
		},
	}
}

func runsGraphCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "graph <id>",
		Short: "Download a run's snapshot as node-link JSON",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			export, err := apiClient.Crawls.Graph(context.Background(), args[0])
			if err != nil {
				fatal("get graph", err)
			}
			if err := writeNodeLink(os.Stdout, out, export.NodeLink); err != nil {
				fatal("write graph", err)
			}
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the graph to this file instead of stdout")
	return cmd
}
