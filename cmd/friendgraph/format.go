package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/friendgraph/internal/models"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

func formatTable(headers []string, rows [][]string) {
	writeTable(os.Stdout, headers, rows)
}

func writeTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			width := 0
			if i < len(widths) {
				width = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", width, cell)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(headers)
	seps := make([]string, len(headers))
	for i, width := range widths {
		seps[i] = strings.Repeat("-", width)
	}
	printRow(seps)
	for _, row := range rows {
		printRow(row)
	}
}

func formatQuiet(id string) {
	fmt.Println(id)
}

func output(v any, quietVal string) {
	switch flagFmt {
	case "quiet":
		formatQuiet(quietVal)
	default:
		// Table output is rendered by the callers that support it.
		formatJSON(v)
	}
}

func runRows(runs []models.CrawlRun) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		started := ""
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			r.ID, r.Status, r.Seed,
			strconv.Itoa(r.NodeCount), strconv.Itoa(r.EdgeCount),
			r.Halt, started,
		})
	}
	return rows
}

var runHeaders = []string{"ID", "STATUS", "SEED", "NODES", "EDGES", "HALT", "STARTED"}

func outputRuns(runs []models.CrawlRun) {
	switch flagFmt {
	case "table":
		formatTable(runHeaders, runRows(runs))
	case "quiet":
		for _, r := range runs {
			formatQuiet(r.ID)
		}
	default:
		formatJSON(runs)
	}
}

func rankedRows(ranked []models.RankedNode) [][]string {
	rows := make([][]string, 0, len(ranked))
	for _, n := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(n.Rank), n.ID, n.Name, strconv.FormatFloat(n.Score, 'g', 6, 64),
		})
	}
	return rows
}

func outputReport(w io.Writer, r *models.Report) {
	if flagFmt != "table" {
		formatJSON(r)
		return
	}

	fmt.Fprintf(w, "nodes: %d  edges: %d  pagerank iterations: %d (converged: %t)\n\n",
		r.NodeCount, r.EdgeCount, r.PageRankIterations, r.PageRankConverged)

	headers := []string{"RANK", "ID", "NAME", "SCORE"}
	fmt.Fprintln(w, "PageRank")
	writeTable(w, headers, rankedRows(r.TopPageRank))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Betweenness")
	writeTable(w, headers, rankedRows(r.TopBetweenness))
}
