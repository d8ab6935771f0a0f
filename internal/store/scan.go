package store

import (
	"github.com/persistorai/friendgraph/internal/models"
)

// runColumns lists the columns selected for run queries.
const runColumns = `id::text, seed, max_nodes, max_friends, node_count, edge_count,
	expanded, skipped, pending, halt, started_at, finished_at`

// scanRun scans a single row into a models.CrawlRun.
func scanRun(scan func(dest ...any) error) (*models.CrawlRun, error) {
	var r models.CrawlRun

	err := scan(
		&r.ID,
		&r.Seed,
		&r.MaxNodes,
		&r.MaxFriends,
		&r.NodeCount,
		&r.EdgeCount,
		&r.Expanded,
		&r.Skipped,
		&r.Pending,
		&r.Halt,
		&r.StartedAt,
		&r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = models.StatusDone
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	return &r, nil
}
