// Package store persists crawl runs and their graph snapshots.
//
// PGStore keeps runs in PostgreSQL (crawl_runs, crawl_nodes, crawl_edges);
// MemoryStore keeps them in process for DB-less deployments and tests.
// Both return models.ErrRunNotFound for unknown run ids.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/db"
	"github.com/persistorai/friendgraph/internal/dbpool"
)

const (
	defaultQueryTimeout = 30 * time.Second
	defaultListLimit    = 50
	// maxListLimit caps list queries regardless of the requested limit.
	maxListLimit = 500
)

// Base contains shared dependencies for PostgreSQL stores.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// clampLimit maps a requested list size onto [1, maxListLimit].
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}

	return min(limit, maxListLimit)
}

// notify sends a pg_notify on the runs channel (best-effort, post-commit).
func (b *Base) notify(payload db.RunSavedPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		b.Log.WithError(err).Warn("encoding run notification")
		return
	}

	if _, err := b.Pool.Exec(ctx, "SELECT pg_notify($1, $2)", db.RunsChannel, string(data)); err != nil {
		b.Log.WithError(err).WithField("run_id", payload.RunID).Warn("failed to send run notification")
	}
}
