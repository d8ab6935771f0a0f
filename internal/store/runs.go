package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/persistorai/friendgraph/internal/db"
	"github.com/persistorai/friendgraph/internal/models"
)

// PGStore persists runs and snapshots in PostgreSQL.
type PGStore struct {
	Base
}

// NewPGStore creates a new PGStore.
func NewPGStore(base Base) *PGStore {
	return &PGStore{Base: base}
}

// SaveRun stores run and its graph in one transaction, then notifies
// listeners on the runs channel.
func (s *PGStore) SaveRun(ctx context.Context, run *models.CrawlRun, g *models.Graph) error {
	if _, err := uuid.Parse(run.ID); err != nil {
		return fmt.Errorf("saving run: invalid id %q: %w", run.ID, err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("saving run: beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	_, err = tx.Exec(ctx, `
		INSERT INTO crawl_runs (id, seed, max_nodes, max_friends, node_count, edge_count,
			expanded, skipped, pending, halt, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.Seed, run.MaxNodes, run.MaxFriends, run.NodeCount, run.EdgeCount,
		run.Expanded, run.Skipped, run.Pending, run.Halt, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	nodeRows := make([][]any, 0, g.NodeCount())

	for i, n := range g.Nodes() {
		attrs, err := json.Marshal(n.Attributes)
		if err != nil {
			return fmt.Errorf("encoding attributes of %s: %w", n.ID, err)
		}

		nodeRows = append(nodeRows, []any{run.ID, n.ID, i, attrs})
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"crawl_nodes"},
		[]string{"run_id", "node_id", "seq", "attributes"}, pgx.CopyFromRows(nodeRows)); err != nil {
		return fmt.Errorf("copying nodes: %w", err)
	}

	edges := g.Edges()
	edgeRows := make([][]any, 0, len(edges))

	for _, e := range edges {
		edgeRows = append(edgeRows, []any{run.ID, e.A, e.B})
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"crawl_edges"},
		[]string{"run_id", "a", "b"}, pgx.CopyFromRows(edgeRows)); err != nil {
		return fmt.Errorf("copying edges: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}

	s.notify(db.RunSavedPayload{
		RunID:     run.ID,
		Seed:      run.Seed,
		NodeCount: run.NodeCount,
		EdgeCount: run.EdgeCount,
		Halt:      run.Halt,
	})

	return nil
}

// GetRun returns the run summary for id.
func (s *PGStore) GetRun(ctx context.Context, id string) (*models.CrawlRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrRunNotFound
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, `SELECT `+runColumns+` FROM crawl_runs WHERE id = $1`, id)

	run, err := scanRun(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrRunNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recently finished runs first.
func (s *PGStore) ListRuns(ctx context.Context, limit int) ([]models.CrawlRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT `+runColumns+` FROM crawl_runs ORDER BY finished_at DESC, id LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []models.CrawlRun{}

	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// LoadGraph rebuilds the snapshot saved with run id.
func (s *PGStore) LoadGraph(ctx context.Context, id string) (*models.Graph, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrRunNotFound
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.BeginReadOnly(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM crawl_runs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking run existence: %w", err)
	}

	if !exists {
		return nil, models.ErrRunNotFound
	}

	nodes, err := loadNodes(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	edges, err := loadEdges(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	return models.NewGraph(nodes, edges), nil
}

func loadNodes(ctx context.Context, tx pgx.Tx, id string) ([]models.Node, error) {
	rows, err := tx.Query(ctx,
		`SELECT node_id, attributes FROM crawl_nodes WHERE run_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node

	for rows.Next() {
		var (
			n     models.Node
			attrs []byte
		)

		if err := rows.Scan(&n.ID, &attrs); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}

		if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
			return nil, fmt.Errorf("decoding attributes of %s: %w", n.ID, err)
		}

		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}

	return nodes, nil
}

func loadEdges(ctx context.Context, tx pgx.Tx, id string) ([]models.Edge, error) {
	rows, err := tx.Query(ctx, `SELECT a, b FROM crawl_edges WHERE run_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var edges []models.Edge

	for rows.Next() {
		var e models.Edge
		if err := rows.Scan(&e.A, &e.B); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}

		edges = append(edges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}

	return edges, nil
}

// DeleteRun removes a run and, by cascade, its snapshot.
func (s *PGStore) DeleteRun(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrRunNotFound
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `DELETE FROM crawl_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrRunNotFound
	}

	return nil
}
