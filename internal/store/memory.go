package store

import (
	"context"
	"sort"
	"sync"

	"github.com/persistorai/friendgraph/internal/models"
)

type memoryRun struct {
	run   models.CrawlRun
	graph *models.Graph
}

// MemoryStore keeps runs in process. Graph snapshots are immutable, so they
// are stored and returned without copying. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]memoryRun
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]memoryRun)}
}

// SaveRun stores run and its graph, replacing any run with the same id.
func (s *MemoryStore) SaveRun(_ context.Context, run *models.CrawlRun, g *models.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = memoryRun{run: *run, graph: g}

	return nil
}

// GetRun returns the run summary for id.
func (s *MemoryStore) GetRun(_ context.Context, id string) (*models.CrawlRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, models.ErrRunNotFound
	}

	run := r.run

	return &run, nil
}

// ListRuns returns the most recently finished runs first.
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]models.CrawlRun, error) {
	s.mu.RLock()
	runs := make([]models.CrawlRun, 0, len(s.runs))

	for _, r := range s.runs {
		runs = append(runs, r.run)
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].FinishedAt.Equal(runs[j].FinishedAt) {
			return runs[i].FinishedAt.After(runs[j].FinishedAt)
		}

		return runs[i].ID < runs[j].ID
	})

	if n := clampLimit(limit); len(runs) > n {
		runs = runs[:n]
	}

	return runs, nil
}

// LoadGraph returns the snapshot saved with run id.
func (s *MemoryStore) LoadGraph(_ context.Context, id string) (*models.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, models.ErrRunNotFound
	}

	return r.graph, nil
}

// DeleteRun removes a run.
func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return models.ErrRunNotFound
	}

	delete(s.runs, id)

	return nil
}
