package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/persistorai/friendgraph/internal/models"
)

// mockRunStore records calls and returns configured responses.
// Unset funcs fall back to an in-memory map.
type mockRunStore struct {
	mu     sync.Mutex
	calls  []string
	runs   map[string]models.CrawlRun
	graphs map[string]*models.Graph

	saveRun   func(ctx context.Context, run *models.CrawlRun, g *models.Graph) error
	getRun    func(ctx context.Context, id string) (*models.CrawlRun, error)
	loadGraph func(ctx context.Context, id string) (*models.Graph, error)
	deleteRun func(ctx context.Context, id string) error
}

func (m *mockRunStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockRunStore) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRunStore) SaveRun(ctx context.Context, run *models.CrawlRun, g *models.Graph) error {
	m.record("SaveRun")
	if m.saveRun != nil {
		return m.saveRun(ctx, run, g)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[string]models.CrawlRun)
		m.graphs = make(map[string]*models.Graph)
	}
	m.runs[run.ID] = *run
	m.graphs[run.ID] = g
	return nil
}

func (m *mockRunStore) GetRun(ctx context.Context, id string) (*models.CrawlRun, error) {
	m.record("GetRun")
	if m.getRun != nil {
		return m.getRun(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, models.ErrRunNotFound
	}
	return &run, nil
}

func (m *mockRunStore) ListRuns(_ context.Context, _ int) ([]models.CrawlRun, error) {
	m.record("ListRuns")
	return nil, nil
}

func (m *mockRunStore) LoadGraph(ctx context.Context, id string) (*models.Graph, error) {
	m.record("LoadGraph")
	if m.loadGraph != nil {
		return m.loadGraph(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.graphs[id]
	if !ok {
		return nil, models.ErrRunNotFound
	}
	return g, nil
}

func (m *mockRunStore) DeleteRun(ctx context.Context, id string) error {
	m.record("DeleteRun")
	if m.deleteRun != nil {
		return m.deleteRun(ctx, id)
	}
	return nil
}

// publishedEvent is one call to mockPublisher.
type publishedEvent struct {
	Type  string
	RunID string
	Data  any
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockPublisher) Publish(eventType, runID string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{Type: eventType, RunID: runID, Data: data})
}

func (m *mockPublisher) PublishRaw(eventType, runID string, data json.RawMessage) {
	m.Publish(eventType, runID, data)
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
