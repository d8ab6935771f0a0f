// Package source provides FriendSource implementations: an in-memory source
// for tests and offline replays, and a Redis read-through cache decorator.
// The REST adapter lives in the httpsource subpackage.
package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/persistorai/friendgraph/internal/models"
)

// Memory is a FriendSource backed by in-process maps. Friend lists are
// returned in insertion order. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	profiles map[models.ID]map[string]any
	friends  map[models.ID][]models.ID
	failures map[models.ID]error
	calls    map[models.ID]int
}

// NewMemory creates an empty Memory source.
func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[models.ID]map[string]any),
		friends:  make(map[models.ID][]models.ID),
		failures: make(map[models.ID]error),
		calls:    make(map[models.ID]int),
	}
}

// FromGraph builds a Memory source that serves the friendships of g, so a
// stored snapshot can be re-crawled with a different budget or order.
func FromGraph(g *models.Graph) *Memory {
	m := NewMemory()

	for _, n := range g.Nodes() {
		m.AddUser(n.ID, n.Attributes)
	}

	for _, id := range g.NodeIDs() {
		m.AddFriends(id, g.Neighbors(id)...)
	}

	return m
}

// AddUser registers a user profile. Calling it again replaces the attributes.
func (m *Memory) AddUser(id models.ID, attrs map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make(map[string]any, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}

	m.profiles[id] = cp
}

// AddFriends appends ids to the friend list of id. Unknown users are created
// with empty profiles. The relation is one-directional, mirroring sources
// whose friend lists are not guaranteed to be symmetric.
func (m *Memory) AddFriends(id models.ID, friends ...models.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensure(id)

	for _, f := range friends {
		m.ensure(f)
		m.friends[id] = append(m.friends[id], f)
	}
}

// Befriend records a symmetric friendship between a and b.
func (m *Memory) Befriend(a, b models.ID) {
	m.AddFriends(a, b)
	m.AddFriends(b, a)
}

// Fail makes every fetch for id return err. A nil err clears the failure.
func (m *Memory) Fail(id models.ID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failures, id)
		return
	}

	m.failures[id] = err
}

// Calls returns how many times the friend list of id was fetched.
func (m *Memory) Calls(id models.ID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.calls[id]
}

// FetchProfile implements crawl.FriendSource.
func (m *Memory) FetchProfile(ctx context.Context, id models.ID) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures[id]; err != nil {
		return nil, err
	}

	if _, ok := m.profiles[id]; !ok {
		return nil, fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}

	return m.profileLocked(id), nil
}

// FetchFriends implements crawl.FriendSource.
func (m *Memory) FetchFriends(ctx context.Context, id models.ID) ([]models.Friend, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
	}

	m.mu.Lock()
	m.calls[id]++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures[id]; err != nil {
		return nil, err
	}

	if _, ok := m.profiles[id]; !ok {
		return nil, fmt.Errorf("friends of %s: %w", id, models.ErrNotFound)
	}

	ids := m.friends[id]
	out := make([]models.Friend, 0, len(ids))

	for _, f := range ids {
		out = append(out, models.Friend{ID: f, Attributes: m.profileLocked(f)})
	}

	return out, nil
}

func (m *Memory) ensure(id models.ID) {
	if _, ok := m.profiles[id]; !ok {
		m.profiles[id] = map[string]any{}
	}
}

// profileLocked copies the profile of id and fills in friend_count when absent.
func (m *Memory) profileLocked(id models.ID) map[string]any {
	src := m.profiles[id]
	out := make(map[string]any, len(src)+1)

	for k, v := range src {
		out[k] = v
	}

	if _, ok := out[models.AttrFriendCount]; !ok {
		out[models.AttrFriendCount] = len(m.friends[id])
	}

	return out
}
