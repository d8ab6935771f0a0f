// Package crawl turns a remote friend source into a bounded, deduplicated
// friendship graph.
//
// A Frontier holds the identifiers awaiting expansion, a Builder accumulates
// nodes and edges, and a Crawler drives both against a source.
package crawl

import (
	"fmt"

	"github.com/persistorai/friendgraph/internal/models"
)

// Order selects which pending identifier is expanded next.
type Order int

const (
	// DepthFirst expands the most recently offered identifier first.
	DepthFirst Order = iota
	// BreadthFirst expands the oldest pending identifier first.
	BreadthFirst
)

// ParseOrder maps "dfs"/"bfs" (or empty) to an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "dfs":
		return DepthFirst, nil
	case "bfs":
		return BreadthFirst, nil
	default:
		return DepthFirst, fmt.Errorf("unknown traversal order %q", s)
	}
}

// String returns the short name of the order.
func (o Order) String() string {
	if o == BreadthFirst {
		return "bfs"
	}

	return "dfs"
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithOrder sets the expansion order.
func WithOrder(o Order) FrontierOption {
	return func(f *Frontier) { f.order = o }
}

// Frontier tracks discovered identifiers that have not been expanded yet and
// the set already expanded. It is not safe for concurrent use; the Crawler
// owns it from a single goroutine.
type Frontier struct {
	order    Order
	maxNodes int
	queue    []models.ID
	head     int // first live index when order is BreadthFirst
	pending  map[models.ID]struct{}
	visited  map[models.ID]struct{}
}

// NewFrontier creates a frontier holding only seed.
func NewFrontier(seed models.ID, maxNodes int, opts ...FrontierOption) (*Frontier, error) {
	if maxNodes <= 0 {
		return nil, fmt.Errorf("new frontier with max nodes %d: %w", maxNodes, models.ErrInvalidBudget)
	}

	f := &Frontier{
		maxNodes: maxNodes,
		pending:  make(map[models.ID]struct{}),
		visited:  make(map[models.ID]struct{}),
	}

	for _, o := range opts {
		o(f)
	}

	f.Offer(seed)

	return f, nil
}

// ExpandNext removes the next pending identifier, marks it visited and returns it.
// It returns models.ErrEmptyFrontier when nothing is left to expand.
func (f *Frontier) ExpandNext() (models.ID, error) {
	for f.len() > 0 {
		id := f.pop()
		delete(f.pending, id)

		if _, seen := f.visited[id]; seen {
			continue
		}

		f.visited[id] = struct{}{}

		return id, nil
	}

	return "", models.ErrEmptyFrontier
}

// Offer queues id unless it is already pending or visited.
func (f *Frontier) Offer(id models.ID) {
	if _, ok := f.visited[id]; ok {
		return
	}

	if _, ok := f.pending[id]; ok {
		return
	}

	f.pending[id] = struct{}{}
	f.queue = append(f.queue, id)
}

// IsBudgetExhausted reports whether nodeCount has reached the node budget.
func (f *Frontier) IsBudgetExhausted(nodeCount int) bool {
	return nodeCount >= f.maxNodes
}

// Visited reports whether id has been expanded.
func (f *Frontier) Visited(id models.ID) bool {
	_, ok := f.visited[id]
	return ok
}

// VisitedCount returns the number of expanded identifiers.
func (f *Frontier) VisitedCount() int { return len(f.visited) }

// Pending returns the identifiers awaiting expansion in expansion order.
func (f *Frontier) Pending() []models.ID {
	return f.Upcoming(f.len())
}

// Upcoming returns up to n pending identifiers in expansion order without
// removing them. Its first element is what ExpandNext returns next, provided
// nothing is offered in between.
func (f *Frontier) Upcoming(n int) []models.ID {
	live := f.queue[f.head:]
	n = max(min(n, len(live)), 0)
	out := make([]models.ID, 0, n)

	if f.order == BreadthFirst {
		return append(out, live[:n]...)
	}

	for i := len(live) - 1; len(out) < n; i-- {
		out = append(out, live[i])
	}

	return out
}

func (f *Frontier) len() int { return len(f.queue) - f.head }

func (f *Frontier) pop() models.ID {
	if f.order == BreadthFirst {
		id := f.queue[f.head]
		f.head++

		// Compact once the consumed prefix dominates the backing array.
		if f.head > 64 && f.head*2 > len(f.queue) {
			f.queue = append(f.queue[:0], f.queue[f.head:]...)
			f.head = 0
		}

		return id
	}

	last := len(f.queue) - 1
	id := f.queue[last]
	f.queue = f.queue[:last]

	return id
}
