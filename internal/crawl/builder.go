package crawl

import (
	"sync"

	"github.com/persistorai/friendgraph/internal/models"
)

// Builder accumulates deduplicated nodes and edges. Attributes are first-write-wins.
// Methods are safe for concurrent use, although the Crawler only writes from
// one goroutine.
type Builder struct {
	mu    sync.RWMutex
	nodes map[models.ID]models.Node
	order []models.ID
	edges map[models.Edge]struct{}
	elist []models.Edge
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[models.ID]models.Node),
		edges: make(map[models.Edge]struct{}),
	}
}

// RecordNode inserts id with attrs if it is not already present.
// It reports whether a node was added.
func (b *Builder) RecordNode(id models.ID, attrs map[string]any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.nodes[id]; ok {
		return false
	}

	cp := make(map[string]any, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}

	b.nodes[id] = models.Node{ID: id, Attributes: cp}
	b.order = append(b.order, id)

	return true
}

// RecordEdge inserts the unordered pair {from, to} when both endpoints exist, the
// pair is new and from != to. It reports whether an edge was added.
func (b *Builder) RecordEdge(from, to models.ID) bool {
	e, ok := models.NewEdge(from, to)
	if !ok {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.nodes[e.A]; !ok {
		return false
	}

	if _, ok := b.nodes[e.B]; !ok {
		return false
	}

	if _, dup := b.edges[e]; dup {
		return false
	}

	b.edges[e] = struct{}{}
	b.elist = append(b.elist, e)

	return true
}

// NodeCount returns the number of unique nodes recorded.
func (b *Builder) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.nodes)
}

// EdgeCount returns the number of unique edges recorded.
func (b *Builder) EdgeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.elist)
}

// Snapshot returns an immutable copy of the graph built so far.
func (b *Builder) Snapshot() *models.Graph {
	b.mu.RLock()
	defer b.mu.RUnlock()

	nodes := make([]models.Node, 0, len(b.order))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id])
	}

	return models.NewGraph(nodes, b.elist)
}

// Replay rebuilds a graph from node-link data by feeding it through a Builder,
// so the result obeys the same dedup rules as a live crawl.
func Replay(nl models.NodeLink) *models.Graph {
	b := NewBuilder()

	for _, n := range nl.Nodes {
		b.RecordNode(n.ID, n.Attributes)
	}

	for _, l := range nl.Links {
		b.RecordEdge(l.Source, l.Target)
	}

	return b.Snapshot()
}
