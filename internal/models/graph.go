package models

import "sort"

// Graph is an immutable snapshot of an undirected, unweighted friendship graph.
// Every edge endpoint has a node. Accessors return copies, so a Graph is safe
// for concurrent readers.
type Graph struct {
	nodes map[ID]Node
	adj   map[ID][]ID
	edges []Edge
}

// NewGraph builds a snapshot from nodes and edges. Duplicate nodes keep the
// first occurrence; duplicate edges, self-loops and edges referencing unknown
// nodes are dropped.
func NewGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		nodes: make(map[ID]Node, len(nodes)),
		adj:   make(map[ID][]ID, len(nodes)),
		edges: make([]Edge, 0, len(edges)),
	}

	for _, n := range nodes {
		if _, ok := g.nodes[n.ID]; ok {
			continue
		}

		g.nodes[n.ID] = Node{ID: n.ID, Attributes: copyAttributes(n.Attributes)}
		g.adj[n.ID] = nil
	}

	seen := make(map[Edge]struct{}, len(edges))

	for _, e := range edges {
		ce, ok := NewEdge(e.A, e.B)
		if !ok {
			continue
		}

		if _, dup := seen[ce]; dup {
			continue
		}

		if !g.HasNode(ce.A) || !g.HasNode(ce.B) {
			continue
		}

		seen[ce] = struct{}{}
		g.edges = append(g.edges, ce)
		g.adj[ce.A] = append(g.adj[ce.A], ce.B)
		g.adj[ce.B] = append(g.adj[ce.B], ce.A)
	}

	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].A != g.edges[j].A {
			return g.edges[i].A < g.edges[j].A
		}

		return g.edges[i].B < g.edges[j].B
	})

	for id := range g.adj {
		sort.Strings(g.adj[id])
	}

	return g
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id ID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id ID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}

	return Node{ID: n.ID, Attributes: copyAttributes(n.Attributes)}, true
}

// NodeIDs returns all node ids in ascending order.
func (g *Graph) NodeIDs() []ID {
	ids := make([]ID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Nodes returns copies of all nodes ordered by id.
func (g *Graph) Nodes() []Node {
	ids := g.NodeIDs()
	out := make([]Node, 0, len(ids))

	for _, id := range ids {
		n, _ := g.Node(id)
		out = append(out, n)
	}

	return out
}

// Edges returns all edges ordered by (A, B).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)

	return out
}

// Neighbors returns the sorted neighbor ids of id.
func (g *Graph) Neighbors(id ID) []ID {
	nbrs := g.adj[id]
	out := make([]ID, len(nbrs))
	copy(out, nbrs)

	return out
}

// Degree returns the number of edges incident to id.
func (g *Graph) Degree(id ID) int { return len(g.adj[id]) }

// Adjacency returns an index-based adjacency list over NodeIDs order.
// Analytics use it to avoid map lookups in their inner loops.
func (g *Graph) Adjacency() (ids []ID, adj [][]int) {
	ids = g.NodeIDs()
	index := make(map[ID]int, len(ids))

	for i, id := range ids {
		index[id] = i
	}

	adj = make([][]int, len(ids))
	for i, id := range ids {
		row := make([]int, 0, len(g.adj[id]))
		for _, n := range g.adj[id] {
			row = append(row, index[n])
		}
		adj[i] = row
	}

	return ids, adj
}
