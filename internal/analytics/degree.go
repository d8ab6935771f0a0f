// Package analytics computes structural metrics over an immutable friendship
// graph snapshot: degree sequence and histogram, PageRank and betweenness
// centrality. Every function is a pure read of its input and safe to call
// concurrently on the same graph.
package analytics

import (
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"

	"github.com/persistorai/friendgraph/internal/models"
)

var tracer = otel.Tracer("friendgraph/analytics")

// Degrees returns the degree of every node.
func Degrees(g *models.Graph) map[models.ID]int {
	out := make(map[models.ID]int, g.NodeCount())
	for _, id := range g.NodeIDs() {
		out[id] = g.Degree(id)
	}

	return out
}

// DegreeSequence returns one degree per node, sorted descending.
func DegreeSequence(g *models.Graph) ([]int, error) {
	if g.NodeCount() == 0 {
		return nil, fmt.Errorf("degree sequence: %w", models.ErrEmptyGraph)
	}

	seq := make([]int, 0, g.NodeCount())
	for _, id := range g.NodeIDs() {
		seq = append(seq, g.Degree(id))
	}

	sort.Sort(sort.Reverse(sort.IntSlice(seq)))

	return seq, nil
}

// DegreeHistogram maps each degree to the number of nodes with it. An empty
// graph yields an empty map.
func DegreeHistogram(g *models.Graph) map[int]int {
	hist := make(map[int]int)
	for _, id := range g.NodeIDs() {
		hist[g.Degree(id)]++
	}

	return hist
}
