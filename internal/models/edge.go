package models

// Edge is an undirected friendship between two distinct users.
// A always sorts before B so the same pair has a single representation.
type Edge struct {
	A ID `json:"a"`
	B ID `json:"b"`
}

// NewEdge builds the canonical edge for the pair. It reports false for self-loops.
func NewEdge(a, b ID) (Edge, bool) {
	if a == b {
		return Edge{}, false
	}

	if b < a {
		a, b = b, a
	}

	return Edge{A: a, B: b}, true
}

// Other returns the endpoint opposite id.
func (e Edge) Other(id ID) ID {
	if e.A == id {
		return e.B
	}

	return e.A
}
