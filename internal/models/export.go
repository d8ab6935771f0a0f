package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NodeLink is the node-link representation of a graph. Its JSON form matches
// networkx node_link_data: node attributes are flattened next to "id" and
// edges are listed under "links".
type NodeLink struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []NodeLinkNode `json:"nodes"`
	Links      []NodeLinkLink `json:"links"`
}

// NodeLinkNode is one node entry of a NodeLink document.
type NodeLinkNode struct {
	ID         ID
	Attributes map[string]any
}

// NodeLinkLink is one edge entry of a NodeLink document.
type NodeLinkLink struct {
	Source ID `json:"source"`
	Target ID `json:"target"`
}

// ToNodeLink exports a graph snapshot. Nodes and links are ordered deterministically.
func ToNodeLink(g *Graph) NodeLink {
	nl := NodeLink{
		Graph: map[string]any{},
		Nodes: make([]NodeLinkNode, 0, g.NodeCount()),
		Links: make([]NodeLinkLink, 0, g.EdgeCount()),
	}

	for _, n := range g.Nodes() {
		nl.Nodes = append(nl.Nodes, NodeLinkNode{ID: n.ID, Attributes: n.Attributes})
	}

	for _, e := range g.Edges() {
		nl.Links = append(nl.Links, NodeLinkLink{Source: e.A, Target: e.B})
	}

	return nl
}

// MarshalJSON flattens attributes into the node object.
func (n NodeLinkNode) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(n.Attributes)+1)
	for k, v := range n.Attributes {
		obj[k] = v
	}

	obj["id"] = n.ID

	return json.Marshal(obj)
}

// UnmarshalJSON accepts string or numeric ids and collects every other key as an attribute.
func (n *NodeLinkNode) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("decoding node: %w", err)
	}

	raw, ok := obj["id"]
	if !ok {
		return fmt.Errorf("node is missing id")
	}

	id, err := ParseID(raw)
	if err != nil {
		return err
	}

	delete(obj, "id")
	n.ID = id
	n.Attributes = obj

	return nil
}

// UnmarshalJSON accepts string or numeric endpoints.
func (l *NodeLinkLink) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj struct {
		Source any `json:"source"`
		Target any `json:"target"`
	}
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("decoding link: %w", err)
	}

	src, err := ParseID(obj.Source)
	if err != nil {
		return fmt.Errorf("link source: %w", err)
	}

	dst, err := ParseID(obj.Target)
	if err != nil {
		return fmt.Errorf("link target: %w", err)
	}

	l.Source, l.Target = src, dst

	return nil
}

// ParseID converts a decoded JSON value into an ID. Integer literals keep their
// decimal form; numbers with a fraction are rejected.
func ParseID(v any) (ID, error) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return "", fmt.Errorf("id must not be empty")
		}
		return t, nil
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			return s, nil
		}
		f, err := t.Float64()
		if err != nil {
			return "", fmt.Errorf("numeric id %q: %w", s, err)
		}
		return integralID(f)
	case float64:
		return integralID(t)
	case nil:
		return "", fmt.Errorf("id is required")
	default:
		return "", fmt.Errorf("unsupported id type %T", v)
	}
}

func integralID(f float64) (ID, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return "", fmt.Errorf("numeric id %v is not an integer", f)
	}

	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
