// Package models defines data types for the friendship graph.
package models

import (
	"encoding/json"
	"strconv"
)

// ID identifies a user on the friend source. It is opaque to the crawler.
type ID = string

// Well-known node attribute keys.
const (
	AttrName        = "name"
	AttrFriendCount = "friend_count"
)

// Node represents a user in the friendship graph.
type Node struct {
	ID         ID             `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// Name returns the display name attribute, or the ID when none was reported.
func (n *Node) Name() string {
	if s, ok := n.Attributes[AttrName].(string); ok && s != "" {
		return s
	}

	return n.ID
}

// FriendCount returns the friend count reported by the source at discovery time.
func (n *Node) FriendCount() int {
	switch v := n.Attributes[AttrFriendCount].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		i, _ := v.Int64() //nolint:errcheck // non-integer counts read as zero.
		return int(i)
	case string:
		i, _ := strconv.Atoi(v) //nolint:errcheck // non-integer counts read as zero.
		return i
	}

	return 0
}

// Friend is one entry of a user's friend list as returned by the source.
type Friend struct {
	ID         ID             `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// copyAttributes returns a shallow copy so snapshots never share maps with callers.
func copyAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}

	return out
}
