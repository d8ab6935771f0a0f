package models_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/persistorai/friendgraph/internal/models"
)

func assertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func assertErrorContains(t *testing.T, err error, want string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}

	if !strings.Contains(err.Error(), want) {
		t.Errorf("expected error containing %q, got %q", want, err.Error())
	}
}

func TestCrawlRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CrawlRequest
		wantErr string
	}{
		{name: "valid", req: models.CrawlRequest{Seed: "123", MaxNodes: 10}},
		{name: "valid bfs", req: models.CrawlRequest{Seed: "123", MaxNodes: 10, Order: "bfs", Workers: 8}},
		{name: "missing seed", req: models.CrawlRequest{MaxNodes: 10}, wantErr: "seed is required"},
		{name: "seed too long", req: models.CrawlRequest{Seed: strings.Repeat("x", 256), MaxNodes: 1}, wantErr: "exceeds maximum length"},
		{name: "zero budget", req: models.CrawlRequest{Seed: "1"}, wantErr: "max nodes must be positive"},
		{name: "negative fan-out", req: models.CrawlRequest{Seed: "1", MaxNodes: 1, MaxFriends: -1}, wantErr: "max_friends must not be negative"},
		{name: "too many workers", req: models.CrawlRequest{Seed: "1", MaxNodes: 1, Workers: 17}, wantErr: "workers must be between"},
		{name: "unknown order", req: models.CrawlRequest{Seed: "1", MaxNodes: 1, Order: "random"}, wantErr: "order must be dfs or bfs"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}

			assertNoError(t, err)
		})
	}
}

func TestNewEdge(t *testing.T) {
	e, ok := models.NewEdge("b", "a")
	if !ok {
		t.Fatal("expected edge to be accepted")
	}

	if e.A != "a" || e.B != "b" {
		t.Errorf("edge not canonical: %+v", e)
	}

	if e.Other("a") != "b" || e.Other("b") != "a" {
		t.Errorf("Other returned wrong endpoint")
	}

	if _, ok := models.NewEdge("a", "a"); ok {
		t.Error("self-loop should be rejected")
	}
}

func TestNewGraph_Dedup(t *testing.T) {
	nodes := []models.Node{
		{ID: "a", Attributes: map[string]any{"name": "Ann"}},
		{ID: "b"},
		{ID: "a", Attributes: map[string]any{"name": "Overwritten"}},
	}
	edges := []models.Edge{
		{A: "a", B: "b"},
		{A: "b", B: "a"},
		{A: "a", B: "a"},
		{A: "a", B: "ghost"},
	}

	g := models.NewGraph(nodes, edges)

	if g.NodeCount() != 2 {
		t.Errorf("NodeCount = %d, want 2", g.NodeCount())
	}

	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}

	n, _ := g.Node("a")
	if n.Name() != "Ann" {
		t.Errorf("first write should win, got name %q", n.Name())
	}

	if g.Degree("a") != 1 || g.Degree("b") != 1 {
		t.Errorf("unexpected degrees a=%d b=%d", g.Degree("a"), g.Degree("b"))
	}
}

func TestGraph_SnapshotIsolation(t *testing.T) {
	attrs := map[string]any{"name": "Ann"}
	g := models.NewGraph([]models.Node{{ID: "a", Attributes: attrs}}, nil)

	attrs["name"] = "Changed"

	n, _ := g.Node("a")
	if n.Name() != "Ann" {
		t.Errorf("graph shares attribute map with caller")
	}

	n.Attributes["name"] = "Mutated"

	again, _ := g.Node("a")
	if again.Name() != "Ann" {
		t.Errorf("Node returned a shared attribute map")
	}
}

func TestNode_FriendCount(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{name: "int", value: 7, want: 7},
		{name: "float", value: float64(12), want: 12},
		{name: "number", value: json.Number("3"), want: 3},
		{name: "string", value: "9", want: 9},
		{name: "missing", value: nil, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := models.Node{ID: "x", Attributes: map[string]any{models.AttrFriendCount: tc.value}}
			if got := n.FriendCount(); got != tc.want {
				t.Errorf("FriendCount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestNodeLink_NetworkxCompatible(t *testing.T) {
	doc := `{"directed": false, "multigraph": false, "graph": {},
		"nodes": [{"id": 123455, "firstName": "Ann"}, {"id": "77", "firstName": "Bob"}],
		"links": [{"source": 123455, "target": "77"}]}`

	var nl models.NodeLink
	if err := json.Unmarshal([]byte(doc), &nl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(nl.Nodes) != 2 || nl.Nodes[0].ID != "123455" {
		t.Fatalf("unexpected nodes: %+v", nl.Nodes)
	}

	if nl.Nodes[0].Attributes["firstName"] != "Ann" {
		t.Errorf("attribute not preserved: %+v", nl.Nodes[0].Attributes)
	}

	if _, ok := nl.Nodes[0].Attributes["id"]; ok {
		t.Error("id should not be duplicated into attributes")
	}

	if nl.Links[0].Source != "123455" || nl.Links[0].Target != "77" {
		t.Errorf("unexpected link: %+v", nl.Links[0])
	}

	out, err := json.Marshal(nl.Nodes[1])
	assertNoError(t, err)

	if !strings.Contains(string(out), `"id":"77"`) || !strings.Contains(string(out), `"firstName":"Bob"`) {
		t.Errorf("node not flattened: %s", out)
	}
}

func TestToNodeLink(t *testing.T) {
	g := models.NewGraph(
		[]models.Node{{ID: "b"}, {ID: "a"}},
		[]models.Edge{{A: "b", B: "a"}},
	)

	nl := models.ToNodeLink(g)

	if nl.Directed || nl.Multigraph {
		t.Error("friendship graphs are undirected simple graphs")
	}

	if len(nl.Nodes) != 2 || nl.Nodes[0].ID != "a" {
		t.Errorf("nodes not ordered: %+v", nl.Nodes)
	}

	if len(nl.Links) != 1 || nl.Links[0].Source != "a" || nl.Links[0].Target != "b" {
		t.Errorf("unexpected links: %+v", nl.Links)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want models.ID
	}{
		{name: "string", in: "u1", want: "u1"},
		{name: "float integer", in: float64(123455), want: "123455"},
		{name: "large float integer", in: float64(1e15), want: "1000000000000000"},
		{name: "number literal", in: json.Number("42"), want: "42"},
		{name: "number exponent", in: json.Number("4.2e1"), want: "42"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := models.ParseID(tc.in)
			if err != nil {
				t.Fatalf("ParseID(%v): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseID(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseID_Errors(t *testing.T) {
	for _, v := range []any{nil, "", true, 1.5, json.Number("2.5"), math.Inf(1)} {
		if _, err := models.ParseID(v); err == nil {
			t.Errorf("ParseID(%v) expected error", v)
		}
	}
}
