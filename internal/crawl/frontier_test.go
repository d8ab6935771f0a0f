package crawl

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/friendgraph/internal/models"
)

func TestNewFrontier_InvalidBudget(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := NewFrontier("a", n)
		require.ErrorIs(t, err, models.ErrInvalidBudget)
	}
}

func TestFrontier_DepthFirst(t *testing.T) {
	f, err := NewFrontier("seed", 10)
	require.NoError(t, err)

	id, err := f.ExpandNext()
	require.NoError(t, err)
	assert.Equal(t, "seed", id)

	f.Offer("a")
	f.Offer("b")
	f.Offer("c")

	assert.Equal(t, []models.ID{"c", "b", "a"}, f.Pending())

	id, err = f.ExpandNext()
	require.NoError(t, err)
	assert.Equal(t, "c", id)
}

func TestFrontier_BreadthFirst(t *testing.T) {
	f, err := NewFrontier("seed", 10, WithOrder(BreadthFirst))
	require.NoError(t, err)

	_, err = f.ExpandNext()
	require.NoError(t, err)

	f.Offer("a")
	f.Offer("b")

	assert.Equal(t, []models.ID{"a", "b"}, f.Pending())

	id, err := f.ExpandNext()
	require.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestFrontier_Upcoming(t *testing.T) {
	for _, order := range []Order{DepthFirst, BreadthFirst} {
		t.Run(order.String(), func(t *testing.T) {
			f, err := NewFrontier("seed", 10, WithOrder(order))
			require.NoError(t, err)

			_, err = f.ExpandNext()
			require.NoError(t, err)

			f.Offer("a")
			f.Offer("b")
			f.Offer("c")

			peek := f.Upcoming(2)
			require.Len(t, peek, 2)
			assert.Equal(t, f.Pending()[:2], peek)
			assert.Len(t, f.Upcoming(10), 3)
			assert.Empty(t, f.Upcoming(0))

			id, err := f.ExpandNext()
			require.NoError(t, err)
			assert.Equal(t, peek[0], id, "Upcoming does not consume")
		})
	}
}

func TestFrontier_OfferIdempotent(t *testing.T) {
	f, err := NewFrontier("seed", 10)
	require.NoError(t, err)

	f.Offer("seed")
	f.Offer("a")
	f.Offer("a")

	assert.Len(t, f.Pending(), 2)

	first, _ := f.ExpandNext()
	second, _ := f.ExpandNext()
	assert.ElementsMatch(t, []models.ID{"seed", "a"}, []models.ID{first, second})

	// Visited identifiers are never re-queued.
	f.Offer("seed")
	f.Offer("a")
	assert.Empty(t, f.Pending())

	_, err = f.ExpandNext()
	require.ErrorIs(t, err, models.ErrEmptyFrontier)
	assert.Equal(t, 2, f.VisitedCount())
	assert.True(t, f.Visited("a"))
	assert.False(t, f.Visited("b"))
}

func TestFrontier_BudgetExhausted(t *testing.T) {
	f, err := NewFrontier("seed", 3)
	require.NoError(t, err)

	assert.False(t, f.IsBudgetExhausted(2))
	assert.True(t, f.IsBudgetExhausted(3))
	assert.True(t, f.IsBudgetExhausted(4))
}

func TestFrontier_BreadthFirstCompaction(t *testing.T) {
	f, err := NewFrontier("seed", 1000, WithOrder(BreadthFirst))
	require.NoError(t, err)

	for i := 1; i < 200; i++ {
		f.Offer(fmt.Sprintf("u%d", i))
	}

	expanded := 0
	for {
		if _, err := f.ExpandNext(); err != nil {
			break
		}
		expanded++
	}

	assert.Equal(t, 200, expanded)
	assert.Empty(t, f.Pending())
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, DepthFirst, o)

	o, err = ParseOrder("bfs")
	require.NoError(t, err)
	assert.Equal(t, BreadthFirst, o)
	assert.Equal(t, "bfs", o.String())

	_, err = ParseOrder("random")
	require.Error(t, err)
}

func TestBuilder_Dedup(t *testing.T) {
	b := NewBuilder()

	assert.True(t, b.RecordNode("a", map[string]any{"name": "Ann"}))
	assert.False(t, b.RecordNode("a", map[string]any{"name": "Other"}))
	assert.True(t, b.RecordNode("b", nil))

	assert.True(t, b.RecordEdge("a", "b"))
	assert.False(t, b.RecordEdge("b", "a"), "reversed pair is the same edge")
	assert.False(t, b.RecordEdge("a", "a"), "self-loop")
	assert.False(t, b.RecordEdge("a", "missing"), "unknown endpoint")

	assert.Equal(t, 2, b.NodeCount())
	assert.Equal(t, 1, b.EdgeCount())

	g := b.Snapshot()
	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "Ann", n.Name())
}

func TestBuilder_SnapshotIsolation(t *testing.T) {
	b := NewBuilder()
	attrs := map[string]any{"name": "Ann"}
	b.RecordNode("a", attrs)
	attrs["name"] = "mutated"

	g := b.Snapshot()
	b.RecordNode("b", nil)
	b.RecordEdge("a", "b")

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())

	n, _ := g.Node("a")
	assert.Equal(t, "Ann", n.Name())
}

func TestReplay(t *testing.T) {
	nl := models.NodeLink{
		Nodes: []models.NodeLinkNode{
			{ID: "a", Attributes: map[string]any{"name": "Ann"}},
			{ID: "b"},
			{ID: "a", Attributes: map[string]any{"name": "dup"}},
		},
		Links: []models.NodeLinkLink{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
			{Source: "a", Target: "ghost"},
		},
	}

	g := Replay(nl)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())

	n, _ := g.Node("a")
	assert.Equal(t, "Ann", n.Name())
}

func TestSampleFriends(t *testing.T) {
	friends := make([]models.Friend, 10)
	for i := range friends {
		friends[i] = models.Friend{ID: fmt.Sprintf("f%02d", i)}
	}

	assert.Len(t, sampleFriends(rand.New(rand.NewPCG(1, 2)), friends, 0), 10)
	assert.Len(t, sampleFriends(rand.New(rand.NewPCG(1, 2)), friends, 20), 10)

	first := sampleFriends(rand.New(rand.NewPCG(7, 7)), friends, 3)
	again := sampleFriends(rand.New(rand.NewPCG(7, 7)), friends, 3)

	require.Len(t, first, 3)
	assert.Equal(t, first, again, "same seed yields same sample")

	// Source order is preserved.
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].ID, first[i].ID)
	}
}
