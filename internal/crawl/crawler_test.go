package crawl_test

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/friendgraph/internal/crawl"
	"github.com/persistorai/friendgraph/internal/models"
	"github.com/persistorai/friendgraph/internal/source"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

func newCrawler(t *testing.T, src crawl.FriendSource, opts crawl.Options) *crawl.Crawler {
	t.Helper()

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 1))
	}

	c, err := crawl.New(src, testLogger(), opts)
	require.NoError(t, err)

	return c
}

func mustEdge(t *testing.T, a, b models.ID) models.Edge {
	t.Helper()

	e, ok := models.NewEdge(a, b)
	require.True(t, ok)

	return e
}

// budgetSource is the four-node example: A -> {B, C}, B -> {A, D}, C -> {A, E}.
func budgetSource() *source.Memory {
	src := source.NewMemory()
	src.AddUser("A", map[string]any{"name": "Alice"})
	src.AddFriends("A", "B", "C")
	src.AddFriends("B", "A", "D")
	src.AddFriends("C", "A", "E")

	return src
}

func TestRun_BudgetScenario(t *testing.T) {
	for _, workers := range []int{1, 0, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			for range 50 {
				src := budgetSource()
				c := newCrawler(t, src, crawl.Options{MaxNodes: 4, Workers: workers})

				res, err := c.Run(context.Background(), "A")
				require.NoError(t, err)

				assert.ElementsMatch(t, []models.ID{"A", "B", "C", "D"}, res.Graph.NodeIDs())
				assert.ElementsMatch(t, []models.Edge{
					mustEdge(t, "A", "B"),
					mustEdge(t, "A", "C"),
					mustEdge(t, "B", "D"),
				}, res.Graph.Edges())

				assert.Equal(t, models.HaltBudget, res.Halt)
				assert.Equal(t, 2, res.Expanded)
				assert.Equal(t, []models.ID{"D", "C"}, res.Pending)
				assert.Zero(t, src.Calls("D"))

				if workers == 1 {
					assert.Zero(t, src.Calls("C"))
				}

				n, ok := res.Graph.Node("A")
				require.True(t, ok)
				assert.Equal(t, "Alice", n.Name())
			}
		})
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	src := source.NewMemory()

	const users = 300
	for i := 0; i < users; i++ {
		for j := 1; j <= 6; j++ {
			src.AddFriends(userID(i), userID((i*7+j*13)%users))
		}
	}

	for _, order := range []crawl.Order{crawl.DepthFirst, crawl.BreadthFirst} {
		t.Run(order.String(), func(t *testing.T) {
			run := func(workers int) (*crawl.Result, []models.ID) {
				var expanded []models.ID

				c := newCrawler(t, src, crawl.Options{
					MaxNodes:   120,
					MaxFriends: 4,
					Workers:    workers,
					Order:      order,
					Rand:       rand.New(rand.NewPCG(7, 7)),
					Observer:   crawl.ObserverFunc(func(ev crawl.Event) { expanded = append(expanded, ev.ID) }),
				})

				res, err := c.Run(context.Background(), userID(0))
				require.NoError(t, err)

				return res, expanded
			}

			want, wantOrder := run(1)

			for _, workers := range []int{0, 8, 16} {
				got, gotOrder := run(workers)

				assert.Equal(t, wantOrder, gotOrder, "workers=%d", workers)
				assert.Equal(t, want.Graph.NodeIDs(), got.Graph.NodeIDs(), "workers=%d", workers)
				assert.Equal(t, want.Graph.Edges(), got.Graph.Edges(), "workers=%d", workers)
				assert.Equal(t, want.Pending, got.Pending, "workers=%d", workers)
				assert.Equal(t, want.Halt, got.Halt)
			}
		})
	}
}

func TestRun_BudgetOfOneLeavesSeedPending(t *testing.T) {
	src := source.NewMemory()
	src.Befriend("A", "B")

	c := newCrawler(t, src, crawl.Options{MaxNodes: 1})

	res, err := c.Run(context.Background(), "A")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Graph.NodeCount())
	assert.Equal(t, models.HaltBudget, res.Halt)
	assert.Equal(t, []models.ID{"A"}, res.Pending)
	assert.Zero(t, res.Expanded)
}

func TestRun_FrontierDrains(t *testing.T) {
	src := source.NewMemory()
	src.Befriend("A", "B")
	src.Befriend("B", "C")
	src.Befriend("A", "C")

	c := newCrawler(t, src, crawl.Options{MaxNodes: 100})

	res, err := c.Run(context.Background(), "A")
	require.NoError(t, err)

	assert.Equal(t, models.HaltFrontier, res.Halt)
	assert.Equal(t, 3, res.Graph.NodeCount())
	assert.Equal(t, 3, res.Graph.EdgeCount())
	assert.Equal(t, 3, res.Expanded)
	assert.Empty(t, res.Pending)

	for _, id := range []models.ID{"A", "B", "C"} {
		assert.Equal(t, 1, src.Calls(id), "each node expanded once: %s", id)
	}
}

func TestRun_BreadthFirst(t *testing.T) {
	src := source.NewMemory()
	src.AddFriends("A", "B", "C")
	src.AddFriends("B", "D")
	src.AddFriends("C", "E")

	var order []models.ID

	c := newCrawler(t, src, crawl.Options{
		MaxNodes: 100,
		Workers:  1,
		Order:    crawl.BreadthFirst,
		Observer: crawl.ObserverFunc(func(ev crawl.Event) { order = append(order, ev.ID) }),
	})

	_, err := c.Run(context.Background(), "A")
	require.NoError(t, err)

	require.Len(t, order, 5)
	assert.Equal(t, models.ID("A"), order[0])
	assert.ElementsMatch(t, []models.ID{"B", "C"}, order[1:3])
	assert.ElementsMatch(t, []models.ID{"D", "E"}, order[3:])
}

func TestRun_SeedUnreachable(t *testing.T) {
	t.Run("unknown seed", func(t *testing.T) {
		c := newCrawler(t, source.NewMemory(), crawl.Options{MaxNodes: 10})

		res, err := c.Run(context.Background(), "ghost")
		require.ErrorIs(t, err, models.ErrSeedUnreachable)
		require.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, res)
	})

	t.Run("seed source down", func(t *testing.T) {
		src := source.NewMemory()
		src.AddUser("A", nil)
		src.Fail("A", fmt.Errorf("%w: connection refused", models.ErrSourceUnavailable))

		c := newCrawler(t, src, crawl.Options{MaxNodes: 10})

		_, err := c.Run(context.Background(), "A")
		require.ErrorIs(t, err, models.ErrSeedUnreachable)
		require.ErrorIs(t, err, models.ErrSourceUnavailable)
	})

	t.Run("seed friends fail", func(t *testing.T) {
		src := source.NewMemory()
		src.Befriend("A", "B")

		c := newCrawler(t, friendsFailing{Memory: src, id: "A"}, crawl.Options{MaxNodes: 10})

		_, err := c.Run(context.Background(), "A")
		require.ErrorIs(t, err, models.ErrSeedUnreachable)
		require.ErrorIs(t, err, models.ErrSourceUnavailable)
	})
}

func TestRun_NonSeedFailureSkipped(t *testing.T) {
	src := source.NewMemory()
	src.AddFriends("A", "B", "C")
	src.AddFriends("B", "D")
	src.AddFriends("C", "E")
	src.Fail("B", fmt.Errorf("%w: timeout", models.ErrSourceUnavailable))

	c := newCrawler(t, src, crawl.Options{MaxNodes: 100, Workers: 1})

	res, err := c.Run(context.Background(), "A")
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, models.ID("B"), res.Skipped[0].ID)
	require.ErrorIs(t, res.Skipped[0].Err, models.ErrSourceUnavailable)

	assert.True(t, res.Graph.HasNode("B"))
	assert.True(t, res.Graph.HasNode("E"))
	assert.False(t, res.Graph.HasNode("D"))
	assert.Equal(t, models.HaltFrontier, res.Halt)
}

func TestRun_ConcurrentBudgetBound(t *testing.T) {
	src := source.NewMemory()

	const users = 300
	for i := 0; i < users; i++ {
		src.AddFriends(userID(i), userID((i+1)%users))

		for j := 1; j <= 6; j++ {
			src.AddFriends(userID(i), userID((i*7+j*13)%users))
		}
	}

	const maxNodes, maxFriends = 50, 5

	c := newCrawler(t, src, crawl.Options{MaxNodes: maxNodes, MaxFriends: maxFriends, Workers: 8})

	res, err := c.Run(context.Background(), userID(0))
	require.NoError(t, err)

	assert.Equal(t, models.HaltBudget, res.Halt)
	assert.GreaterOrEqual(t, res.Graph.NodeCount(), maxNodes)
	assert.LessOrEqual(t, res.Graph.NodeCount(), maxNodes-1+maxFriends)

	for _, e := range res.Graph.Edges() {
		assert.NotEqual(t, e.A, e.B)
		assert.True(t, res.Graph.HasNode(e.A))
		assert.True(t, res.Graph.HasNode(e.B))
	}
}

func TestRun_Cancellation(t *testing.T) {
	src := source.NewMemory()
	src.AddFriends("A", "B", "C")
	src.AddFriends("B", "D")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newCrawler(t, cancelAfter{Memory: src, id: "A", cancel: cancel}, crawl.Options{MaxNodes: 100, Workers: 1})

	res, err := c.Run(ctx, "A")
	require.NoError(t, err)

	assert.Equal(t, models.HaltCancelled, res.Halt)
	assert.Equal(t, 1, res.Expanded)
	assert.ElementsMatch(t, []models.ID{"A", "B", "C"}, res.Graph.NodeIDs())
	assert.ElementsMatch(t, []models.ID{"B", "C"}, res.Pending)
}

func TestRun_CancellationKeepsPrefetchedPending(t *testing.T) {
	for _, workers := range []int{0, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			for range 50 {
				ctx, cancel := context.WithCancel(context.Background())

				src := cancelAfter{Memory: budgetSource(), id: "B", cancel: cancel}
				c := newCrawler(t, src, crawl.Options{MaxNodes: 100, Workers: workers})

				res, err := c.Run(ctx, "A")
				cancel()
				require.NoError(t, err)

				assert.Equal(t, models.HaltCancelled, res.Halt)
				assert.Equal(t, 2, res.Expanded)
				assert.ElementsMatch(t, []models.ID{"A", "B", "C", "D"}, res.Graph.NodeIDs())
				assert.False(t, res.Graph.HasNode("E"), "C was fetched but never applied")
				assert.Equal(t, []models.ID{"D", "C"}, res.Pending)
			}
		})
	}
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := source.NewMemory()
	src.AddUser("A", nil)

	c := newCrawler(t, src, crawl.Options{MaxNodes: 10})

	_, err := c.Run(ctx, "A")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_MaxFriendsSampling(t *testing.T) {
	src := source.NewMemory()
	for i := 1; i <= 20; i++ {
		src.AddFriends("A", userID(i))
	}

	run := func() []models.ID {
		c := newCrawler(t, src, crawl.Options{
			MaxNodes:   100,
			MaxFriends: 4,
			Rand:       rand.New(rand.NewPCG(42, 42)),
		})

		res, err := c.Run(context.Background(), "A")
		require.NoError(t, err)

		return res.Graph.NodeIDs()
	}

	first := run()
	assert.Len(t, first, 5)
	assert.Equal(t, first, run(), "seeded sampling is reproducible")
}

func TestNew_InvalidBudget(t *testing.T) {
	_, err := crawl.New(source.NewMemory(), testLogger(), crawl.Options{})
	require.ErrorIs(t, err, models.ErrInvalidBudget)
}

func userID(i int) models.ID { return fmt.Sprintf("u%03d", i) }

// friendsFailing fails friend-list fetches for one id.
type friendsFailing struct {
	*source.Memory
	id models.ID
}

func (f friendsFailing) FetchFriends(ctx context.Context, id models.ID) ([]models.Friend, error) {
	if id == f.id {
		return nil, fmt.Errorf("%w: 503", models.ErrSourceUnavailable)
	}

	return f.Memory.FetchFriends(ctx, id)
}

// cancelAfter cancels the crawl once the friends of id were served.
type cancelAfter struct {
	*source.Memory
	id     models.ID
	cancel context.CancelFunc
}

func (c cancelAfter) FetchFriends(ctx context.Context, id models.ID) ([]models.Friend, error) {
	friends, err := c.Memory.FetchFriends(ctx, id)
	if id == c.id {
		c.cancel()
	}

	return friends, err
}
