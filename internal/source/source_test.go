package source_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/friendgraph/internal/models"
	"github.com/persistorai/friendgraph/internal/source"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())

	return client, mr
}

func TestMemory_FriendsAndProfiles(t *testing.T) {
	m := source.NewMemory()
	m.AddUser("a", map[string]any{"name": "Ann"})
	m.AddFriends("a", "b", "c")

	ctx := context.Background()

	profile, err := m.FetchProfile(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Ann", profile["name"])
	assert.Equal(t, 2, profile[models.AttrFriendCount])

	friends, err := m.FetchFriends(ctx, "a")
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, models.ID("b"), friends[0].ID)
	assert.Equal(t, models.ID("c"), friends[1].ID)

	// Friend lists are directional unless Befriend is used.
	friends, err = m.FetchFriends(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, friends)

	_, err = m.FetchFriends(ctx, "zed")
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 1, m.Calls("a"))
}

func TestMemory_Fail(t *testing.T) {
	m := source.NewMemory()
	m.Befriend("a", "b")

	boom := errors.New("boom")
	m.Fail("a", boom)

	_, err := m.FetchFriends(context.Background(), "a")
	require.ErrorIs(t, err, boom)

	m.Fail("a", nil)

	_, err = m.FetchFriends(context.Background(), "a")
	require.NoError(t, err)
}

func TestMemory_CancelledContext(t *testing.T) {
	m := source.NewMemory()
	m.AddUser("a", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.FetchProfile(ctx, "a")
	require.ErrorIs(t, err, models.ErrSourceUnavailable)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFromGraph(t *testing.T) {
	e1, _ := models.NewEdge("a", "b")
	e2, _ := models.NewEdge("b", "c")
	g := models.NewGraph([]models.Node{
		{ID: "a", Attributes: map[string]any{"name": "Ann"}},
		{ID: "b"},
		{ID: "c"},
	}, []models.Edge{e1, e2})

	m := source.FromGraph(g)

	friends, err := m.FetchFriends(context.Background(), "b")
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, "Ann", friends[0].Attributes["name"])
}

func TestCached_ReadThrough(t *testing.T) {
	client, mr := setupTestRedis(t)

	upstream := source.NewMemory()
	upstream.AddUser("a", map[string]any{"name": "Ann"})
	upstream.AddFriends("a", "b")

	c := source.NewCached(upstream, client, time.Hour, testLogger())
	ctx := context.Background()

	first, err := c.FetchFriends(ctx, "a")
	require.NoError(t, err)

	second, err := c.FetchFriends(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.Calls("a"), "second call served from cache")
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, time.Hour, mr.TTL("fg:friends:a"))

	profile, err := c.FetchProfile(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Ann", profile["name"])
	assert.True(t, mr.Exists("fg:profile:a"))

	require.NoError(t, c.Invalidate(ctx, "a"))
	assert.False(t, mr.Exists("fg:friends:a"))

	_, err = c.FetchFriends(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.Calls("a"))
}

func TestCached_ErrorsNotCached(t *testing.T) {
	client, mr := setupTestRedis(t)

	upstream := source.NewMemory()
	c := source.NewCached(upstream, client, 0, testLogger())

	_, err := c.FetchFriends(context.Background(), "ghost")
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, mr.Exists("fg:friends:ghost"))
}

func TestCached_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)

	upstream := source.NewMemory()
	upstream.AddFriends("a", "b")

	c := source.NewCached(upstream, client, time.Minute, testLogger())
	mr.Close()

	friends, err := c.FetchFriends(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, friends, 1)
}

func TestCached_CorruptEntry(t *testing.T) {
	client, mr := setupTestRedis(t)

	upstream := source.NewMemory()
	upstream.AddFriends("a", "b")
	require.NoError(t, mr.Set("fg:friends:a", "{not json"))

	c := source.NewCached(upstream, client, time.Minute, testLogger())

	friends, err := c.FetchFriends(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, friends, 1)
	assert.Equal(t, 1, upstream.Calls("a"))
}
