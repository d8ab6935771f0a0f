package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/metrics"
	"github.com/persistorai/friendgraph/internal/models"
)

const (
	profileKeyPrefix = "fg:profile:" // fg:profile:{id}
	friendsKeyPrefix = "fg:friends:" // fg:friends:{id}
	defaultCacheTTL  = 24 * time.Hour
)

// Upstream is the source a Cached decorator wraps.
type Upstream interface {
	FetchProfile(ctx context.Context, id models.ID) (map[string]any, error)
	FetchFriends(ctx context.Context, id models.ID) ([]models.Friend, error)
}

// Cached is a read-through Redis cache in front of another source. Only
// successful responses are cached. Redis errors are logged and fall through
// to the upstream so the cache never fails a crawl on its own.
type Cached struct {
	next   Upstream
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// NewCached wraps next with a Redis cache. A ttl <= 0 uses 24h.
func NewCached(next Upstream, client *redis.Client, ttl time.Duration, log *logrus.Logger) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Cached{next: next, client: client, ttl: ttl, log: log}
}

// FetchProfile implements crawl.FriendSource.
func (c *Cached) FetchProfile(ctx context.Context, id models.ID) (map[string]any, error) {
	var profile map[string]any
	if c.lookup(ctx, profileKeyPrefix+id, &profile) {
		return profile, nil
	}

	profile, err := c.next.FetchProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, profileKeyPrefix+id, profile)

	return profile, nil
}

// FetchFriends implements crawl.FriendSource.
func (c *Cached) FetchFriends(ctx context.Context, id models.ID) ([]models.Friend, error) {
	var friends []models.Friend
	if c.lookup(ctx, friendsKeyPrefix+id, &friends) {
		return friends, nil
	}

	friends, err := c.next.FetchFriends(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, friendsKeyPrefix+id, friends)

	return friends, nil
}

// Invalidate drops cached entries for id.
func (c *Cached) Invalidate(ctx context.Context, id models.ID) error {
	if err := c.client.Del(ctx, profileKeyPrefix+id, friendsKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", id, err)
	}

	return nil
}

func (c *Cached) lookup(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheResults.WithLabelValues("miss").Inc()
		return false
	}

	if err != nil {
		metrics.CacheResults.WithLabelValues("error").Inc()
		c.log.WithError(err).WithField("key", key).Warn("source cache read failed")

		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		metrics.CacheResults.WithLabelValues("error").Inc()
		c.log.WithError(err).WithField("key", key).Warn("source cache entry corrupt")

		return false
	}

	metrics.CacheResults.WithLabelValues("hit").Inc()

	return true
}

func (c *Cached) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("encoding source cache entry")
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("source cache write failed")
	}
}
