package api

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"ecommerce-pipeline/sink"
)

const recentCachePrefix = "recent-events"

// RecentCache is a short-TTL cache in front of the sink's recent-events read
// path. A nil Redis client puts it in degraded mode: every lookup misses and
// every store is a no-op, so the sink always serves the request.
type RecentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRecentCache wraps the given client. client may be nil.
func NewRecentCache(client *redis.Client, ttl time.Duration, logger *log.Logger) *RecentCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RecentCache{client: client, ttl: ttl, logger: logger}
}

func recentCacheKey(limit int) string {
	return fmt.Sprintf("%s:%d", recentCachePrefix, limit)
}

// Get returns the cached rows for the given limit, if present.
func (c *RecentCache) Get(ctx context.Context, limit int) ([]sink.Row, bool) {
	if c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, recentCacheKey(limit)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("recent events cache read failed")
		}
		return nil, false
	}
	var rows []sink.Row
	if err := sonic.ConfigStd.Unmarshal(data, &rows); err != nil {
		c.logger.WithError(err).Warn("recent events cache entry invalid")
		return nil, false
	}
	return rows, true
}

// Set stores rows for the given limit with the cache TTL.
func (c *RecentCache) Set(ctx context.Context, limit int, rows []sink.Row) {
	if c.client == nil {
		return
	}
	data, err := sonic.ConfigStd.Marshal(rows)
	if err != nil {
		c.logger.WithError(err).Warn("recent events cache encode failed")
		return
	}
	if err := c.client.Set(ctx, recentCacheKey(limit), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("recent events cache write failed")
	}
}
