package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEventCache wraps a BillingEventRepository with a Redis SETNX fast path.
// The durable store stays authoritative: a cache hit short-circuits, a cache
// miss or Redis error falls through to the wrapped repository, so dedup
// survives cache eviction and Redis outages (fail open to the database).
type RedisEventCache struct {
	client *redis.Client
	next   BillingEventRepository
	prefix string
	ttl    time.Duration
}

// NewRedisEventCache creates a RedisEventCache in front of next. Keys expire
// after ttl; webhook providers stop redelivering long before that.
func NewRedisEventCache(client *redis.Client, next BillingEventRepository, ttl time.Duration) *RedisEventCache {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisEventCache{
		client: client,
		next:   next,
		prefix: "billing:event:",
		ttl:    ttl,
	}
}

// MarkProcessed records the event reference, returning false when it was
// already recorded.
func (c *RedisEventCache) MarkProcessed(ctx context.Context, eventRef string) (bool, error) {
	key := c.prefix + eventRef

	set, err := c.client.SetNX(ctx, key, 1, c.ttl).Result()
	if err == nil && !set {
		// Seen recently; no need to touch the durable store.
		return false, nil
	}

	first, err := c.next.MarkProcessed(ctx, eventRef)
	if err != nil {
		return false, err
	}
	return first, nil
}

// Unmark drops the reference from both the cache and the durable store.
func (c *RedisEventCache) Unmark(ctx context.Context, eventRef string) error {
	if err := c.next.Unmark(ctx, eventRef); err != nil {
		return err
	}
	// Cache key second: if the durable delete failed we keep the fast path
	// consistent with the store.
	return c.client.Del(ctx, c.prefix+eventRef).Err()
}
