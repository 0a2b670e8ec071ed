package reports

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "activitytracking:reports"

// Cache is a small JSON cache in front of the reporting queries. A nil Cache
// (or nil client) disables caching entirely.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(parts ...string) string {
	return cacheKeyPrefix + ":" + strings.Join(parts, ":")
}

// Get unmarshals a cached value into dest, reporting whether it was found.
func (c *Cache) Get(ctx context.Context, dest any, parts ...string) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, c.key(parts...)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set stores a value. Failures are ignored; the cache is best effort.
func (c *Cache) Set(ctx context.Context, value any, parts ...string) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(parts...), raw, c.ttl)
}

// Invalidate drops all cached report payloads.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}
