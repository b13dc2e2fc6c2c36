package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wms-core/server/internal/config"
)

// DebounceCache suppresses repeated work within a window: channel sync's
// reactive trigger (§4.10) uses it to avoid re-pushing the same product
// on every balance write in a burst. Acquire reports true only for the
// first caller within the TTL window.
type DebounceCache interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisDebounceCache struct {
	client *redis.Client
}

type noopDebounceCache struct{}

// NewDebounceCache mirrors the teacher's NewDashboardCache/NewStockHealthCache
// shape: redis-backed when enabled, a noop that always allows the work
// through otherwise, so a missing cache degrades to "sync every time"
// rather than failing the caller.
func NewDebounceCache(cfg config.CacheConfig) (DebounceCache, error) {
	if !cfg.Enabled {
		return &noopDebounceCache{}, nil
	}
	client, _, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisDebounceCache{client: client}, nil
}

func NewNoopDebounceCache() DebounceCache {
	return &noopDebounceCache{}
}

func (c *redisDebounceCache) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, debounceKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func (n *noopDebounceCache) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

const debounceKeyPrefix = "debounce:"
