package reputation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mikey/phishshield/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache is a Cache implementation backed by redis, for deployments
// where multiple analyzer instances should share reputation lookups.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a redis-backed reputation cache.
func NewRedisCache(addr, password string, db int, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// GetOrCompute returns the cached value when present; otherwise it computes,
// stores with the configured TTL and returns. Redis failures degrade to a
// plain compute, never to a request failure.
func (c *RedisCache) GetOrCompute(ctx context.Context, key string, compute func() core.SignalResult) core.SignalResult {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var value core.SignalResult
		if unmarshalErr := json.Unmarshal(data, &value); unmarshalErr == nil {
			return value
		}
		c.logger.Warn("Discarding corrupt reputation cache entry", zap.String("key", key))
	} else if err != redis.Nil {
		c.logger.Warn("Reputation cache read failed", zap.Error(err), zap.String("key", key))
	}

	value := compute()

	data, err = json.Marshal(value)
	if err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Reputation cache write failed", zap.Error(err), zap.String("key", key))
		}
	}

	return value
}

// Close releases the redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
