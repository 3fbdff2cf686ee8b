// redis.go implements the Redis-backed token cache for multi-instance
// deployments, where a rotation on one instance must be visible to all.
package tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces cache keys so the gateway can share a Redis
// database with the rate limiter.
const redisKeyPrefix = "rgw:orgtoken:"

// RedisCache stores organization tokens in Redis with a per-key TTL.
// Redis's own atomicity covers concurrent population; SET and DEL are the
// whole consistency story.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis token cache. The connection is verified with
// a ping so a misconfigured address fails at startup, not on the first
// authentication.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// NewRedisCacheWithClient wraps an existing client (shared with the rate
// limiter).
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached token for orgID. redis.Nil is a per-key miss, not
// an error.
func (c *RedisCache) Get(ctx context.Context, orgID string) (string, bool, error) {
	token, err := c.client.Get(ctx, redisKeyPrefix+orgID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read token cache: %w", err)
	}
	return token, true, nil
}

// Set stores the token for orgID with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, orgID, token string) error {
	if err := c.client.Set(ctx, redisKeyPrefix+orgID, token, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}

// Delete removes orgID's entry.
func (c *RedisCache) Delete(ctx context.Context, orgID string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+orgID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token cache: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
