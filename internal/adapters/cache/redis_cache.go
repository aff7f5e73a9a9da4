package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"go.uber.org/zap"
)

const redisKeyPrefix = "fraud-checker:"

// RedisCache is a Redis implementation of the CacheRepository interface.
// Expiry is delegated to the key TTL.
type RedisCache struct {
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

type redisRecord struct {
	Value     []byte     `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(addr string, logger *zap.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(rdb, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(rdb *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, logger: logger, now: time.Now}
}

// Get retrieves a cached entry
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	data, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query redis cache: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode redis cache entry: %w", err)
	}

	entry := &core.CacheEntry{Key: key, Value: rec.Value, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}
	if entry.Expired(c.now()) {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Set stores a cache entry. Entries without an expiry never expire.
func (c *RedisCache) Set(ctx context.Context, key string, entry *core.CacheEntry) error {
	var ttl time.Duration
	if entry.ExpiresAt != nil {
		ttl = entry.ExpiresAt.Sub(c.now())
		if ttl <= 0 {
			return c.Delete(ctx, key)
		}
	}

	data, err := json.Marshal(redisRecord{Value: entry.Value, CreatedAt: entry.CreatedAt, ExpiresAt: entry.ExpiresAt})
	if err != nil {
		return fmt.Errorf("failed to encode redis cache entry: %w", err)
	}

	if err := c.rdb.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store redis cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete redis cache entry: %w", err)
	}
	return nil
}

// Close closes the client
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
