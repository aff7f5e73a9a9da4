package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a cache entry is absent or expired
var ErrNotFound = core.ErrCacheMiss

// MemoryCache is an in-memory implementation of the CacheRepository
// interface. A single mutex guards both paths and expiry is lazy: an expired
// entry is evicted when it is read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*core.CacheEntry
	logger  *zap.Logger
	now     func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*core.CacheEntry),
		logger:  logger,
		now:     time.Now,
	}
}

// Get retrieves a cached entry
func (c *MemoryCache) Get(_ context.Context, key string) (*core.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.Expired(c.now()) {
		delete(c.entries, key)
		c.logger.Debug("Evicted expired cache entry", zap.String("key", key))
		return nil, ErrNotFound
	}
	return copyEntry(entry), nil
}

// Set stores a cache entry, replacing any previous one
func (c *MemoryCache) Set(_ context.Context, key string, entry *core.CacheEntry) error {
	stored := copyEntry(entry)
	stored.Key = key

	c.mu.Lock()
	c.entries[key] = stored
	c.mu.Unlock()
	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired int64
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			expired++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", expired))
	return expired, nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copyEntry(e *core.CacheEntry) *core.CacheEntry {
	c := *e
	c.Value = append([]byte(nil), e.Value...)
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}
