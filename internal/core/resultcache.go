package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/metrics"
	"go.uber.org/zap"
)

// ResultCache stores JSON payloads in a CacheRepository keyed by fingerprint.
// A nil ResultCache, or one built with enabled=false, never hits.
type ResultCache struct {
	repo    CacheRepository
	enabled bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewResultCache creates a new result cache over a repository
func NewResultCache(repo CacheRepository, enabled bool, logger *zap.Logger) *ResultCache {
	return &ResultCache{
		repo:    repo,
		enabled: enabled && repo != nil,
		logger:  logger,
		now:     time.Now,
	}
}

// Fingerprint returns prefix + hex(sha256(data))
func Fingerprint(prefix string, data []byte) string {
	sum := sha256.Sum256(data)
	return prefix + hex.EncodeToString(sum[:])
}

// Load decodes the cached value for key into dst and reports whether it was found
func (c *ResultCache) Load(ctx context.Context, kind, key string, dst any) bool {
	if c == nil || !c.enabled {
		return false
	}

	entry, err := c.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("Cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheRequests.WithLabelValues(kind, "miss").Inc()
		return false
	}

	if err := json.Unmarshal(entry.Value, dst); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.repo.Delete(ctx, key)
		metrics.CacheRequests.WithLabelValues(kind, "miss").Inc()
		return false
	}

	metrics.CacheRequests.WithLabelValues(kind, "hit").Inc()
	c.logger.Debug("Cache hit", zap.String("kind", kind), zap.String("key", key))
	return true
}

// Store writes value under key. A ttl <= 0 stores an entry that never expires.
// Failures are logged, never returned.
func (c *ResultCache) Store(ctx context.Context, kind, key string, value any, ttl time.Duration) {
	if c == nil || !c.enabled {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("kind", kind), zap.Error(err))
		return
	}

	now := c.now()
	entry := &CacheEntry{Key: key, Value: payload, CreatedAt: now}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		entry.ExpiresAt = &expiresAt
	}

	if err := c.repo.Set(ctx, key, entry); err != nil {
		c.logger.Warn("Failed to update cache", zap.String("kind", kind), zap.Error(err))
	}
}
