package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"go.uber.org/zap"
)

// sqlCache holds the queries shared by the SQLite and MySQL backends.
// Expired rows are deleted lazily when read.
type sqlCache struct {
	db     *sql.DB
	logger *zap.Logger
	name   string
	upsert string
	now    func() time.Time
}

const (
	selectEntry  = `SELECT cache_value, created_at, expires_at FROM result_cache WHERE cache_key = ?`
	deleteEntry  = `DELETE FROM result_cache WHERE cache_key = ?`
	deleteExpiry = `DELETE FROM result_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`
)

// Get retrieves a cached entry
func (c *sqlCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var (
		value     []byte
		createdAt time.Time
		expiresAt sql.NullTime
	)

	err := c.db.QueryRowContext(ctx, selectEntry, key).Scan(&value, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s cache: %w", c.name, err)
	}

	entry := &core.CacheEntry{Key: key, Value: value, CreatedAt: createdAt}
	if expiresAt.Valid {
		t := expiresAt.Time
		entry.ExpiresAt = &t
	}

	if entry.Expired(c.now()) {
		if _, err := c.db.ExecContext(ctx, deleteEntry, key); err != nil {
			c.logger.Warn("Failed to evict expired cache entry", zap.String("backend", c.name), zap.Error(err))
		}
		return nil, ErrNotFound
	}
	return entry, nil
}

// Set stores a cache entry, replacing any previous one
func (c *sqlCache) Set(ctx context.Context, key string, entry *core.CacheEntry) error {
	var expiresAt sql.NullTime
	if entry.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: entry.ExpiresAt.UTC(), Valid: true}
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.now()
	}

	if _, err := c.db.ExecContext(ctx, c.upsert, key, entry.Value, createdAt.UTC(), expiresAt); err != nil {
		return fmt.Errorf("failed to store %s cache entry: %w", c.name, err)
	}
	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, deleteEntry, key); err != nil {
		return fmt.Errorf("failed to delete %s cache entry: %w", c.name, err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, deleteExpiry, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
		return 0, nil
	}
	c.logger.Debug("Cleaned up expired cache entries",
		zap.String("backend", c.name),
		zap.Int64("expired_count", rowsAffected))
	return rowsAffected, nil
}

// Close closes the database connection
func (c *sqlCache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", c.name, err)
	}
	return nil
}
