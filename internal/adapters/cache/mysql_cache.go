package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlUpsert = `INSERT INTO result_cache (cache_key, cache_value, created_at, expires_at) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE cache_value = VALUES(cache_value), created_at = VALUES(created_at), expires_at = VALUES(expires_at)`

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	sqlCache
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger) (*MySQLCache, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	// timestamps are scanned into time.Time
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS result_cache (
			cache_key VARCHAR(128) PRIMARY KEY,
			cache_value MEDIUMBLOB NOT NULL,
			created_at DATETIME(6) NOT NULL,
			expires_at DATETIME(6) NULL,
			INDEX idx_result_cache_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return NewMySQLCacheFromDB(db, logger), nil
}

// NewMySQLCacheFromDB wraps an already opened MySQL connection pool
func NewMySQLCacheFromDB(db *sql.DB, logger *zap.Logger) *MySQLCache {
	return &MySQLCache{sqlCache{
		db:     db,
		logger: logger,
		name:   "mysql",
		upsert: mysqlUpsert,
		now:    time.Now,
	}}
}
