package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/llm-fraud-checker/internal/adapters/cache"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/ports"
	"go.uber.org/zap"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cacheCfg := f.cfg.GetCache()

	switch cacheCfg.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger)
	case "mysql":
		return cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger)
	case "redis":
		return cache.NewRedisCache(cacheCfg.RedisAddr, f.logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// CreateResultCache wraps the repository in the typed result cache
func (f *CacheFactory) CreateResultCache(repo core.CacheRepository) *core.ResultCache {
	return core.NewResultCache(repo, f.IsCacheEnabled(), f.logger)
}

// Cleaner returns the repository as a cleaner when it supports on-demand
// cleanup, nil otherwise
func (f *CacheFactory) Cleaner(repo core.CacheRepository) ports.CacheCleaner {
	if c, ok := repo.(ports.CacheCleaner); ok {
		return c
	}
	return nil
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetCache().Enabled
}
