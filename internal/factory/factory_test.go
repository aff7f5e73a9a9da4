package factory

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mikey/llm-fraud-checker/internal/adapters/api"
	"github.com/mikey/llm-fraud-checker/internal/adapters/cache"
	"github.com/mikey/llm-fraud-checker/internal/adapters/filter"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(settings map[string]interface{}) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range settings {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestLLMFactory(t *testing.T) {
	logger := zap.NewNop()
	tp := utils.NewTextProcessor(logger)

	client, err := NewLLMFactory(testConfig(nil), logger, tp).CreateLLMClient()
	require.NoError(t, err)
	assert.Nil(t, client, "disabled is the default provider")

	client, err = NewLLMFactory(testConfig(map[string]interface{}{
		"llm.provider":      "OpenAI",
		"openai.api_key":    "sk-test",
		"openai.model_name": "gpt-4o-mini",
	}), logger, tp).CreateLLMClient()
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", client.Name())

	_, err = NewLLMFactory(testConfig(map[string]interface{}{"llm.provider": "gemini"}), logger, tp).CreateLLMClient()
	assert.ErrorContains(t, err, "gemini.api_key")

	_, err = NewLLMFactory(testConfig(map[string]interface{}{"llm.provider": "watson"}), logger, tp).CreateLLMClient()
	assert.ErrorContains(t, err, "unsupported LLM provider")
}

func TestCacheFactory(t *testing.T) {
	logger := zap.NewNop()

	repo, err := NewCacheFactory(testConfig(nil), logger).CreateCacheRepository()
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, repo)

	f := NewCacheFactory(testConfig(map[string]interface{}{
		"cache.type":        "sqlite",
		"cache.sqlite_path": filepath.Join(t.TempDir(), "nested", "cache.db"),
	}), logger)
	repo, err = f.CreateCacheRepository()
	require.NoError(t, err)
	sqlite, ok := repo.(*cache.SQLiteCache)
	require.True(t, ok)
	defer sqlite.Close()
	assert.NotNil(t, f.Cleaner(repo))

	results := f.CreateResultCache(repo)
	results.Store(context.Background(), "url", "url:abc", map[string]string{"k": "v"}, time.Hour)
	var got map[string]string
	assert.True(t, results.Load(context.Background(), "url", "url:abc", &got))
	assert.Equal(t, "v", got["k"])

	mr := miniredis.RunT(t)
	f = NewCacheFactory(testConfig(map[string]interface{}{
		"cache.type":       "redis",
		"cache.redis_addr": mr.Addr(),
	}), logger)
	repo, err = f.CreateCacheRepository()
	require.NoError(t, err)
	assert.IsType(t, &cache.RedisCache{}, repo)
	assert.Nil(t, f.Cleaner(repo), "redis expires entries natively")

	_, err = NewCacheFactory(testConfig(map[string]interface{}{"cache.type": "memcached"}), logger).CreateCacheRepository()
	assert.ErrorContains(t, err, "unsupported cache type")

	assert.False(t, NewCacheFactory(testConfig(map[string]interface{}{"cache.enabled": false}), logger).IsCacheEnabled())
}

func TestPipelineFactoryConfigs(t *testing.T) {
	logger := zap.NewNop()
	f := NewPipelineFactory(testConfig(map[string]interface{}{
		"ocr.language":             "eng",
		"ocr.char_whitelist":       "0123456789",
		"llm.timeout":              "5s",
		"cache.classifier_ttl":     "1h",
		"classifier.excerpt_chars": 600,
		"fusion.fraud_threshold":   0.7,
		"fusion.max_red_flags":     0,
	}), logger, utils.NewTextProcessor(logger))

	oc := f.OCRConfig()
	assert.Equal(t, "eng", oc.Language)
	assert.Equal(t, "0123456789", oc.CharWhitelist)
	assert.Equal(t, 70.0, oc.EarlyConfidence)

	cc := f.ClassifierConfig()
	assert.Equal(t, 5*time.Second, cc.Timeout)
	assert.Equal(t, time.Hour, cc.CacheTTL)
	assert.Equal(t, 600, cc.ExcerptRunes)
	assert.Equal(t, 0.7, cc.DampeningFactor)

	fc := f.FusionConfig()
	assert.Equal(t, 0.7, fc.FraudThreshold)
	assert.Equal(t, 0.55, fc.HeuristicWeight)
	assert.Equal(t, 12, fc.MaxRedFlags, "zero caps keep the defaults")
	assert.Equal(t, 95.0, fc.CriticalRiskPct)
}

func TestPipelineFactoryBuildsStages(t *testing.T) {
	logger := zap.NewNop()
	f := NewPipelineFactory(testConfig(map[string]interface{}{
		"whitelist.path":             filepath.Join(t.TempDir(), "safebook.json"),
		"server.whitelisted_domains": []string{"banco.com.br"},
	}), logger, utils.NewTextProcessor(logger))

	store, err := f.CreateWhitelist()
	require.NoError(t, err)
	assert.Equal(t, []string{"banco.com.br"}, store.Domains())

	assert.NotNil(t, f.CreateBrandGuard())
	assert.NotNil(t, f.CreateHeuristics())
	assert.NotNil(t, f.CreateFuser())
	assert.NotNil(t, f.CreateFetcher())
	assert.NotNil(t, f.CreateEmailParser())
}

type nopAnalyzer struct{}

func (nopAnalyzer) Analyze(context.Context, core.AnalysisInput) (*core.FusedVerdict, error) {
	return &core.FusedVerdict{Label: core.LabelOK}, nil
}

func TestFilterFactory(t *testing.T) {
	logger := zap.NewNop()
	cfg := testConfig(map[string]interface{}{"server.filter_type": "postfix, api"})
	f := NewFilterFactory(cfg, logger, nopAnalyzer{}, nil, nil)

	frontends, err := f.CreateFrontends()
	require.NoError(t, err)
	require.Len(t, frontends, 2)
	assert.IsType(t, &filter.PostfixFilter{}, frontends[0])
	assert.IsType(t, &api.Server{}, frontends[1])

	_, err = f.CreateFrontend("milter")
	assert.ErrorContains(t, err, "unsupported filter type")

	_, err = NewFilterFactory(testConfig(map[string]interface{}{"server.filter_type": " "}), logger, nopAnalyzer{}, nil, nil).CreateFrontends()
	assert.Error(t, err)

	var out bytes.Buffer
	cli := f.CreateCliFilter(&out, false, false)
	_, err = cli.ProcessInput(context.Background(), core.TextInput("hello"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Label: OK")
}
