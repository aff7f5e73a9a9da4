package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "disabled", cfg.GetLLM().Provider)
	assert.Equal(t, 30*time.Second, cfg.GetLLM().Timeout)

	ocr := cfg.GetOCR()
	assert.Equal(t, core.OCRModeFast, ocr.Mode)
	assert.Equal(t, 12*time.Second, ocr.TimeBudget)
	assert.Equal(t, 70.0, ocr.EarlyConfidence)
	assert.Equal(t, "por+eng", ocr.Language)

	cache := cfg.GetCache()
	assert.Equal(t, "memory", cache.Type)
	assert.True(t, cache.Enabled)
	assert.Equal(t, 6*time.Hour, cache.URLTTL)
	assert.Equal(t, 24*time.Hour, cache.ImageTTL)
	assert.Equal(t, 12*time.Hour, cache.ClassifierTTL)

	fusion := cfg.GetFusion()
	assert.Equal(t, 0.55, fusion.HeuristicWeight)
	assert.Equal(t, 0.45, fusion.ClassifierWeight)
	assert.Equal(t, 0.60, fusion.FraudThreshold)
	assert.Equal(t, 12, fusion.MaxRedFlags)

	server := cfg.GetServer()
	assert.Equal(t, "X-Fraud-Status", server.StatusHeader)
	assert.Equal(t, 10026, server.PostfixPort)
	assert.Empty(t, server.WhitelistedDomains)
}

func TestOverrides(t *testing.T) {
	v := NewEmptyViper()
	v.Set("ocr.mode", "aggressive")
	v.Set("ocr.time_budget", "not-a-duration")
	v.Set("cache.url_ttl", "90m")
	cfg := NewFromViper(v)

	assert.Equal(t, core.OCRModeAggressive, cfg.GetOCR().Mode)
	assert.Equal(t, 12*time.Second, cfg.GetOCR().TimeBudget, "unparseable durations fall back")
	assert.Equal(t, 90*time.Minute, cfg.GetCache().URLTTL)

	cfg.Set("ocr.mode", "bogus")
	assert.Equal(t, core.OCRModeFast, cfg.GetOCR().Mode)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fraud.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: openai\nocr:\n  mode: aggressive\n"), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, core.OCRModeAggressive, cfg.GetOCR().Mode)
	assert.Equal(t, "api", cfg.GetServer().FilterType)

	_, err = NewFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
