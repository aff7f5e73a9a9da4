package config

import (
	"time"

	"github.com/mikey/llm-fraud-checker/internal/core"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
	Timeout  time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OCRConfig represents the OCR engine configuration
type OCRConfig struct {
	Mode            core.OCRMode
	TimeBudget      time.Duration
	EarlyConfidence float64
	EarlyMinChars   int
	Upscale         float64
	Language        string
	CharWhitelist   string
	WhitelistBonus  float64
	DebugDir        string
}

// FetchConfig represents the URL fetcher configuration
type FetchConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxRedirects int
	UserAgent    string
}

// CacheConfig represents the result cache configuration
type CacheConfig struct {
	Type          string
	Enabled       bool
	URLTTL        time.Duration
	ImageTTL      time.Duration
	EmailTTL      time.Duration
	ClassifierTTL time.Duration
	SQLitePath    string
	MySQLDSN      string
	RedisAddr     string
}

// FusionConfig represents the score fusion weights
type FusionConfig struct {
	HeuristicWeight     float64
	ClassifierWeight    float64
	SeverityBoost       float64
	BrandBoost          float64
	FraudThreshold      float64
	SuspiciousThreshold float64
	MaxRedFlags         int
	MaxActions          int
}

// ClassifierConfig represents the classifier adapter settings
type ClassifierConfig struct {
	DampeningFactor float64
	ExcerptChars    int
}

// ServerConfig represents the mail filter front-end configuration
type ServerConfig struct {
	FilterType         string
	ListenAddress      string
	BlockFraud         bool
	SubjectPrefix      string
	WhitelistedDomains []string
	StatusHeader       string
	RiskHeader         string
	ReasonHeader       string
	PostfixEnabled     bool
	PostfixAddress     string
	PostfixPort        int
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	ListenAddress  string
	MaxUploadBytes int64
	MetricsAddress string
	CORSOrigins    []string
}

// StoresConfig represents the on-disk stores
type StoresConfig struct {
	AllowlistPath string
	WhitelistPath string
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		Timeout:  c.duration("llm.timeout", 30*time.Second),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetOCR returns the OCR engine configuration
func (c *Config) GetOCR() OCRConfig {
	mode := core.OCRMode(c.GetString("ocr.mode"))
	if mode != core.OCRModeAggressive {
		mode = core.OCRModeFast
	}
	return OCRConfig{
		Mode:            mode,
		TimeBudget:      c.duration("ocr.time_budget", 12*time.Second),
		EarlyConfidence: c.GetFloat64("ocr.early_confidence"),
		EarlyMinChars:   c.GetInt("ocr.early_min_chars"),
		Upscale:         c.GetFloat64("ocr.upscale"),
		Language:        c.GetString("ocr.language"),
		CharWhitelist:   c.GetString("ocr.char_whitelist"),
		WhitelistBonus:  c.GetFloat64("ocr.whitelist_bonus"),
		DebugDir:        c.GetString("ocr.debug_dir"),
	}
}

// GetFetch returns the URL fetcher configuration
func (c *Config) GetFetch() FetchConfig {
	return FetchConfig{
		Timeout:      c.duration("fetch.timeout", 8*time.Second),
		MaxBodyBytes: c.GetInt64("fetch.max_body_bytes"),
		MaxRedirects: c.GetInt("fetch.max_redirects"),
		UserAgent:    c.GetString("fetch.user_agent"),
	}
}

// GetCache returns the result cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:          c.GetString("cache.type"),
		Enabled:       c.GetBool("cache.enabled"),
		URLTTL:        c.duration("cache.url_ttl", 6*time.Hour),
		ImageTTL:      c.duration("cache.image_ttl", 24*time.Hour),
		EmailTTL:      c.duration("cache.email_ttl", 24*time.Hour),
		ClassifierTTL: c.duration("cache.classifier_ttl", 12*time.Hour),
		SQLitePath:    c.GetString("cache.sqlite_path"),
		MySQLDSN:      c.GetString("cache.mysql_dsn"),
		RedisAddr:     c.GetString("cache.redis_addr"),
	}
}

// GetFusion returns the score fusion weights
func (c *Config) GetFusion() FusionConfig {
	return FusionConfig{
		HeuristicWeight:     c.GetFloat64("fusion.heuristic_weight"),
		ClassifierWeight:    c.GetFloat64("fusion.classifier_weight"),
		SeverityBoost:       c.GetFloat64("fusion.severity_boost"),
		BrandBoost:          c.GetFloat64("fusion.brand_boost"),
		FraudThreshold:      c.GetFloat64("fusion.fraud_threshold"),
		SuspiciousThreshold: c.GetFloat64("fusion.suspicious_threshold"),
		MaxRedFlags:         c.GetInt("fusion.max_red_flags"),
		MaxActions:          c.GetInt("fusion.max_actions"),
	}
}

// GetClassifier returns the classifier adapter settings
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		DampeningFactor: c.GetFloat64("classifier.dampening_factor"),
		ExcerptChars:    c.GetInt("classifier.excerpt_chars"),
	}
}

// GetServer returns the mail filter configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:         c.GetString("server.filter_type"),
		ListenAddress:      c.GetString("server.listen_address"),
		BlockFraud:         c.GetBool("server.block_fraud"),
		SubjectPrefix:      c.GetString("server.subject_prefix"),
		WhitelistedDomains: c.GetStringSlice("server.whitelisted_domains"),
		StatusHeader:       c.GetString("server.headers.status"),
		RiskHeader:         c.GetString("server.headers.risk"),
		ReasonHeader:       c.GetString("server.headers.reason"),
		PostfixEnabled:     c.GetBool("server.postfix.enabled"),
		PostfixAddress:     c.GetString("server.postfix.address"),
		PostfixPort:        c.GetInt("server.postfix.port"),
	}
}

// GetAPI returns the HTTP API configuration
func (c *Config) GetAPI() APIConfig {
	return APIConfig{
		ListenAddress:  c.GetString("api.listen_address"),
		MaxUploadBytes: c.GetInt64("api.max_upload_bytes"),
		CORSOrigins:    c.GetStringSlice("api.cors_origins"),
		MetricsAddress: c.GetString("metrics.listen_address"),
	}
}

// GetStores returns the on-disk store locations
func (c *Config) GetStores() StoresConfig {
	return StoresConfig{
		AllowlistPath: c.GetString("brands.allowlist_path"),
		WhitelistPath: c.GetString("whitelist.path"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:      c.GetString("logging.level"),
		Format:     c.GetString("logging.format"),
		File:       c.GetString("logging.file"),
		MaxSizeMB:  c.GetInt("logging.max_size_mb"),
		MaxBackups: c.GetInt("logging.max_backups"),
		MaxAgeDays: c.GetInt("logging.max_age_days"),
	}
}
