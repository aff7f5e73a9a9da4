package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return NewFromFile("")
}

// NewFromFile creates a configuration instance reading the given YAML file.
// An empty path searches the standard locations instead.
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/llm-fraud-checker/")
		v.AddConfigPath("$HOME/.llm-fraud-checker")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("FRAUD_CHECKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "disabled")
	v.SetDefault("llm.timeout", "30s")

	// Server defaults
	v.SetDefault("server.filter_type", "api")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_fraud", false)
	v.SetDefault("server.subject_prefix", "")
	v.SetDefault("server.whitelisted_domains", []string{})
	v.SetDefault("server.headers.status", "X-Fraud-Status")
	v.SetDefault("server.headers.risk", "X-Fraud-Risk")
	v.SetDefault("server.headers.reason", "X-Fraud-Reason")
	v.SetDefault("server.postfix.enabled", true)
	v.SetDefault("server.postfix.address", "localhost")
	v.SetDefault("server.postfix.port", 10026)

	// API defaults
	v.SetDefault("api.listen_address", "0.0.0.0:8080")
	v.SetDefault("api.max_upload_bytes", 10<<20)
	v.SetDefault("api.cors_origins", []string{})
	v.SetDefault("metrics.listen_address", "0.0.0.0:9090")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 800)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 8192)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 800)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 8192)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 8192)

	// OCR defaults
	v.SetDefault("ocr.mode", "fast")
	v.SetDefault("ocr.time_budget", "12s")
	v.SetDefault("ocr.early_confidence", 70.0)
	v.SetDefault("ocr.early_min_chars", 10)
	v.SetDefault("ocr.upscale", 2.0)
	v.SetDefault("ocr.language", "por+eng")
	v.SetDefault("ocr.char_whitelist", "")
	v.SetDefault("ocr.whitelist_bonus", 2.0)
	v.SetDefault("ocr.debug_dir", "")

	// Fetch defaults
	v.SetDefault("fetch.timeout", "8s")
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("fetch.max_redirects", 10)
	v.SetDefault("fetch.user_agent", "llm-fraud-checker/1.0")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.url_ttl", "6h")
	v.SetDefault("cache.image_ttl", "24h")
	v.SetDefault("cache.email_ttl", "24h")
	v.SetDefault("cache.classifier_ttl", "12h")
	v.SetDefault("cache.sqlite_path", "/data/fraud_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/fraud_checker")
	v.SetDefault("cache.redis_addr", "localhost:6379")

	// Stores
	v.SetDefault("brands.allowlist_path", "")
	v.SetDefault("whitelist.path", "./data/safebook.json")

	// Fusion defaults
	v.SetDefault("fusion.heuristic_weight", 0.55)
	v.SetDefault("fusion.classifier_weight", 0.45)
	v.SetDefault("fusion.severity_boost", 0.08)
	v.SetDefault("fusion.brand_boost", 0.06)
	v.SetDefault("fusion.fraud_threshold", 0.60)
	v.SetDefault("fusion.suspicious_threshold", 0.35)
	v.SetDefault("fusion.max_red_flags", 12)
	v.SetDefault("fusion.max_actions", 10)

	// Classifier defaults
	v.SetDefault("classifier.dampening_factor", 0.7)
	v.SetDefault("classifier.excerpt_chars", 1200)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// duration reads a duration, falling back when the value does not parse
func (c *Config) duration(key string, fallback time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil {
		return fallback
	}
	return d
}

// Set overrides a configuration value, used for command-line flags
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
