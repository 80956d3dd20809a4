// Package config handles application configuration using Viper.
// Viper merges defaults, an optional YAML file and environment variables, in
// that priority order (env wins).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/fleveque/webacquire/internal/model"
	"github.com/fleveque/webacquire/internal/provider"
	"github.com/fleveque/webacquire/internal/service"
)

// EnvPrefix namespaces environment overrides: WEBACQUIRE_SERVER_PORT=9090
// sets server.port.
const EnvPrefix = "WEBACQUIRE"

// Config is the root configuration struct.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Fanout     FanoutConfig     `mapstructure:"fanout"`
	Search     SearchConfig     `mapstructure:"search"`
	Image      ImageConfig      `mapstructure:"image"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StorageConfig controls the call ledger. An empty DatabasePath disables it.
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type ProxyConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	SerpAPIKey     string        `mapstructure:"serp_api_key"`
	SerpZone       string        `mapstructure:"serp_zone"`
	UnlockerAPIKey string        `mapstructure:"unlocker_api_key"`
	UnlockerZone   string        `mapstructure:"unlocker_zone"`
	AutoEnabled    bool          `mapstructure:"auto_enabled"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	RatePerMinute  int           `mapstructure:"rate_per_minute"`
	Retry          RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type ExtractionConfig struct {
	// ProviderOrder controls which back ends are used and in what order.
	// First provider is primary, rest are fallbacks. Example: ["openai", "anthropic"]
	ProviderOrder  []string      `mapstructure:"provider_order"`
	OpenAI         BackendConfig `mapstructure:"openai"`
	Anthropic      BackendConfig `mapstructure:"anthropic"`
	RatePerMinute  int           `mapstructure:"rate_per_minute"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxInputTokens int           `mapstructure:"max_input_tokens"`
	Encoding       string        `mapstructure:"encoding"`
}

type BackendConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type FanoutConfig struct {
	MaxQueries  int `mapstructure:"max_queries"`
	MaxURLs     int `mapstructure:"max_urls"`
	Concurrency int `mapstructure:"concurrency"`
}

type SearchConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ScholarURL string `mapstructure:"scholar_url"`
}

type ImageConfig struct {
	MaxDimension int `mapstructure:"max_dimension"`
}

// setDefaults registers every key. Viper's AutomaticEnv only overrides keys
// it already knows about, so secrets get empty defaults too.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("log.level", "info")

	v.SetDefault("storage.database_path", "./storage/webacquire.db")

	v.SetDefault("proxy.endpoint", provider.DefaultEndpoint)
	v.SetDefault("proxy.serp_api_key", "")
	v.SetDefault("proxy.serp_zone", "serp_api1_web_search")
	v.SetDefault("proxy.unlocker_api_key", "")
	v.SetDefault("proxy.unlocker_zone", "web_unlocker1")
	v.SetDefault("proxy.auto_enabled", true)
	v.SetDefault("proxy.timeout", 60*time.Second)
	v.SetDefault("proxy.max_body_bytes", 20<<20)
	v.SetDefault("proxy.rate_per_minute", 0)
	v.SetDefault("proxy.retry.max_attempts", 1)
	v.SetDefault("proxy.retry.initial_backoff", 500*time.Millisecond)
	v.SetDefault("proxy.retry.max_backoff", 10*time.Second)

	v.SetDefault("extraction.provider_order", []string{"openai", "anthropic"})
	v.SetDefault("extraction.openai.api_key", "")
	v.SetDefault("extraction.openai.model", provider.DefaultOpenAIModel)
	v.SetDefault("extraction.openai.base_url", "")
	v.SetDefault("extraction.anthropic.api_key", "")
	v.SetDefault("extraction.anthropic.model", provider.DefaultAnthropicModel)
	v.SetDefault("extraction.anthropic.base_url", "")
	v.SetDefault("extraction.rate_per_minute", 60)
	v.SetDefault("extraction.timeout", 90*time.Second)
	v.SetDefault("extraction.max_tokens", 4096)
	v.SetDefault("extraction.temperature", 0.0)
	v.SetDefault("extraction.max_input_tokens", 60000)
	v.SetDefault("extraction.encoding", "o200k_base")

	v.SetDefault("fanout.max_queries", service.DefaultMaxQueries)
	v.SetDefault("fanout.max_urls", service.DefaultMaxURLs)
	v.SetDefault("fanout.concurrency", service.DefaultConcurrency)

	v.SetDefault("search.base_url", "https://www.google.com/search")
	v.SetDefault("search.scholar_url", "https://scholar.google.com/scholar")

	v.SetDefault("image.max_dimension", 2048)
}

// Load reads configuration from a YAML file and environment variables.
// An explicit configPath must exist; otherwise config.yaml is looked up in
// . and ./config and its absence is fine.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// A missing default file is fine (defaults + env are enough); a missing
	// explicit file or a malformed one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "reading config file")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "unmarshaling config")
	}

	return &cfg, nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Settings builds the per-invocation settings handed to the orchestrator.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		SerpAPIKey:     c.Proxy.SerpAPIKey,
		SerpZone:       c.Proxy.SerpZone,
		UnlockerAPIKey: c.Proxy.UnlockerAPIKey,
		UnlockerZone:   c.Proxy.UnlockerZone,
		AutoEnabled:    c.Proxy.AutoEnabled,
		Extraction: model.ExtractionSettings{
			ProviderOrder:    c.Extraction.ProviderOrder,
			OpenAIKey:        c.Extraction.OpenAI.APIKey,
			OpenAIModel:      c.Extraction.OpenAI.Model,
			OpenAIBaseURL:    c.Extraction.OpenAI.BaseURL,
			AnthropicKey:     c.Extraction.Anthropic.APIKey,
			AnthropicModel:   c.Extraction.Anthropic.Model,
			AnthropicBaseURL: c.Extraction.Anthropic.BaseURL,
		},
	}
}

// Limits returns the fan-out bounds.
func (c *Config) Limits() service.Limits {
	return service.Limits{
		MaxQueries:  c.Fanout.MaxQueries,
		MaxURLs:     c.Fanout.MaxURLs,
		Concurrency: c.Fanout.Concurrency,
	}
}

// RetryPolicy returns the proxy retry policy.
func (c *Config) RetryPolicy() provider.RetryPolicy {
	return provider.RetryPolicy{
		MaxAttempts:    c.Proxy.Retry.MaxAttempts,
		InitialBackoff: c.Proxy.Retry.InitialBackoff,
		MaxBackoff:     c.Proxy.Retry.MaxBackoff,
		JitterFraction: 0.25,
	}
}

// ExtractionTuning returns the knobs shared by all extraction calls.
func (c *Config) ExtractionTuning() provider.ExtractionConfig {
	return provider.ExtractionConfig{
		RatePerMinute:  c.Extraction.RatePerMinute,
		Timeout:        c.Extraction.Timeout,
		MaxTokens:      c.Extraction.MaxTokens,
		Temperature:    c.Extraction.Temperature,
		MaxInputTokens: c.Extraction.MaxInputTokens,
		Encoding:       c.Extraction.Encoding,
	}
}
