// Package config provides application-wide configuration: a YAML file
// with env-var overrides and safe defaults, so the binary runs locally
// without any setup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paideia-app/paideia/internal/infra/llm"
)

// Config holds runtime configuration for the paideia service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Catalog lists the models each provider accepts. Maintained as
	// configuration because model identifiers drift with provider
	// releases, not with code changes.
	Catalog llm.ModelCatalog `yaml:"catalog"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"` // PAIDEIA_ADDR — default ":8080"
}

// StoreConfig configures the corpus store.
type StoreConfig struct {
	// Path is the SQLite database file; ":memory:" for tests.
	Path string `yaml:"path"` // PAIDEIA_DB_PATH — default "paideia.db"
	// SemanticWeight blends cosine similarity against keyword overlap
	// in hybrid search, in [0,1].
	SemanticWeight float64 `yaml:"semantic_weight"` // PAIDEIA_SEMANTIC_WEIGHT — default 0.7
}

// GenerationConfig configures the provider gateway and lesson defaults.
type GenerationConfig struct {
	// DefaultProvider serves requests that name no provider.
	DefaultProvider string `yaml:"default_provider"` // PAIDEIA_DEFAULT_PROVIDER — default "echo"
	// OpenAIBaseURL overrides the OpenAI endpoint (compatible gateways).
	OpenAIBaseURL string `yaml:"openai_base_url"` // PAIDEIA_OPENAI_BASE_URL
	// RateLimitRetries and TimeoutRetries bound gateway retries.
	RateLimitRetries int `yaml:"rate_limit_retries"` // default 2
	TimeoutRetries   int `yaml:"timeout_retries"`    // default 1
	// BackoffBaseMillis seeds exponential backoff between retries.
	BackoffBaseMillis int `yaml:"backoff_base_millis"` // default 500
	// TokenBudget caps prompt context size, in approximate tokens.
	TokenBudget int `yaml:"token_budget"` // PAIDEIA_TOKEN_BUDGET — default 2000
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // PAIDEIA_LOG_LEVEL — default "info"
	Development bool   `yaml:"development"`
}

const (
	envKeyAddr            = "PAIDEIA_ADDR"
	envKeyDBPath          = "PAIDEIA_DB_PATH"
	envKeySemanticWeight  = "PAIDEIA_SEMANTIC_WEIGHT"
	envKeyDefaultProvider = "PAIDEIA_DEFAULT_PROVIDER"
	envKeyOpenAIBaseURL   = "PAIDEIA_OPENAI_BASE_URL"
	envKeyTokenBudget     = "PAIDEIA_TOKEN_BUDGET"
	envKeyLogLevel        = "PAIDEIA_LOG_LEVEL"
)

// Default returns the configuration used when no file and no env vars
// are present.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Store: StoreConfig{
			Path:           "paideia.db",
			SemanticWeight: 0.7,
		},
		Generation: GenerationConfig{
			DefaultProvider:   llm.ProviderEcho,
			RateLimitRetries:  2,
			TimeoutRetries:    1,
			BackoffBaseMillis: 500,
			TokenBudget:       2000,
		},
		Logging: LoggingConfig{Level: "info"},
		Catalog: llm.DefaultCatalog(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then env-var overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
		// A file that declares no catalog keeps the default one.
		if len(cfg.Catalog) == 0 {
			cfg.Catalog = llm.DefaultCatalog()
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = envOr(envKeyAddr, cfg.Server.Addr)
	cfg.Store.Path = envOr(envKeyDBPath, cfg.Store.Path)
	cfg.Generation.DefaultProvider = envOr(envKeyDefaultProvider, cfg.Generation.DefaultProvider)
	cfg.Generation.OpenAIBaseURL = envOr(envKeyOpenAIBaseURL, cfg.Generation.OpenAIBaseURL)
	cfg.Logging.Level = envOr(envKeyLogLevel, cfg.Logging.Level)

	if v := os.Getenv(envKeySemanticWeight); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Store.SemanticWeight = f
		}
	}
	if v := os.Getenv(envKeyTokenBudget); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generation.TokenBudget = n
		}
	}
}

func (c Config) validate() error {
	if c.Store.SemanticWeight < 0 || c.Store.SemanticWeight > 1 {
		return fmt.Errorf("config: semantic_weight %v outside [0,1]", c.Store.SemanticWeight)
	}
	if _, ok := c.Catalog[c.Generation.DefaultProvider]; !ok {
		return fmt.Errorf("config: default provider %q has no catalog entry", c.Generation.DefaultProvider)
	}
	if c.Generation.TokenBudget <= 0 {
		return fmt.Errorf("config: token_budget must be positive, got %d", c.Generation.TokenBudget)
	}
	return nil
}

// RetryPolicy converts the generation settings into the gateway's policy.
func (c Config) RetryPolicy() llm.RetryPolicy {
	p := llm.DefaultRetryPolicy()
	p.RateLimitRetries = c.Generation.RateLimitRetries
	p.TimeoutRetries = c.Generation.TimeoutRetries
	if c.Generation.BackoffBaseMillis > 0 {
		p.BaseDelay = time.Duration(c.Generation.BackoffBaseMillis) * time.Millisecond
	}
	return p
}

// envOr returns the value of the environment variable key, or fallback
// if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
