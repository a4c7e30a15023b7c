// Package config loads and validates devsentry's server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/devsentry/internal/logging"
)

// Config holds all devsentry configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Repos     ReposConfig     `yaml:"repos"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns the documented default configuration (spec.md §6).
func DefaultConfig() *Config {
	return &Config{
		Name:    "devsentry",
		Version: "0.1.0",

		Server: ServerConfig{
			Addr: ":8090",
		},

		Database: DatabaseConfig{
			DataDir: "data",
			URL:     "data/app.db",
		},

		Repos: ReposConfig{
			Dir: "data/repos",
		},

		Scanner: ScannerConfig{
			AutoScanEnabled:        true,
			DefaultIntervalMinutes: 60,
			MaxConcurrentScans:     2,
			ProgressBatchSize:      5,
			TickInterval:           "30s",
		},

		LLM: LLMConfig{
			Provider:      "genai",
			Model:         "grok-fast-reasoning",
			Timeout:       "90s",
			MaxInFlight:   10,
			BatchSize:     5,
			MaxRetries:    5,
			RetryBaseWait: "1s",
			RetryMaxWait:  "60s",
		},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
		},

		Cache: CacheConfig{
			TTLSeconds: 7 * 24 * 3600,
		},

		Limits: LimitsConfig{
			MaxConcurrentScans: 2,
			MaxLLMInFlight:     10,
			BatchConcurrency:   5,
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: llm_provider=%s embedding_provider=%s", cfg.LLM.Provider, cfg.Embedding.Provider)
	return cfg, nil
}

// Save writes configuration to a YAML file, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// GetLLMTimeout returns the per-attempt LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDurationOr(c.LLM.Timeout, 90*time.Second)
}

// GetRetryBaseWait returns the LLM Gateway's retry base wait duration.
func (c *Config) GetRetryBaseWait() time.Duration {
	return parseDurationOr(c.LLM.RetryBaseWait, time.Second)
}

// GetRetryMaxWait returns the LLM Gateway's retry cap duration.
func (c *Config) GetRetryMaxWait() time.Duration {
	return parseDurationOr(c.LLM.RetryMaxWait, 60*time.Second)
}

// GetScanTickInterval returns the auto-scanner supervisor's tick interval.
func (c *Config) GetScanTickInterval() time.Duration {
	return parseDurationOr(c.Scanner.TickInterval, 30*time.Second)
}

// GetCacheTTL returns the default response-cache TTL as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
