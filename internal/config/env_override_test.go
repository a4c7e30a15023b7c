package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_LLMProviderPrecedence(t *testing.T) {
	t.Run("GENAI_API_KEY sets provider when empty", func(t *testing.T) {
		t.Setenv("GENAI_API_KEY", "genai-key")
		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "genai-key", cfg.LLM.APIKey)
		assert.Equal(t, "genai", cfg.LLM.Provider)
	})

	t.Run("ANTHROPIC_API_KEY overrides provider unconditionally", func(t *testing.T) {
		t.Setenv("GENAI_API_KEY", "genai-key")
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")
		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "ant-key", cfg.LLM.APIKey)
		assert.Equal(t, "anthropic", cfg.LLM.Provider)
	})
}

func TestEnvOverrides_ScannerKnobs(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_SCANS", "7")
	t.Setenv("AUTO_SCAN_ENABLED", "false")
	t.Setenv("DEFAULT_SCAN_INTERVAL_MINUTES", "30")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, 7, cfg.Scanner.MaxConcurrentScans)
	assert.Equal(t, 7, cfg.Limits.MaxConcurrentScans)
	assert.False(t, cfg.Scanner.AutoScanEnabled)
	assert.Equal(t, 30, cfg.Scanner.DefaultIntervalMinutes)
}

func TestEnvOverrides_RepoAndCache(t *testing.T) {
	t.Setenv("REPOS_DIR", "/var/devsentry/repos")
	t.Setenv("GIT_CREDENTIAL_TOKEN", "ghp_secret")
	t.Setenv("CACHE_TTL_SECONDS", "3600")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/var/devsentry/repos", cfg.Repos.Dir)
	assert.Equal(t, "ghp_secret", cfg.Repos.CredentialToken)
	assert.Equal(t, 3600, cfg.Cache.TTLSeconds)
}
