package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60, cfg.Scanner.DefaultIntervalMinutes)
	assert.Equal(t, 2, cfg.Scanner.MaxConcurrentScans)
	assert.Equal(t, 10, cfg.LLM.MaxInFlight)
	assert.Equal(t, int(7*24*3600), cfg.Cache.TTLSeconds)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "devsentry", cfg.Name)
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Scanner.DefaultIntervalMinutes = 15
	cfg.LLM.Model = "custom-model"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15, loaded.Scanner.DefaultIntervalMinutes)
	assert.Equal(t, "custom-model", loaded.LLM.Model)
}

func TestValidateScanIntervalBounds(t *testing.T) {
	assert.Error(t, ValidateScanInterval(4))
	assert.Error(t, ValidateScanInterval(1441))
	assert.NoError(t, ValidateScanInterval(5))
	assert.NoError(t, ValidateScanInterval(1440))
}

func TestRequireLLMKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Provider = "genai"
	cfg.LLM.APIKey = ""
	assert.Error(t, cfg.RequireLLMKey())

	cfg.LLM.Provider = "mock"
	assert.NoError(t, cfg.RequireLLMKey())
}
