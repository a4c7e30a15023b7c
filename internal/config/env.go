package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides applies environment variable overrides on top of
// whatever was decoded from YAML, mirroring the teacher's precedence-chain
// pattern for provider API keys.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}
	if dir := os.Getenv("REPOS_DIR"); dir != "" {
		c.Repos.Dir = dir
	}
	if tok := os.Getenv("GIT_CREDENTIAL_TOKEN"); tok != "" {
		c.Repos.CredentialToken = tok
	}

	// LLM API key, in priority order (last one wins, matching the teacher).
	if key := os.Getenv("GENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "genai"
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}

	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Embedding.OllamaEndpoint = endpoint
	}
	if model := os.Getenv("OLLAMA_EMBEDDING_MODEL"); model != "" {
		c.Embedding.OllamaModel = model
	}
	if key := os.Getenv("EMBEDDING_GENAI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		if c.Embedding.Provider == "" {
			c.Embedding.Provider = "genai"
		}
	}

	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_SCANS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scanner.MaxConcurrentScans = n
			c.Limits.MaxConcurrentScans = n
		}
	}
	if v := os.Getenv("MAX_LLM_IN_FLIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.MaxInFlight = n
			c.Limits.MaxLLMInFlight = n
		}
	}
	if v := os.Getenv("AUTO_SCAN_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Scanner.AutoScanEnabled = b
		}
	}
	if v := os.Getenv("DEFAULT_SCAN_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scanner.DefaultIntervalMinutes = n
		}
	}
}
