package config

import "fmt"

// ValidProviders lists the LLM providers devsentry can call.
var ValidProviders = []string{"genai", "openai", "anthropic", "mock"}

// Validate checks the configuration's invariants at startup (spec.md §7 "Fatal").
func (c *Config) Validate() error {
	if err := ValidateScanInterval(c.Scanner.DefaultIntervalMinutes); err != nil {
		return fmt.Errorf("invalid default scan interval: %w", err)
	}
	if c.Scanner.MaxConcurrentScans < 1 {
		return fmt.Errorf("scanner.max_concurrent_scans must be >= 1")
	}
	if c.LLM.MaxInFlight < 1 {
		return fmt.Errorf("llm.max_in_flight must be >= 1")
	}
	if c.LLM.BatchSize < 1 {
		return fmt.Errorf("llm.batch_size must be >= 1")
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("llm.max_retries must be >= 1")
	}
	if c.Repos.Dir == "" {
		return fmt.Errorf("repos.dir must be set")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url must be set")
	}
	return nil
}

// RequireLLMKey is checked only when the server is about to make real
// provider calls (not at config-load time, so tests and the CLI's
// non-LLM subcommands keep working without a key configured).
func (c *Config) RequireLLMKey() error {
	if c.LLM.Provider != "mock" && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GENAI_API_KEY, OPENAI_API_KEY, or ANTHROPIC_API_KEY)")
	}
	return nil
}
