package config

// LLMConfig configures the LLM Gateway's provider call (spec.md §4.D).
type LLMConfig struct {
	Provider string `yaml:"provider"` // "genai" or "mock"
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"` // per-attempt timeout, spec.md §5

	// MaxInFlight is the global LLM in-flight cap (spec.md §5, default 10).
	MaxInFlight int `yaml:"max_in_flight"`
	// BatchSize is the batch-local semaphore capacity (spec.md §4.D, default 5).
	BatchSize int `yaml:"batch_size"`
	// MaxRetries bounds the exponential-backoff retry loop (spec.md §4.D, default 5).
	MaxRetries int `yaml:"max_retries"`
	// RetryBaseWait / RetryMaxWait parameterize the backoff curve (base 1s, cap 60s).
	RetryBaseWait string `yaml:"retry_base_wait"`
	RetryMaxWait  string `yaml:"retry_max_wait"`
}

// EmbeddingConfig configures the embedding provider used by the RAG Pipeline.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "ollama" or "genai"

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`
	TaskType    string `yaml:"task_type"`
}

// CacheConfig configures the Response Cache's default TTL (spec.md §4.E).
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// LimitsConfig mirrors the concurrency knobs of spec.md §5.
type LimitsConfig struct {
	MaxConcurrentScans int `yaml:"max_concurrent_scans"`
	MaxLLMInFlight     int `yaml:"max_llm_in_flight"`
	BatchConcurrency   int `yaml:"batch_concurrency"`
}

// LoggingConfig configures the category logger (internal/logging).
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
	JSONFormat bool            `yaml:"json_format"`
}
