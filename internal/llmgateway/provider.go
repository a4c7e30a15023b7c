// Package llmgateway is the single entry point for LLM calls: fingerprint,
// cache, provider call, cost ledger (spec.md §4.D). Everything upstream
// of the provider call is store-backed and provider-agnostic; the
// Provider interface is the narrow port spec.md §6 calls "LLM provider
// contract" — implementations for specific vendors live outside the
// core, the way theRebelliousNerd-codenerd's perception package keeps
// GeminiClient behind an LLMClient interface.
package llmgateway

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/logging"
)

// Params carries the provider-independent knobs a request may set.
type Params struct {
	Temperature     float32
	MaxOutputTokens int32
}

// ProviderResult is the raw provider response before cache/ledger
// bookkeeping is applied.
type ProviderResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Provider is the abstract port of spec.md §6: "given (model, prompt,
// params), return (text, prompt_tokens, completion_tokens) or an error
// classified as retriable or terminal." Retriable classification is
// expressed by wrapping the error in apperr.TransientIO; anything else
// is treated as terminal.
type Provider interface {
	Complete(ctx context.Context, model, prompt string, params Params) (ProviderResult, error)
}

// GenAIProvider calls Google's Gemini API for text completion, mirroring
// the request/response shape internal/embedding/genai.go uses for
// embeddings, adapted to genai.Models.GenerateContent's usage-metadata
// fields for token accounting.
type GenAIProvider struct {
	client *genai.Client
}

// NewGenAIProvider dials a GenAI client for text completion.
func NewGenAIProvider(apiKey string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIProvider{client: client}, nil
}

// Complete issues one GenerateContent call and maps its usage metadata
// into prompt/completion token counts for the cost ledger.
func (p *GenAIProvider) Complete(ctx context.Context, model, prompt string, params Params) (ProviderResult, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if params.Temperature > 0 {
		cfg.Temperature = &params.Temperature
	}
	if params.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = params.MaxOutputTokens
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return ProviderResult{}, classifyProviderError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ProviderResult{}, apperr.Provider("genai returned no candidates", nil)
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}

	result := ProviderResult{Text: text}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// classifyProviderError wraps a transport/HTTP failure as
// apperr.TransientIO when it looks retriable (429, 5xx, connection
// reset) per spec.md §4.D, otherwise as apperr.Provider (terminal).
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	if isRetriableProviderError(err) {
		return apperr.TransientIO("genai call failed", err)
	}
	return apperr.Provider("genai call failed", err)
}

// MockProvider is a deterministic, in-memory Provider for tests and for
// environments without a configured API key.
type MockProvider struct {
	Response         string
	PromptTokens     int
	CompletionTokens int
	Err              error
}

// Complete returns the configured canned response or error.
func (m *MockProvider) Complete(ctx context.Context, model, prompt string, params Params) (ProviderResult, error) {
	if m.Err != nil {
		return ProviderResult{}, m.Err
	}
	resp := m.Response
	if resp == "" {
		resp = fmt.Sprintf("mock response for %s", model)
	}
	logging.LLMDebug("mock provider answering model=%s prompt_len=%d", model, len(prompt))
	return ProviderResult{Text: resp, PromptTokens: m.PromptTokens, CompletionTokens: m.CompletionTokens}, nil
}
