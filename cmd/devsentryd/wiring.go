package main

import (
	"fmt"

	"github.com/kraklabs/devsentry/internal/analysis"
	"github.com/kraklabs/devsentry/internal/config"
	"github.com/kraklabs/devsentry/internal/embedding"
	"github.com/kraklabs/devsentry/internal/llmgateway"
	"github.com/kraklabs/devsentry/internal/logging"
	"github.com/kraklabs/devsentry/internal/rag"
	"github.com/kraklabs/devsentry/internal/repomanager"
	"github.com/kraklabs/devsentry/internal/scanner"
	"github.com/kraklabs/devsentry/internal/store"
	"github.com/kraklabs/devsentry/internal/tasks"
)

// engine is the full dependency graph a running devsentryd process
// needs; every command that touches the store builds one, even
// commands (like "notes add") that never start the scanner or server.
type engine struct {
	store      *store.Store
	repos      *repomanager.Manager
	gateway    *llmgateway.Gateway
	embedGW    *llmgateway.EmbeddingGateway
	indexer    *rag.Indexer
	searcher   *rag.Searcher
	tasksGen   *tasks.Generator
	analyzer   *analysis.ScanAnalyzer
	supervisor *scanner.Supervisor
}

// buildEngine wires every component from c, matching the provider
// selection devsentryd's config layer documents (spec.md §4.D, §4.F).
// The scanner supervisor is constructed but not started; callers that
// need it running call engine.supervisor.Run with a context they cancel
// to stop it.
func buildEngine(c *config.Config) (*engine, error) {
	s, err := store.Open(defaultDBPathFor(c))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	repos := repomanager.New(s, c.Repos.Dir)

	llmProvider, err := buildLLMProvider(c)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build llm provider: %w", err)
	}
	costModel := costModelFor(c.LLM.Model)
	gw := llmgateway.New(s, llmProvider, costModel, c.GetCacheTTL())
	gw.AttemptTimeout = c.GetLLMTimeout()

	embedEngine, err := embedding.NewEngine(embedding.Config{
		Provider:       c.Embedding.Provider,
		OllamaEndpoint: c.Embedding.OllamaEndpoint,
		OllamaModel:    c.Embedding.OllamaModel,
		GenAIAPIKey:    c.Embedding.GenAIAPIKey,
		GenAIModel:     c.Embedding.GenAIModel,
		TaskType:       c.Embedding.TaskType,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build embedding engine: %w", err)
	}
	embedGW := llmgateway.NewEmbeddingGateway(s, embedEngine, c.GetCacheTTL(), nil)

	indexer := rag.NewIndexer(s, embedGW)
	searcher := rag.NewSearcher(s, embedGW)
	tasksGen := tasks.New(s)
	analyzer := analysis.New(gw, c.LLM.Model)

	supervisor := scanner.NewSupervisor(
		s, repos, analyzer, tasksGen,
		c.GetScanTickInterval(), c.Scanner.MaxConcurrentScans, c.Scanner.ProgressBatchSize,
		c.Repos.CredentialToken,
	)

	return &engine{
		store: s, repos: repos, gateway: gw, embedGW: embedGW,
		indexer: indexer, searcher: searcher, tasksGen: tasksGen,
		analyzer: analyzer, supervisor: supervisor,
	}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}

func defaultDBPathFor(c *config.Config) string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return c.Database.DataDir + "/app.db"
}

// buildLLMProvider resolves the configured provider name to a concrete
// llmgateway.Provider, falling back to the deterministic mock when no
// API key is configured so non-serving commands keep working offline.
func buildLLMProvider(c *config.Config) (llmgateway.Provider, error) {
	if c.LLM.Provider == "mock" || c.LLM.APIKey == "" {
		logging.Boot("llm provider: using mock provider (provider=%s, key configured=%v)", c.LLM.Provider, c.LLM.APIKey != "")
		return &llmgateway.MockProvider{}, nil
	}
	return llmgateway.NewGenAIProvider(c.LLM.APIKey)
}

// costModelFor returns a flat per-token USD rate; devsentryd does not
// ship a per-model pricing table, so every model is billed at the same
// conservative rate until one is configured.
func costModelFor(model string) llmgateway.CostModel {
	const usdPerThousandTokens = 0.002
	return func(_ string, promptTokens, completionTokens int) float64 {
		total := promptTokens + completionTokens
		return float64(total) / 1000.0 * usdPerThousandTokens
	}
}
