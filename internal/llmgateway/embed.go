package llmgateway

import (
	"context"
	"encoding/base64"
	"math"
	"time"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/embedding"
	"github.com/kraklabs/devsentry/internal/store"
)

// EmbeddingGateway wraps an embedding.EmbeddingEngine with the same
// retry, cache, and cost-ledger rules as the LLM Gateway applies to
// text completion, tagging ledger rows with the embedding model name
// (spec.md §4.F "Embedding": "same retry and cost-ledger rules as
// §4.D, with model tagged as an embedding model").
type EmbeddingGateway struct {
	store   *store.Store
	engine  embedding.EmbeddingEngine
	backoff BackoffConfig
	ttl     time.Duration
	cost    CostModel
}

// NewEmbeddingGateway wires an embedding engine into the cache/ledger
// accounting path. A nil cost model treats embeddings as free (the
// common case for locally hosted models such as Ollama).
func NewEmbeddingGateway(s *store.Store, engine embedding.EmbeddingEngine, ttl time.Duration, cost CostModel) *EmbeddingGateway {
	return &EmbeddingGateway{store: s, engine: engine, backoff: DefaultBackoffConfig(), ttl: ttl, cost: cost}
}

// Embed caches and accounts for a single-text embedding call, sharing
// the fingerprint space with text completions (a given model+text pair
// always resolves to the same cache row).
func (eg *EmbeddingGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	return eg.EmbedForTask(ctx, text, "")
}

// EmbedForTask is Embed with an explicit GenAI task type (spec.md
// §4.F: indexed documents and search queries are embedded with
// different task types). A blank taskType, or an engine that doesn't
// implement embedding.TaskAwareEngine (Ollama), falls back to the
// engine's own default. The fingerprint includes the task type so a
// document embedded as RETRIEVAL_DOCUMENT and the same text embedded
// as a RETRIEVAL_QUERY don't collide in the cache.
func (eg *EmbeddingGateway) EmbedForTask(ctx context.Context, text string, taskType string) ([]float32, error) {
	fp := Fingerprint(Request{Model: eg.engine.Name(), Prompt: text, Params: map[string]string{"kind": "embedding", "task_type": taskType}})

	if entry, err := eg.store.GetCacheEntry(ctx, fp); err == nil {
		_ = eg.store.RecordCacheHit(ctx, fp)
		_ = eg.store.RecordCostLedgerEntry(ctx, &store.CostLedgerEntry{
			Fingerprint: fp, Provider: "cache", Model: eg.engine.Name(), CacheHit: true, Success: true,
		})
		return decodeVector(entry.ResponseBody), nil
	}

	start := time.Now()
	result, err := retry(ctx, eg.backoff, func() (ProviderResult, error) {
		var vec []float32
		var err error
		if aware, ok := eg.engine.(embedding.TaskAwareEngine); ok && taskType != "" {
			vec, err = aware.EmbedForTask(ctx, text, taskType)
		} else {
			vec, err = eg.engine.Embed(ctx, text)
		}
		if err != nil {
			return ProviderResult{}, classifyProviderError(err)
		}
		return ProviderResult{Text: encodeVector(vec)}, nil
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		_ = eg.store.RecordCostLedgerEntry(ctx, &store.CostLedgerEntry{
			Fingerprint: fp, Provider: "live", Model: eg.engine.Name(), Success: false,
			LatencyMs: latency, ErrorMessage: err.Error(),
		})
		return nil, err
	}

	costUSD := 0.0
	if eg.cost != nil {
		costUSD = eg.cost(eg.engine.Name(), len(text)/4, 0)
	}
	_ = eg.store.PutCacheEntry(ctx, &store.CacheEntry{
		Fingerprint: fp, ResponseBody: result.Text, CostUSD: costUSD,
		ExpiresAt: time.Now().Add(eg.ttl).Unix(),
	})
	_ = eg.store.RecordCostLedgerEntry(ctx, &store.CostLedgerEntry{
		Fingerprint: fp, Provider: "live", Model: eg.engine.Name(), Success: true,
		LatencyMs: latency, CostUSD: costUSD,
	})

	return decodeVector(result.Text), nil
}

// EmbedBatch embeds each text through the cached, ledgered path,
// aborting the whole batch only on a genuinely unrecoverable error —
// individual cache hits and misses are otherwise invisible to callers.
func (eg *EmbeddingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return eg.EmbedBatchForTask(ctx, texts, "")
}

// EmbedBatchForTask is EmbedBatch with every text in the batch tagged
// with the same task type — the Indexer's chunks of one document all
// share the document's task type (spec.md §4.F).
func (eg *EmbeddingGateway) EmbedBatchForTask(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		select {
		case <-ctx.Done():
			return nil, apperr.Cancelled("embedding batch cancelled")
		default:
		}
		vec, err := eg.EmbedForTask(ctx, t, taskType)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions delegates to the wrapped engine.
func (eg *EmbeddingGateway) Dimensions() int { return eg.engine.Dimensions() }

// Name delegates to the wrapped engine.
func (eg *EmbeddingGateway) Name() string { return eg.engine.Name() }

// encodeVector/decodeVector give the cache a portable text encoding for
// a float32 vector (the cache's response_body column is TEXT).
func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math.Float32bits(f)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeVector(s string) []float32 {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(buf)%4 != 0 {
		return nil
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		bits := uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
