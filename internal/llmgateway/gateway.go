package llmgateway

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/logging"
	"github.com/kraklabs/devsentry/internal/metrics"
	"github.com/kraklabs/devsentry/internal/store"
)

// Result is the outcome of Ask: spec.md §4.D "ask(request) → Result
// {response_text, tokens_used, cost_micros, cache_hit}".
type Result struct {
	ResponseText     string
	PromptTokens     int
	CompletionTokens int
	CostMicros       int64
	CacheHit         bool
}

// CostModel converts token counts into a USD cost so the ledger and
// cache stay denominated consistently. Supplied per-model because
// providers price prompt/completion tokens differently.
type CostModel func(model string, promptTokens, completionTokens int) float64

// Gateway is the single entry point for LLM calls (spec.md §4.D). It
// owns fingerprinting, cache consultation, the provider call with
// backoff, singleflight de-duplication, and the append-only cost
// ledger.
type Gateway struct {
	store    *store.Store
	provider Provider
	cost     CostModel
	backoff  BackoffConfig
	ttl      time.Duration
	group    singleflight.Group

	// AttemptTimeout bounds a single provider call (spec.md §5: LLM
	// calls per-attempt 90s). TotalTimeout bounds the whole retry loop
	// (spec.md §5: total 10 minutes across retries).
	AttemptTimeout time.Duration
	TotalTimeout   time.Duration
}

// New wires a store, provider, and cost model into a Gateway with the
// documented defaults (spec.md §4.D, §5).
func New(s *store.Store, provider Provider, cost CostModel, ttl time.Duration) *Gateway {
	return &Gateway{
		store:          s,
		provider:       provider,
		cost:           cost,
		backoff:        DefaultBackoffConfig(),
		ttl:            ttl,
		AttemptTimeout: 90 * time.Second,
		TotalTimeout:   10 * time.Minute,
	}
}

// Ask implements spec.md §4.D steps 1-6: canonicalize, fingerprint,
// consult cache, on miss call the provider under backoff with
// singleflight de-duplication, then write exactly one cost-ledger row
// regardless of outcome.
func (g *Gateway) Ask(ctx context.Context, req Request, repoID *string) (Result, error) {
	fp := Fingerprint(req)

	if entry, err := g.store.GetCacheEntry(ctx, fp); err == nil {
		_ = g.store.RecordCacheHit(ctx, fp)
		_ = g.store.LogEvent(ctx, repoID, "cache_hit", "llm response served from cache", nil, "info")
		_ = g.store.RecordCostLedgerEntry(ctx, &store.CostLedgerEntry{
			Fingerprint: fp, RepoID: repoID, Provider: "cache", Model: req.Model,
			CacheHit: true, Success: true,
			PromptTokens: entry.PromptTokens, CompletionTokens: entry.CompletionTokens,
		})
		metrics.LLMCallsTotal.WithLabelValues("hit", "true").Inc()
		return Result{
			ResponseText:     entry.ResponseBody,
			PromptTokens:     entry.PromptTokens,
			CompletionTokens: entry.CompletionTokens,
			CostMicros:       0,
			CacheHit:         true,
		}, nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		logging.Get(logging.CategoryLLM).Warn("cache lookup failed, falling through to provider: %v", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.TotalTimeout)
	defer cancel()

	metrics.LLMInFlight.Inc()
	defer metrics.LLMInFlight.Dec()
	timer := metrics.NewTimer(metrics.LLMLatency)

	start := time.Now()
	// singleflight collapses concurrent Ask calls sharing a fingerprint
	// into one provider call (spec.md §4.D "Concurrency"). ran records
	// whether this goroutine actually ran fn or was handed another
	// caller's in-flight result (Do's own shared result is true for every
	// caller once a duplicate joined, the runner included); only the
	// runner may charge cost or populate the cache, or a duplicate request
	// would be billed twice (spec.md §9 "ledger is the source of truth").
	ran := false
	v, err, _ := g.group.Do(fp, func() (interface{}, error) {
		ran = true
		return retry(callCtx, g.backoff, func() (ProviderResult, error) {
			attemptCtx, attemptCancel := context.WithTimeout(callCtx, g.AttemptTimeout)
			defer attemptCancel()
			return g.provider.Complete(attemptCtx, req.Model, req.Prompt, paramsFrom(req.Params))
		})
	})
	latency := time.Since(start).Milliseconds()
	timer.Stop()
	shared := !ran

	if err != nil {
		kind := apperr.KindProvider
		if errors.Is(err, context.Canceled) || apperr.Is(err, apperr.KindCancelled) {
			kind = apperr.KindCancelled
		}
		if !shared {
			_ = g.store.LogEvent(ctx, repoID, "system", "llm call failed: "+err.Error(), nil, "warn")
			metrics.LLMCallsTotal.WithLabelValues("miss", "false").Inc()
		}
		_ = g.store.RecordCostLedgerEntry(ctx, &store.CostLedgerEntry{
			Fingerprint: fp, RepoID: repoID, Provider: "live", Model: req.Model,
			CacheHit: false, Success: false, LatencyMs: latency, ErrorMessage: err.Error(),
		})
		return Result{}, apperr.Wrap(kind, "llm call failed", err)
	}

	pr := v.(ProviderResult)

	if shared {
		// Another goroutine's call covered this fingerprint; this caller
		// incurred no additional cost and wrote nothing to the cache.
		_ = g.store.RecordCostLedgerEntry(ctx, &store.CostLedgerEntry{
			Fingerprint: fp, RepoID: repoID, Provider: "live", Model: req.Model,
			CacheHit: true, Success: true, LatencyMs: latency,
			PromptTokens: pr.PromptTokens, CompletionTokens: pr.CompletionTokens,
		})
		metrics.LLMCallsTotal.WithLabelValues("hit", "true").Inc()
		return Result{
			ResponseText:     pr.Text,
			PromptTokens:     pr.PromptTokens,
			CompletionTokens: pr.CompletionTokens,
			CostMicros:       0,
			CacheHit:         true,
		}, nil
	}

	costUSD := 0.0
	if g.cost != nil {
		costUSD = g.cost(req.Model, pr.PromptTokens, pr.CompletionTokens)
	}
	costMicros := int64(costUSD * 1_000_000)

	ttl := g.ttl
	if req.TTL > 0 {
		ttl = time.Duration(req.TTL) * time.Second
	}
	_ = g.store.PutCacheEntry(ctx, &store.CacheEntry{
		Fingerprint: fp, ResponseBody: pr.Text, PromptTokens: pr.PromptTokens,
		CompletionTokens: pr.CompletionTokens, CostUSD: costUSD,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
	_ = g.store.RecordCostLedgerEntry(ctx, &store.CostLedgerEntry{
		Fingerprint: fp, RepoID: repoID, Provider: "live", Model: req.Model,
		CacheHit: false, Success: true, LatencyMs: latency,
		PromptTokens: pr.PromptTokens, CompletionTokens: pr.CompletionTokens, CostUSD: costUSD,
	})
	metrics.LLMCallsTotal.WithLabelValues("miss", "true").Inc()

	return Result{
		ResponseText:     pr.Text,
		PromptTokens:     pr.PromptTokens,
		CompletionTokens: pr.CompletionTokens,
		CostMicros:       costMicros,
		CacheHit:         false,
	}, nil
}

func paramsFrom(m map[string]string) Params {
	var p Params
	if v, ok := m["temperature"]; ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.Temperature = float32(f)
		}
	}
	if v, ok := m["max_output_tokens"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxOutputTokens = int32(n)
		}
	}
	return p
}
