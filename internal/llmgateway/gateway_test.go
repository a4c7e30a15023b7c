package llmgateway

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/store"
)

func transientErr() error { return apperr.TransientIO("503 service unavailable", nil) }
func terminalErr() error  { return apperr.Provider("400 bad request", nil) }

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "devsentry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func flatCostModel(model string, promptTokens, completionTokens int) float64 {
	return float64(promptTokens+completionTokens) * 0.000001
}

func TestAskCachesSecondIdenticalRequest(t *testing.T) {
	s := openTestStore(t)
	var calls int32
	provider := &countingProvider{response: "hello world", promptTokens: 10, completionTokens: 5, calls: &calls}
	gw := New(s, provider, flatCostModel, time.Hour)

	req := Request{Model: "test-model", Prompt: "  analyze this  file  "}

	res1, err := gw.Ask(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, res1.CacheHit)

	res2, err := gw.Ask(context.Background(), req, nil)
	require.NoError(t, err)
	assert.True(t, res2.CacheHit)
	assert.Equal(t, res1.ResponseText, res2.ResponseText)

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "provider should be invoked exactly once across a cache hit")

	summary, err := s.CostSummarySince(context.Background(), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.TotalCalls, "every invocation writes one ledger row, hit or miss")
	assert.EqualValues(t, 1, summary.CacheHits)
}

func TestAskConcurrentIdenticalRequestsCallProviderOnce(t *testing.T) {
	s := openTestStore(t)
	var calls int32
	release := make(chan struct{})
	provider := &blockingProvider{calls: &calls, release: release}
	gw := New(s, provider, flatCostModel, time.Hour)

	req := Request{Model: "test-model", Prompt: "duplicate concurrent prompt"}

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = gw.Ask(context.Background(), req, nil)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Exactly one of the two callers paid for the provider call; the
	// other must be billed as a cache hit, not a second live call.
	summary, err := s.CostSummarySince(context.Background(), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.TotalCalls, "both callers wrote a ledger row")
	assert.EqualValues(t, 1, summary.CacheHits, "only the non-runner is billed as a cache hit")

	cacheHits := 0
	for _, r := range results {
		if r.CacheHit {
			cacheHits++
			assert.EqualValues(t, 0, r.CostMicros)
		}
	}
	assert.Equal(t, 1, cacheHits)
}

func TestAskRetriesTransientFailureThenSucceeds(t *testing.T) {
	s := openTestStore(t)
	provider := &flakyProvider{failuresBeforeSuccess: 2}
	gw := New(s, provider, flatCostModel, time.Hour)
	gw.backoff = BackoffConfig{Base: time.Millisecond, Factor: 2, Cap: 10 * time.Millisecond, MaxAttempts: 5}

	res, err := gw.Ask(context.Background(), Request{Model: "m", Prompt: "retry me"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.ResponseText)
	assert.EqualValues(t, 3, provider.attempts)
}

func TestAskTerminalErrorDoesNotRetry(t *testing.T) {
	s := openTestStore(t)
	provider := &terminalErrorProvider{}
	gw := New(s, provider, flatCostModel, time.Hour)

	_, err := gw.Ask(context.Background(), Request{Model: "m", Prompt: "bad request"}, nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, provider.attempts)

	summary, err := s.CostSummarySince(context.Background(), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.TotalCalls)
}

func TestAskBatchPreservesOrderAndIsolatesFailures(t *testing.T) {
	s := openTestStore(t)
	provider := &perPromptProvider{}
	gw := New(s, provider, flatCostModel, time.Hour)

	files := []FileDescriptor{
		{Path: "a.go", Content: "package a"},
		{Path: "fail.go", Content: "trigger-error"},
		{Path: "c.go", Content: "package c"},
	}
	results := gw.AskBatch(context.Background(), files, nil, 2, func(f FileDescriptor) Request {
		return Request{Model: "m", Prompt: f.Content}
	})

	require.Len(t, results, 3)
	assert.Equal(t, "a.go", results[0].Path)
	assert.Equal(t, "fail.go", results[1].Path)
	assert.Error(t, results[1].Err)
	assert.Equal(t, "c.go", results[2].Path)
	assert.NoError(t, results[2].Err)
}

// --- fakes ---

type countingProvider struct {
	response         string
	promptTokens     int
	completionTokens int
	calls            *int32
}

func (p *countingProvider) Complete(ctx context.Context, model, prompt string, params Params) (ProviderResult, error) {
	atomic.AddInt32(p.calls, 1)
	return ProviderResult{Text: p.response, PromptTokens: p.promptTokens, CompletionTokens: p.completionTokens}, nil
}

type blockingProvider struct {
	calls   *int32
	release chan struct{}
}

func (p *blockingProvider) Complete(ctx context.Context, model, prompt string, params Params) (ProviderResult, error) {
	atomic.AddInt32(p.calls, 1)
	<-p.release
	return ProviderResult{Text: "done"}, nil
}

type flakyProvider struct {
	failuresBeforeSuccess int
	attempts              int
}

func (p *flakyProvider) Complete(ctx context.Context, model, prompt string, params Params) (ProviderResult, error) {
	p.attempts++
	if p.attempts <= p.failuresBeforeSuccess {
		return ProviderResult{}, transientErr()
	}
	return ProviderResult{Text: "ok"}, nil
}

type terminalErrorProvider struct {
	attempts int
}

func (p *terminalErrorProvider) Complete(ctx context.Context, model, prompt string, params Params) (ProviderResult, error) {
	p.attempts++
	return ProviderResult{}, terminalErr()
}

type perPromptProvider struct{}

func (p *perPromptProvider) Complete(ctx context.Context, model, prompt string, params Params) (ProviderResult, error) {
	if prompt == "trigger-error" {
		return ProviderResult{}, terminalErr()
	}
	return ProviderResult{Text: "analyzed: " + prompt}, nil
}
