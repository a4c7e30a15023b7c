package analysis

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devsentry/internal/llmgateway"
	"github.com/kraklabs/devsentry/internal/store"
)

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

func TestAnalyzeFileCountsWellFormedTasks(t *testing.T) {
	s := openTestStore(t)
	provider := &llmgateway.MockProvider{
		Response: `{"tasks": [{"title": "fix nil check", "priority": "high", "files": ["a.go"]}, {"title": "add test", "priority": "low", "files": ["a.go"]}]}`,
	}
	gw := llmgateway.New(s, provider, flatCostModel, time.Hour)
	a := New(gw, "test-model")

	outcome, err := a.AnalyzeFile(context.Background(), "repo-1", "a.go", "package a\n\nfunc F() {}\n")
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.IssuesFound)
	assert.Contains(t, outcome.FindingsJSON, "fix nil check")
}

func TestAnalyzeFileNoIssuesYieldsZeroCount(t *testing.T) {
	s := openTestStore(t)
	provider := &llmgateway.MockProvider{Response: `{"tasks": []}`}
	gw := llmgateway.New(s, provider, flatCostModel, time.Hour)
	a := New(gw, "test-model")

	outcome, err := a.AnalyzeFile(context.Background(), "repo-1", "clean.go", "package a\n")
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.IssuesFound)
}

func TestAnalyzeFileNonJSONResponsePassesThroughWithoutError(t *testing.T) {
	s := openTestStore(t)
	provider := &llmgateway.MockProvider{Response: "not json"}
	gw := llmgateway.New(s, provider, flatCostModel, time.Hour)
	a := New(gw, "test-model")

	outcome, err := a.AnalyzeFile(context.Background(), "repo-1", "a.go", "package a\n")
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.IssuesFound)
	assert.Equal(t, "not json", outcome.FindingsJSON)
}

func TestAnalyzeFileProviderErrorPropagates(t *testing.T) {
	s := openTestStore(t)
	provider := &llmgateway.MockProvider{Err: assertableErr{}}
	gw := llmgateway.New(s, provider, flatCostModel, time.Hour)
	a := New(gw, "test-model")

	_, err := a.AnalyzeFile(context.Background(), "repo-1", "a.go", "package a\n")
	require.Error(t, err)
}

type assertableErr struct{}

func (assertableErr) Error() string { return "provider unavailable" }
