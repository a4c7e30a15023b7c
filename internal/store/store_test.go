package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devsentry.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestListIdeasFilterCombinationsDoNotMismatchPlaceholders(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.CreateIdea(ctx, &Idea{Content: "cache warm LLM responses", Category: "improvement", Priority: 2, Tags: []string{"perf"}})
	require.NoError(t, err)
	_, err = s.CreateIdea(ctx, &Idea{Content: "add dark mode", Category: "feature", Priority: 4})
	require.NoError(t, err)

	// Exercise every subset of filters; a placeholder-ordering regression
	// would surface as a driver error or a wrong row count here.
	cases := []IdeaFilter{
		{},
		{Category: "feature"},
		{Priority: 2},
		{Tag: "perf"},
		{Category: "improvement", Priority: 2},
		{Category: "improvement", Tag: "perf", Priority: 2},
		{FreeText: "dark"},
	}
	for _, f := range cases {
		_, err := s.ListIdeas(ctx, f)
		require.NoError(t, err)
	}

	onlyFeature, err := s.ListIdeas(ctx, IdeaFilter{Category: "feature"})
	require.NoError(t, err)
	require.Len(t, onlyFeature, 1)
	require.Equal(t, "add dark mode", onlyFeature[0].Content)
}

func TestTagUsageCountSurvivesReplaceAndCascadeDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	note, err := s.CreateNote(ctx, &Note{Content: "refactor scanner", Tags: []string{"go", "scanner"}})
	require.NoError(t, err)

	goTag, err := s.GetTag(ctx, "go")
	require.NoError(t, err)
	require.Equal(t, 1, goTag.UsageCount)

	require.NoError(t, s.SetNoteTags(ctx, note.ID, []string{"go"}))
	scannerTag, err := s.GetTag(ctx, "scanner")
	require.NoError(t, err)
	require.Equal(t, 0, scannerTag.UsageCount)

	_, err = s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", note.ID)
	require.NoError(t, err)

	goTag, err = s.GetTag(ctx, "go")
	require.NoError(t, err)
	require.Equal(t, 0, goTag.UsageCount)
}

func TestCacheEntryExpiryIsTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.PutCacheEntry(ctx, &CacheEntry{
		Fingerprint: "abc123", ResponseBody: "{}", ExpiresAt: now() - 10,
	})
	require.NoError(t, err)

	_, err = s.GetCacheEntry(ctx, "abc123")
	require.Error(t, err)
}

func TestCostLedgerAccumulatesAcrossHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.RecordCostLedgerEntry(ctx, &CostLedgerEntry{
		Fingerprint: "f1", Provider: "mock", Model: "mock-1", Success: true, CostUSD: 0.01,
	}))
	require.NoError(t, s.RecordCostLedgerEntry(ctx, &CostLedgerEntry{
		Fingerprint: "f1", Provider: "mock", Model: "mock-1", Success: true, CacheHit: true,
	}))

	summary, err := s.CostSummarySince(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), summary.TotalCalls)
	require.Equal(t, int64(1), summary.CacheHits)
}

func TestCostSummaryByModelGroupsAndOrdersBySpend(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.RecordCostLedgerEntry(ctx, &CostLedgerEntry{
		Fingerprint: "f1", Provider: "live", Model: "cheap-model", Success: true, CostUSD: 0.01,
	}))
	require.NoError(t, s.RecordCostLedgerEntry(ctx, &CostLedgerEntry{
		Fingerprint: "f2", Provider: "live", Model: "expensive-model", Success: true, CostUSD: 1.00,
	}))
	require.NoError(t, s.RecordCostLedgerEntry(ctx, &CostLedgerEntry{
		Fingerprint: "f3", Provider: "live", Model: "cheap-model", Success: true, CostUSD: 0.01,
	}))

	byModel, err := s.CostSummaryByModel(ctx, 0)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	require.Equal(t, "expensive-model", byModel[0].Model)
	require.Equal(t, int64(1), byModel[0].TotalCalls)
	require.InDelta(t, 1.00, byModel[0].TotalCostUSD, 0.0001)
	require.Equal(t, "cheap-model", byModel[1].Model)
	require.Equal(t, int64(2), byModel[1].TotalCalls)
	require.InDelta(t, 0.02, byModel[1].TotalCostUSD, 0.0001)
}

func TestSearchSimilarRanksByCosine(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	doc, err := s.CreateDocument(ctx, &Document{Title: "runbook", Content: "restart the worker pool"})
	require.NoError(t, err)
	chunks, err := s.ReplaceChunks(ctx, doc.ID, []*DocumentChunk{
		{ChunkIndex: 0, Content: "restart the worker pool", WordCount: 4},
	})
	require.NoError(t, err)

	_, err = s.PutEmbedding(ctx, &DocumentEmbedding{ChunkID: chunks[0].ID, Embedding: []float32{1, 0, 0}, Model: "test-embed"})
	require.NoError(t, err)

	results, err := s.SearchSimilar(ctx, []float32{1, 0, 0}, "test-embed", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 1.0, results[0].Similarity, 0.0001)
}
