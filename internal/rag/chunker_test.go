package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCoversEntireContentInOrder(t *testing.T) {
	content := strings.Repeat("word ", 900)
	spans := Chunk(content, ChunkerConfig{TargetWords: 100, OverlapRatio: 0.2, MinChunkWords: 10})

	require.NotEmpty(t, spans)
	for i := 1; i < len(spans); i++ {
		assert.GreaterOrEqual(t, spans[i].CharStart, 0)
		assert.LessOrEqual(t, spans[i-1].CharEnd, len(content))
	}
}

func TestChunkOverlapsConsecutiveSpans(t *testing.T) {
	content := strings.Repeat("alpha beta gamma delta ", 200)
	spans := Chunk(content, ChunkerConfig{TargetWords: 50, OverlapRatio: 0.2, MinChunkWords: 5})
	require.Greater(t, len(spans), 1)

	firstWords := strings.Fields(spans[0].Content)
	secondWords := strings.Fields(spans[1].Content)
	overlapFound := false
	tail := firstWords[len(firstWords)-5:]
	for _, w := range tail {
		for _, w2 := range secondWords[:minInt(10, len(secondWords))] {
			if w == w2 {
				overlapFound = true
			}
		}
	}
	assert.True(t, overlapFound, "expected consecutive chunks to share overlap words")
}

func TestChunkPreservesCodeFenceAsOneUnit(t *testing.T) {
	content := "intro text\n\n```go\nfunc main() {}\n```\n\nmore text"
	spans := Chunk(content, ChunkerConfig{TargetWords: 2, OverlapRatio: 0.2, MinChunkWords: 1})

	found := false
	for _, s := range spans {
		if strings.Contains(s.Content, "```go") {
			assert.Contains(t, s.Content, "```\n", "fence should be intact within one chunk")
			found = true
		}
	}
	assert.True(t, found)
}

func TestChunkMergesShortTrailingRemainder(t *testing.T) {
	content := strings.Repeat("word ", 105)
	spans := Chunk(content, ChunkerConfig{TargetWords: 50, OverlapRatio: 0, MinChunkWords: 20})
	for _, s := range spans {
		assert.GreaterOrEqual(t, s.WordCount, 20)
	}
}

func TestAssembleStopsAtBudgetAndAddsCitations(t *testing.T) {
	candidates := []ContextCandidate{
		{DocumentTitle: "Runbook", ChunkIndex: 0, Content: strings.Repeat("word ", 50), Similarity: 0.9},
		{DocumentTitle: "Runbook", ChunkIndex: 1, Content: strings.Repeat("word ", 50), Similarity: 0.8},
	}
	result := Assemble(candidates, 60)

	assert.Equal(t, 1, result.IncludedCount)
	assert.Contains(t, result.Text, "Runbook #0")
	assert.LessOrEqual(t, result.UsedWords, 60)
}
