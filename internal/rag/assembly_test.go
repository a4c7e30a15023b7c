package rag

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestAssemblePrefersHighestSimilarityUntilBudgetExhausted(t *testing.T) {
	candidates := []ContextCandidate{
		{DocumentTitle: "runbook", ChunkIndex: 0, Content: "restart the worker pool before paging anyone", Similarity: 0.91},
		{DocumentTitle: "runbook", ChunkIndex: 1, Content: "check the dead letter queue depth first", Similarity: 0.77},
	}

	got := Assemble(candidates, 100)

	want := AssembledContext{
		Text:          "runbook #0\nrestart the worker pool before paging anyone\n\nrunbook #1\ncheck the dead letter queue depth first",
		IncludedCount: 2,
		DroppedCount:  0,
		UsedWords:     14,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Assemble() mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleDropsCandidatesPastBudget(t *testing.T) {
	candidates := []ContextCandidate{
		{DocumentTitle: "doc-a", ChunkIndex: 0, Content: "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twenty-one twenty-two twenty-three twenty-four twenty-five", Similarity: 0.95},
		{DocumentTitle: "doc-b", ChunkIndex: 0, Content: "short tail fragment", Similarity: 0.5},
	}

	got := Assemble(candidates, 20)

	require.Equal(t, 1, got.IncludedCount)
	require.Equal(t, 1, got.DroppedCount)
	require.LessOrEqual(t, got.UsedWords, 20)
}
