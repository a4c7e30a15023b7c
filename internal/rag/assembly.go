package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/devsentry/internal/logging"
)

// ContextCandidate is one chunk eligible for inclusion in an assembled
// context window, already scored by similarity search.
type ContextCandidate struct {
	DocumentTitle string
	ChunkIndex    int
	Content       string
	Similarity    float64
	WordCount     int
}

// AssembledContext is the budget-greedy result handed to the LLM
// Gateway as prompt context.
type AssembledContext struct {
	Text          string
	IncludedCount int
	DroppedCount  int
	UsedWords     int
}

// Assemble greedily adds the highest-similarity candidates first until
// the word budget is exhausted, prefixing each with a citation header
// of the form "document_title #chunk_index" so a reader (or the model)
// can trace a claim back to its source (spec.md §4.F "context assembly
// with citation headers"). This mirrors the percentage-budget greedy
// allocation the tiered context builder used for source files, adapted
// here to rank by embedding similarity instead of keyword tiers.
func Assemble(candidates []ContextCandidate, budgetWords int) AssembledContext {
	var b strings.Builder
	used := 0
	included := 0

	ordered := append([]ContextCandidate(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Similarity > ordered[j].Similarity })

	for _, c := range ordered {
		if used >= budgetWords {
			break
		}
		remaining := budgetWords - used
		words := strings.Fields(c.Content)
		if len(words) > remaining {
			if remaining < 20 {
				// Too little budget left for a useful fragment.
				continue
			}
			words = words[:remaining]
		}

		header := fmt.Sprintf("%s #%d", c.DocumentTitle, c.ChunkIndex)
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(strings.Join(words, " "))
		b.WriteString("\n\n")

		used += len(words)
		included++
	}

	dropped := len(candidates) - included
	if dropped > 0 {
		logging.RAGDebug("context assembly dropped %d of %d candidates (budget=%d words)", dropped, len(candidates), budgetWords)
	}

	return AssembledContext{
		Text:          strings.TrimSpace(b.String()),
		IncludedCount: included,
		DroppedCount:  dropped,
		UsedWords:     used,
	}
}
