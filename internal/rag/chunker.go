// Package rag implements the document chunking, embedding, similarity
// search and context assembly pipeline (spec.md §4.F).
package rag

import (
	"strings"

	"github.com/kraklabs/devsentry/internal/logging"
)

// ChunkSpan is one chunk of a document before it is persisted; char
// offsets are relative to the original content so store.DocumentChunk
// can be built directly from it.
type ChunkSpan struct {
	Content   string
	CharStart int
	CharEnd   int
	WordCount int
	Heading   string
}

// ChunkerConfig controls the target chunk size and overlap.
type ChunkerConfig struct {
	// TargetWords is the approximate chunk size in words.
	TargetWords int
	// OverlapRatio is the fraction of TargetWords repeated at the start
	// of the next chunk (spec.md §3 "DocumentChunk" invariant: "~20% of
	// the target word size").
	OverlapRatio float64
	// MinChunkWords is the smallest chunk allowed to stand alone; a
	// trailing remainder below this is merged into the previous chunk.
	MinChunkWords int
}

// DefaultChunkerConfig matches the spec's ~20% overlap invariant.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		TargetWords:   300,
		OverlapRatio:  0.2,
		MinChunkWords: 40,
	}
}

// Chunk splits content into overlapping spans, preserving fenced code
// blocks as atomic units so a ``` fence is never split mid-block
// (spec.md §3 "DocumentChunk": "chunks for a document cover its content
// in order; consecutive chunks overlap by ~20% of the target word
// size").
func Chunk(content string, cfg ChunkerConfig) []ChunkSpan {
	if cfg.TargetWords <= 0 {
		cfg = DefaultChunkerConfig()
	}
	blocks := splitPreservingCodeFences(content)

	overlapWords := int(float64(cfg.TargetWords) * cfg.OverlapRatio)
	var spans []ChunkSpan
	var current strings.Builder
	var currentHeading string
	currentWords := 0
	currentStart := 0
	offset := 0

	flush := func(end int) {
		if strings.TrimSpace(current.String()) == "" {
			current.Reset()
			currentWords = 0
			return
		}
		text := current.String()
		spans = append(spans, ChunkSpan{
			Content:   text,
			CharStart: currentStart,
			CharEnd:   end,
			WordCount: currentWords,
			Heading:   currentHeading,
		})
		current.Reset()
		currentWords = 0
	}

	for _, b := range blocks {
		if h := headingOf(b.text); h != "" {
			currentHeading = h
		}
		words := strings.Fields(b.text)

		// Atomic blocks (fenced code) never split mid-block; if it would
		// overflow the target, flush first so the fence stays intact.
		if b.atomic && currentWords > 0 && currentWords+len(words) > cfg.TargetWords {
			flush(offset)
			currentStart = offset
		}

		if currentWords == 0 {
			currentStart = offset
		}
		current.WriteString(b.text)
		currentWords += len(words)
		offset += len(b.text)

		if !b.atomic && currentWords >= cfg.TargetWords {
			flush(offset)
			// Seed the next chunk with the overlap tail of this one so
			// consecutive chunks share ~20% of the target word size.
			tail := tailWords(b.text, overlapWords)
			current.WriteString(tail)
			currentWords = len(strings.Fields(tail))
			currentStart = offset - len(tail)
		}
	}
	if currentWords > 0 {
		flush(offset)
	}

	spans = mergeShortTrailingChunk(spans, cfg.MinChunkWords)
	for i := range spans {
		spans[i].CharEnd = minInt(spans[i].CharEnd, len(content))
	}

	logging.RAGDebug("chunked document into %d spans (target=%d words, overlap=%d words)", len(spans), cfg.TargetWords, overlapWords)
	return spans
}

type block struct {
	text   string
	atomic bool
}

// splitPreservingCodeFences splits content into paragraph-ish blocks,
// keeping each ``` fenced region as one atomic block regardless of size.
func splitPreservingCodeFences(content string) []block {
	lines := strings.SplitAfter(content, "\n")
	var blocks []block
	var buf strings.Builder
	inFence := false
	var fenceBuf strings.Builder

	flushParagraph := func() {
		if buf.Len() > 0 {
			blocks = append(blocks, block{text: buf.String()})
			buf.Reset()
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				fenceBuf.WriteString(line)
				blocks = append(blocks, block{text: fenceBuf.String(), atomic: true})
				fenceBuf.Reset()
				inFence = false
			} else {
				flushParagraph()
				fenceBuf.WriteString(line)
				inFence = true
			}
			continue
		}
		if inFence {
			fenceBuf.WriteString(line)
			continue
		}
		buf.WriteString(line)
		if trimmed == "" {
			flushParagraph()
		}
	}
	if inFence {
		// Unterminated fence: emit what we have rather than losing it.
		blocks = append(blocks, block{text: fenceBuf.String(), atomic: true})
	}
	flushParagraph()
	return blocks
}

func headingOf(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimLeft(trimmed, "# ")
		}
	}
	return ""
}

func tailWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) <= n {
		return text
	}
	return strings.Join(fields[len(fields)-n:], " ") + " "
}

// mergeShortTrailingChunk folds a too-small final chunk into its
// predecessor so indexes never end with a near-empty span.
func mergeShortTrailingChunk(spans []ChunkSpan, minWords int) []ChunkSpan {
	if len(spans) < 2 {
		return spans
	}
	last := spans[len(spans)-1]
	if last.WordCount >= minWords {
		return spans
	}
	prev := spans[len(spans)-2]
	merged := ChunkSpan{
		Content:   prev.Content + last.Content,
		CharStart: prev.CharStart,
		CharEnd:   last.CharEnd,
		WordCount: prev.WordCount + last.WordCount,
		Heading:   prev.Heading,
	}
	out := append([]ChunkSpan{}, spans[:len(spans)-2]...)
	return append(out, merged)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
