package rag

import (
	"context"
	"fmt"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/embedding"
	"github.com/kraklabs/devsentry/internal/logging"
	"github.com/kraklabs/devsentry/internal/store"
)

// Indexer drives a document through unindexed -> indexing -> indexed
// (or needs_reindex on failure/edit), per spec.md §4.F.
type Indexer struct {
	store  *store.Store
	engine embedding.EmbeddingEngine
	cfg    ChunkerConfig
}

// NewIndexer wires a persistence store and embedding engine together.
func NewIndexer(s *store.Store, engine embedding.EmbeddingEngine) *Indexer {
	return &Indexer{store: s, engine: engine, cfg: DefaultChunkerConfig()}
}

// IndexDocument chunks a document, embeds every chunk, and persists
// both, moving the document through its indexing lifecycle (spec.md
// §4.F). Same retry/cost-ledger contract as the LLM Gateway applies to
// the embedding calls themselves; that accounting lives in
// internal/llmgateway, which is expected to wrap engine.Embed for
// production use.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID string) error {
	timer := logging.StartTimer(logging.CategoryRAG, "IndexDocument")
	defer timer.Stop()

	doc, err := ix.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := ix.store.SetDocumentIndexState(ctx, documentID, store.IndexStateIndexing); err != nil {
		return err
	}

	spans := Chunk(doc.Content, ix.cfg)
	if len(spans) == 0 {
		return apperr.Validation("document has no content to index")
	}

	chunks := make([]*store.DocumentChunk, len(spans))
	texts := make([]string, len(spans))
	for i, span := range spans {
		chunks[i] = &store.DocumentChunk{
			ChunkIndex: i,
			Content:    span.Content,
			CharStart:  span.CharStart,
			CharEnd:    span.CharEnd,
			WordCount:  span.WordCount,
		}
		texts[i] = span.Content
	}

	persisted, err := ix.store.ReplaceChunks(ctx, documentID, chunks)
	if err != nil {
		_ = ix.store.SetDocumentIndexState(ctx, documentID, store.IndexStateNeedsReindex)
		return err
	}

	taskType := embedding.SelectTaskType(embedding.ContentTypeFromDocType(doc.DocType), false)
	vectors, err := embedBatch(ctx, ix.engine, texts, taskType)
	if err != nil {
		_ = ix.store.SetDocumentIndexState(ctx, documentID, store.IndexStateNeedsReindex)
		return apperr.Provider("embedding batch failed", err)
	}
	if len(vectors) != len(persisted) {
		_ = ix.store.SetDocumentIndexState(ctx, documentID, store.IndexStateNeedsReindex)
		return apperr.Fatal(fmt.Sprintf("embedding count mismatch: got %d vectors for %d chunks", len(vectors), len(persisted)), nil)
	}

	for i, chunk := range persisted {
		if _, err := ix.store.PutEmbedding(ctx, &store.DocumentEmbedding{
			ChunkID:   chunk.ID,
			Embedding: vectors[i],
			Model:     ix.engine.Name(),
		}); err != nil {
			_ = ix.store.SetDocumentIndexState(ctx, documentID, store.IndexStateNeedsReindex)
			return err
		}
	}

	return ix.store.SetDocumentIndexState(ctx, documentID, store.IndexStateIndexed)
}
