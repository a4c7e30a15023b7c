package rag

import (
	"context"

	"github.com/kraklabs/devsentry/internal/embedding"
)

// taskAwareBatch is implemented by llmgateway.EmbeddingGateway; plain
// embedding.EmbeddingEngine implementations (used directly in tests)
// don't need to know about task types at all.
type taskAwareBatch interface {
	EmbedBatchForTask(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

// taskAwareSingle is the single-text counterpart of taskAwareBatch.
type taskAwareSingle interface {
	EmbedForTask(ctx context.Context, text string, taskType string) ([]float32, error)
}

// embedBatch routes chunk embedding through the task-tagged path when
// the engine supports it (the production EmbeddingGateway), falling
// back to plain EmbedBatch for engines that don't distinguish task
// types (direct embedding.EmbeddingEngine implementations in tests).
func embedBatch(ctx context.Context, engine embedding.EmbeddingEngine, texts []string, taskType string) ([][]float32, error) {
	if aware, ok := engine.(taskAwareBatch); ok {
		return aware.EmbedBatchForTask(ctx, texts, taskType)
	}
	return engine.EmbedBatch(ctx, texts)
}

// embedQuery is embedBatch's single-text counterpart, used to embed a
// search query as RETRIEVAL_QUERY rather than whatever task type the
// engine defaults to.
func embedQuery(ctx context.Context, engine embedding.EmbeddingEngine, text string, taskType string) ([]float32, error) {
	if aware, ok := engine.(taskAwareSingle); ok {
		return aware.EmbedForTask(ctx, text, taskType)
	}
	return engine.Embed(ctx, text)
}
