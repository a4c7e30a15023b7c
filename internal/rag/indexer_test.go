package rag

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devsentry/internal/store"
)

// taskRecordingEngine implements both embedding.EmbeddingEngine and
// taskAwareBatch/taskAwareSingle so tests can assert which task type
// indexer.go/search.go resolved for a given document or query.
type taskRecordingEngine struct {
	dim         int
	batchTasks  []string
	singleTasks []string
}

func (e *taskRecordingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedForTask(ctx, text, "")
}

func (e *taskRecordingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedBatchForTask(ctx, texts, "")
}

func (e *taskRecordingEngine) EmbedForTask(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.singleTasks = append(e.singleTasks, taskType)
	return make([]float32, e.dim), nil
}

func (e *taskRecordingEngine) EmbedBatchForTask(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	e.batchTasks = append(e.batchTasks, taskType)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dim)
	}
	return out, nil
}

func (e *taskRecordingEngine) Dimensions() int { return e.dim }
func (e *taskRecordingEngine) Name() string    { return "test-engine" }

func openIndexerTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "devsentry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIndexDocumentEmbedsWithTaskTypeFromDocType(t *testing.T) {
	ctx := context.Background()
	s := openIndexerTestStore(t)
	engine := &taskRecordingEngine{dim: 4}
	ix := NewIndexer(s, engine)

	doc, err := s.CreateDocument(ctx, &store.Document{
		Title: "design doc", Content: "one two three four five six seven eight", DocType: "architecture",
	})
	require.NoError(t, err)

	require.NoError(t, ix.IndexDocument(ctx, doc.ID))

	require.Len(t, engine.batchTasks, 1)
	require.Equal(t, "RETRIEVAL_DOCUMENT", engine.batchTasks[0])

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, store.IndexStateIndexed, got.IndexState)
}

func TestIndexDocumentMarksNeedsReindexOnEmbedFailure(t *testing.T) {
	ctx := context.Background()
	s := openIndexerTestStore(t)
	ix := NewIndexer(s, &failingBatchEngine{})

	doc, err := s.CreateDocument(ctx, &store.Document{Title: "x", Content: "some content here", DocType: "note"})
	require.NoError(t, err)

	require.Error(t, ix.IndexDocument(ctx, doc.ID))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, store.IndexStateNeedsReindex, got.IndexState)
}

type failingBatchEngine struct{}

var errFailingEngine = errors.New("embedding batch failed")

func (failingBatchEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errFailingEngine
}
func (failingBatchEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errFailingEngine
}
func (failingBatchEngine) Dimensions() int { return 4 }
func (failingBatchEngine) Name() string    { return "failing-engine" }
