package rag

import (
	"context"

	"github.com/kraklabs/devsentry/internal/embedding"
	"github.com/kraklabs/devsentry/internal/store"
)

// SearchFilter narrows a similarity search to a doc type, tag, or repo
// before assembling context (spec.md §4.F search filters).
type SearchFilter struct {
	DocType      string
	Tag          string
	RepoID       string
	MinSimilarity float64
	TopK         int
}

// Searcher runs embedding-backed semantic search and assembles
// citation-annotated context windows for the LLM Gateway.
type Searcher struct {
	store  *store.Store
	engine embedding.EmbeddingEngine
}

// NewSearcher wires a store and embedding engine for query-time use.
func NewSearcher(s *store.Store, engine embedding.EmbeddingEngine) *Searcher {
	return &Searcher{store: s, engine: engine}
}

// Search embeds the query, runs brute-force similarity search (spec.md
// §4.F, Non-goals: vector search need not scale past ~100k chunks), and
// narrows the result set to chunks belonging to documents that pass the
// filter.
func (se *Searcher) Search(ctx context.Context, query string, f SearchFilter) ([]ContextCandidate, error) {
	if f.TopK <= 0 {
		f.TopK = 10
	}

	taskType := embedding.SelectTaskType(embedding.ContentTypeQuery, true)
	queryVec, err := embedQuery(ctx, se.engine, query, taskType)
	if err != nil {
		return nil, err
	}

	scored, err := se.store.SearchSimilar(ctx, queryVec, se.engine.Name(), f.TopK*4)
	if err != nil {
		return nil, err
	}

	var candidates []ContextCandidate
	for _, sc := range scored {
		if f.MinSimilarity > 0 && sc.Similarity < f.MinSimilarity {
			continue
		}
		chunk, doc, err := se.store.GetChunkWithDocument(ctx, sc.ChunkID)
		if err != nil || chunk == nil || doc == nil {
			continue
		}
		if f.DocType != "" && doc.DocType != f.DocType {
			continue
		}
		if f.RepoID != "" && (doc.RepoID == nil || *doc.RepoID != f.RepoID) {
			continue
		}
		if f.Tag != "" && !containsTag(doc.Tags, f.Tag) {
			continue
		}
		candidates = append(candidates, ContextCandidate{
			DocumentTitle: doc.Title,
			ChunkIndex:    chunk.ChunkIndex,
			Content:       chunk.Content,
			Similarity:    sc.Similarity,
			WordCount:     chunk.WordCount,
		})
		if len(candidates) >= f.TopK {
			break
		}
	}
	return candidates, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
