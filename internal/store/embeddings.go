package store

import (
	"context"
	"encoding/binary"
	"math"
	"sort"

	"github.com/google/uuid"
)

// serializeVector encodes a float32 vector as the little-endian byte
// blob sqlite-vec's vec0 module expects (asg017/sqlite-vec-go-bindings).
func serializeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// PutEmbedding stores a chunk's embedding in both the relational table
// (source of truth) and the vec0 virtual table (ANN seam); an error from
// the vec0 write is ignored, and search reads only document_embeddings.
// The vec0 table itself is created by migration 0004, so Open needs the
// vec0 module registered (init_vec.go, sqlite_vec build tag).
func (s *Store) PutEmbedding(ctx context.Context, e *DocumentEmbedding) (*DocumentEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = now()
	e.Dimension = len(e.Embedding)

	blob := serializeVector(e.Embedding)
	_, err := s.execWithRetry(ctx, `
		INSERT INTO document_embeddings (id, chunk_id, embedding, model, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET embedding = excluded.embedding, model = excluded.model,
			dimension = excluded.dimension, created_at = excluded.created_at`,
		e.ID, e.ChunkID, blob, e.Model, e.Dimension, e.CreatedAt)
	if err != nil {
		return nil, mapSQLError(err, "document_embedding")
	}

	if _, vecErr := s.db.ExecContext(ctx, `
		INSERT INTO document_embeddings_vec (chunk_id, embedding) VALUES (?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET embedding = excluded.embedding`, e.ChunkID, blob); vecErr != nil {
		// sqlite-vec may be unavailable in this build; brute-force search
		// over document_embeddings still works without it.
	}

	return e, nil
}

// ScoredChunk pairs a chunk id with its similarity to a query vector.
type ScoredChunk struct {
	ChunkID    string
	Similarity float64
	Model      string
}

// SearchSimilar runs brute-force cosine similarity over every embedding
// for the given model, returning the topK highest-scoring chunks
// (spec.md §4.F, Non-goals: "Vector search is single-node and need not
// scale past ~100k chunks" — brute force is adequate at that scale; the
// vec0 table populated by PutEmbedding is the seam a future ANN index
// would read from instead).
func (s *Store) SearchSimilar(ctx context.Context, query []float32, model string, topK int) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, embedding, model FROM document_embeddings WHERE model = ?`, model)
	if err != nil {
		return nil, mapSQLError(err, "document_embeddings")
	}
	defer rows.Close()

	var scored []ScoredChunk
	for rows.Next() {
		var chunkID, m string
		var blob []byte
		if err := rows.Scan(&chunkID, &blob, &m); err != nil {
			return nil, mapSQLError(err, "document_embedding")
		}
		sim := cosineSimilarity(query, deserializeVector(blob))
		scored = append(scored, ScoredChunk{ChunkID: chunkID, Similarity: sim, Model: m})
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLError(err, "document_embeddings")
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
