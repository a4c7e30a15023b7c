package store

import (
	"context"

	"github.com/google/uuid"
)

// ReplaceChunks atomically swaps a document's chunk set; used whenever a
// document is (re)indexed so stale chunks never linger alongside new
// ones (spec.md §3 "DocumentChunk" invariant: chunks cover the content
// in order with ~20% overlap, enforced by internal/rag's chunker).
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []*DocumentChunk) ([]*DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapSQLError(err, "document_chunks")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE document_id = ?", documentID); err != nil {
		return nil, mapSQLError(err, "document_chunks")
	}

	ts := now()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.DocumentID = documentID
		c.CreatedAt = ts
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_chunks (id, document_id, chunk_index, content, char_start, char_end, word_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.ChunkIndex, c.Content, c.CharStart, c.CharEnd, c.WordCount, c.CreatedAt); err != nil {
			return nil, mapSQLError(err, "document_chunk")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, mapSQLError(err, "document_chunks")
	}
	return chunks, nil
}

// GetChunkWithDocument fetches a chunk and its parent document in one
// call, used by the RAG search path to turn a scored chunk id back into
// a citable (document, chunk) pair.
func (s *Store) GetChunkWithDocument(ctx context.Context, chunkID string) (*DocumentChunk, *Document, error) {
	s.mu.RLock()
	var c DocumentChunk
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, chunk_index, content, char_start, char_end, word_count, created_at
		FROM document_chunks WHERE id = ?`, chunkID).Scan(
		&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.CharStart, &c.CharEnd, &c.WordCount, &c.CreatedAt)
	s.mu.RUnlock()
	if err != nil {
		return nil, nil, mapSQLError(err, "document_chunk")
	}
	doc, err := s.GetDocument(ctx, c.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	return &c, doc, nil
}

// ListChunks returns a document's chunks in order.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]*DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, char_start, char_end, word_count, created_at
		FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, mapSQLError(err, "document_chunks")
	}
	defer rows.Close()

	var out []*DocumentChunk
	for rows.Next() {
		var c DocumentChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.CharStart, &c.CharEnd, &c.WordCount, &c.CreatedAt); err != nil {
			return nil, mapSQLError(err, "document_chunk")
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
