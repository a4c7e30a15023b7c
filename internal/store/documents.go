package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// DocumentFilter is the dynamic filter set for ListDocuments.
type DocumentFilter struct {
	DocType    string
	Tag        string
	RepoID     string
	IndexState string
}

// CreateDocument inserts a document (spec.md §3 "Document"); word/char
// counts are computed here rather than trusted from the caller.
func (s *Store) CreateDocument(ctx context.Context, d *Document) (*Document, error) {
	s.mu.Lock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	ts := now()
	d.CreatedAt, d.UpdatedAt = ts, ts
	d.WordCount = len(strings.Fields(d.Content))
	d.CharCount = len(d.Content)
	if d.ContentType == "" {
		d.ContentType = "markdown"
	}
	if d.SourceType == "" {
		d.SourceType = "manual"
	}
	if d.DocType == "" {
		d.DocType = "reference"
	}
	d.IndexState = IndexStateUnindexed

	_, err := s.execWithRetry(ctx, `
		INSERT INTO documents (id, title, content, content_type, source_type, doc_type,
			repo_id, file_path, word_count, char_count, index_state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Content, d.ContentType, d.SourceType, d.DocType,
		d.RepoID, d.FilePath, d.WordCount, d.CharCount, d.IndexState, d.CreatedAt, d.UpdatedAt)
	s.mu.Unlock()
	if err != nil {
		return nil, mapSQLError(err, "document")
	}
	if err := s.attachTags(ctx, "document_tags", "document_id", d.ID, d.Tags); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDocument fetches a document and its tags by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	var d Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, content_type, source_type, doc_type, repo_id,
		       file_path, word_count, char_count, index_state, indexed_at, created_at, updated_at
		FROM documents WHERE id = ?`, id).Scan(
		&d.ID, &d.Title, &d.Content, &d.ContentType, &d.SourceType, &d.DocType, &d.RepoID,
		&d.FilePath, &d.WordCount, &d.CharCount, &d.IndexState, &d.IndexedAt, &d.CreatedAt, &d.UpdatedAt)
	s.mu.RUnlock()
	if err != nil {
		return nil, mapSQLError(err, "document")
	}
	tags, err := s.tagsFor(ctx, "document_tags", "document_id", d.ID)
	if err != nil {
		return nil, err
	}
	d.Tags = tags
	return &d, nil
}

// UpdateDocumentContent replaces a document's title/content, which moves
// the index state to needs_reindex (spec.md §3 "a document is indexed
// iff indexed_at >= updated_at").
func (s *Store) UpdateDocumentContent(ctx context.Context, id, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, `
		UPDATE documents
		SET title = ?, content = ?, word_count = ?, char_count = ?,
		    index_state = ?, updated_at = ?
		WHERE id = ?`,
		title, content, len(strings.Fields(content)), len(content), IndexStateNeedsReindex, now(), id)
	if err != nil {
		return mapSQLError(err, "document")
	}
	return requireRowsAffected(res, "document")
}

// SetDocumentIndexState transitions the indexing lifecycle state
// (spec.md §4.F unindexed -> indexing -> indexed -> needs_reindex).
func (s *Store) SetDocumentIndexState(ctx context.Context, id, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	var indexedAt any
	if state == IndexStateIndexed {
		indexedAt = ts
	}
	res, err := s.execWithRetry(ctx, `
		UPDATE documents SET index_state = ?, indexed_at = COALESCE(?, indexed_at), updated_at = ?
		WHERE id = ?`, state, indexedAt, ts, id)
	if err != nil {
		return mapSQLError(err, "document")
	}
	return requireRowsAffected(res, "document")
}

// ListDocuments applies the dynamic filter set.
func (s *Store) ListDocuments(ctx context.Context, f DocumentFilter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := newPredicateBuilder()
	p.addIf(f.DocType != "", "doc_type = ?", f.DocType)
	p.addIf(f.RepoID != "", "repo_id = ?", f.RepoID)
	p.addIf(f.IndexState != "", "index_state = ?", f.IndexState)
	p.addIf(f.Tag != "", "id IN (SELECT document_id FROM document_tags WHERE tag = ?)", f.Tag)

	query := `SELECT id, title, content, content_type, source_type, doc_type, repo_id,
		file_path, word_count, char_count, index_state, indexed_at, created_at, updated_at
		FROM documents ` + p.where() + ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, p.bindArgs()...)
	if err != nil {
		return nil, mapSQLError(err, "documents")
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.ContentType, &d.SourceType, &d.DocType,
			&d.RepoID, &d.FilePath, &d.WordCount, &d.CharCount, &d.IndexState, &d.IndexedAt,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, mapSQLError(err, "document")
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// SearchDocumentsFTS runs a full-text query against the documents_fts
// index kept in sync by migration triggers (spec.md §4.A "external
// callers never touch it directly").
func (s *Store) SearchDocumentsFTS(ctx context.Context, query string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id FROM documents_fts WHERE documents_fts MATCH ? ORDER BY rank LIMIT ?`, query, limit)
	if err != nil {
		return nil, mapSQLError(err, "documents_fts")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapSQLError(err, "documents_fts")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
