package store

import (
	"context"

	"github.com/google/uuid"
)

// NoteFilter is the dynamic filter set for ListNotes (spec.md §4.A
// "Dynamic predicate queries").
type NoteFilter struct {
	Status    string
	Tag       string
	RepoID    string
	FreeText  string
	CreatedAfter  int64
	CreatedBefore int64
}

// CreateNote inserts a note and attaches its tags (spec.md §3 "Note").
func (s *Store) CreateNote(ctx context.Context, n *Note) (*Note, error) {
	s.mu.Lock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	ts := now()
	n.CreatedAt, n.UpdatedAt = ts, ts
	if n.Status == "" {
		n.Status = "inbox"
	}
	_, err := s.execWithRetry(ctx, `
		INSERT INTO notes (id, content, status, repo_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, n.ID, n.Content, n.Status, n.RepoID, n.CreatedAt, n.UpdatedAt)
	s.mu.Unlock()
	if err != nil {
		return nil, mapSQLError(err, "note")
	}
	if err := s.attachTags(ctx, "note_tags", "note_id", n.ID, n.Tags); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNoteStatus transitions a note's workflow status.
func (s *Store) UpdateNoteStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, "UPDATE notes SET status = ?, updated_at = ? WHERE id = ?", status, now(), id)
	if err != nil {
		return mapSQLError(err, "note")
	}
	return requireRowsAffected(res, "note")
}

// DeleteNote removes a note; the cascading delete on note_tags fires
// the usage_count trigger for every tag the note referenced (spec.md
// §8 "deleting the note decreases them by 1").
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return mapSQLError(err, "note")
	}
	return requireRowsAffected(res, "note")
}

// SetNoteTags replaces a note's tag set.
func (s *Store) SetNoteTags(ctx context.Context, noteID string, tags []string) error {
	return s.replaceTags(ctx, "note_tags", "note_id", noteID, tags)
}

// ListNotes applies an arbitrary subset of filters using the corrected
// positional-placeholder predicate builder (spec.md §4.A, §9).
func (s *Store) ListNotes(ctx context.Context, f NoteFilter) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := newPredicateBuilder()
	p.addIf(f.Status != "", "status = ?", f.Status)
	p.addIf(f.RepoID != "", "repo_id = ?", f.RepoID)
	p.addIf(f.FreeText != "", "content LIKE ?", "%"+f.FreeText+"%")
	p.addIf(f.CreatedAfter != 0, "created_at >= ?", f.CreatedAfter)
	p.addIf(f.CreatedBefore != 0, "created_at <= ?", f.CreatedBefore)
	p.addIf(f.Tag != "", "id IN (SELECT note_id FROM note_tags WHERE tag = ?)", f.Tag)

	query := `SELECT id, content, status, repo_id, created_at, updated_at FROM notes ` +
		p.where() + ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, p.bindArgs()...)
	if err != nil {
		return nil, mapSQLError(err, "notes")
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Content, &n.Status, &n.RepoID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, mapSQLError(err, "note")
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLError(err, "notes")
	}
	for _, n := range out {
		tags, err := s.tagsFor(ctx, "note_tags", "note_id", n.ID)
		if err != nil {
			return nil, err
		}
		n.Tags = tags
	}
	return out, nil
}
