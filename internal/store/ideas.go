package store

import (
	"context"

	"github.com/google/uuid"
)

// IdeaFilter is the dynamic filter set for ListIdeas (spec.md §4.A, §6
// "GET /api/ideas?status=&category=&tag=").
type IdeaFilter struct {
	Category string
	Tag      string
	RepoID   string
	Priority int
	FreeText string
}

// CreateIdea inserts an idea and attaches its tags (spec.md §3 "Idea").
func (s *Store) CreateIdea(ctx context.Context, idea *Idea) (*Idea, error) {
	s.mu.Lock()
	if idea.ID == "" {
		idea.ID = uuid.NewString()
	}
	ts := now()
	idea.CreatedAt, idea.UpdatedAt = ts, ts
	if idea.Priority == 0 {
		idea.Priority = 3
	}
	if idea.Category == "" {
		idea.Category = "feature"
	}
	_, err := s.execWithRetry(ctx, `
		INSERT INTO ideas (id, content, priority, category, document_id, task_id, repo_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.ID, idea.Content, idea.Priority, idea.Category, idea.DocumentID, idea.TaskID, idea.RepoID,
		idea.CreatedAt, idea.UpdatedAt)
	s.mu.Unlock()
	if err != nil {
		return nil, mapSQLError(err, "idea")
	}
	if err := s.attachTags(ctx, "idea_tags", "idea_id", idea.ID, idea.Tags); err != nil {
		return nil, err
	}
	return idea, nil
}

// SetIdeaTags replaces an idea's tag set.
func (s *Store) SetIdeaTags(ctx context.Context, ideaID string, tags []string) error {
	return s.replaceTags(ctx, "idea_tags", "idea_id", ideaID, tags)
}

// LinkIdeaToTask records that an idea produced a task.
func (s *Store) LinkIdeaToTask(ctx context.Context, ideaID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, "UPDATE ideas SET task_id = ?, updated_at = ? WHERE id = ?", taskID, now(), ideaID)
	if err != nil {
		return mapSQLError(err, "idea")
	}
	return requireRowsAffected(res, "idea")
}

// ListIdeas applies an arbitrary subset of filters with correctly
// ordered positional placeholders (spec.md §4.A, §9 "Dynamic parameter
// binding").
func (s *Store) ListIdeas(ctx context.Context, f IdeaFilter) ([]*Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := newPredicateBuilder()
	p.addIf(f.Category != "", "category = ?", f.Category)
	p.addIf(f.RepoID != "", "repo_id = ?", f.RepoID)
	p.addIf(f.Priority != 0, "priority = ?", f.Priority)
	p.addIf(f.FreeText != "", "content LIKE ?", "%"+f.FreeText+"%")
	p.addIf(f.Tag != "", "id IN (SELECT idea_id FROM idea_tags WHERE tag = ?)", f.Tag)

	query := `SELECT id, content, priority, category, document_id, task_id, repo_id, created_at, updated_at
		FROM ideas ` + p.where() + ` ORDER BY priority ASC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, p.bindArgs()...)
	if err != nil {
		return nil, mapSQLError(err, "ideas")
	}
	defer rows.Close()

	var out []*Idea
	for rows.Next() {
		var idea Idea
		if err := rows.Scan(&idea.ID, &idea.Content, &idea.Priority, &idea.Category,
			&idea.DocumentID, &idea.TaskID, &idea.RepoID, &idea.CreatedAt, &idea.UpdatedAt); err != nil {
			return nil, mapSQLError(err, "idea")
		}
		out = append(out, &idea)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLError(err, "ideas")
	}
	for _, idea := range out {
		tags, err := s.tagsFor(ctx, "idea_tags", "idea_id", idea.ID)
		if err != nil {
			return nil, err
		}
		idea.Tags = tags
	}
	return out, nil
}
