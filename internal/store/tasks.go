package store

import (
	"context"

	"github.com/google/uuid"
)

// TaskFilter is the dynamic filter set for ListTasks.
type TaskFilter struct {
	Status string
	RepoID string
	Source string
}

// CreateTask inserts a task (spec.md §3 "Task"), typically produced by
// the Task Generator from an LLM finding.
func (s *Store) CreateTask(ctx context.Context, t *Task) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	ts := now()
	t.CreatedAt, t.UpdatedAt = ts, ts
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if t.Priority == 0 {
		t.Priority = 3
	}
	if t.Source == "" {
		t.Source = "scan"
	}

	_, err := s.execWithRetry(ctx, `
		INSERT INTO tasks (id, title, description, priority, status, file_path, source, repo_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Priority, t.Status, t.FilePath, t.Source, t.RepoID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, mapSQLError(err, "task")
	}
	return t, nil
}

// UpdateTaskStatus transitions a task's workflow status.
func (s *Store) UpdateTaskStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, "UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?", status, now(), id)
	if err != nil {
		return mapSQLError(err, "task")
	}
	return requireRowsAffected(res, "task")
}

// ListTasks applies the dynamic filter set with correctly ordered
// positional placeholders (spec.md §4.A, §9).
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := newPredicateBuilder()
	p.addIf(f.Status != "", "status = ?", f.Status)
	p.addIf(f.RepoID != "", "repo_id = ?", f.RepoID)
	p.addIf(f.Source != "", "source = ?", f.Source)

	query := `SELECT id, title, description, priority, status, file_path, source, repo_id, created_at, updated_at
		FROM tasks ` + p.where() + ` ORDER BY priority ASC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, p.bindArgs()...)
	if err != nil {
		return nil, mapSQLError(err, "tasks")
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status,
			&t.FilePath, &t.Source, &t.RepoID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, mapSQLError(err, "task")
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
