package store

import "context"

// LogEvent appends an immutable scan event (spec.md §3 "ScanEvent").
func (s *Store) LogEvent(ctx context.Context, repoID *string, eventType, message string, detail *string, level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level == "" {
		level = "info"
	}
	_, err := s.execWithRetry(ctx, `
		INSERT INTO scan_events (repo_id, event_type, message, detail, level, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, repoID, eventType, message, detail, level, now())
	if err != nil {
		return mapSQLError(err, "scan_event")
	}
	return nil
}

// ListEvents returns the most recent events for a repo (or all repos if
// repoID is nil), newest first, capped at limit.
func (s *Store) ListEvents(ctx context.Context, repoID *string, limit int) ([]*ScanEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := newPredicateBuilder()
	p.addIf(repoID != nil, "repo_id = ?", *valueOrEmpty(repoID))

	query := `SELECT id, repo_id, event_type, message, detail, level, created_at
		FROM scan_events ` + p.where() + ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args := append(p.bindArgs(), limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLError(err, "scan_events")
	}
	defer rows.Close()

	var out []*ScanEvent
	for rows.Next() {
		var e ScanEvent
		if err := rows.Scan(&e.ID, &e.RepoID, &e.EventType, &e.Message, &e.Detail, &e.Level, &e.CreatedAt); err != nil {
			return nil, mapSQLError(err, "scan_event")
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// PruneEventsOlderThan deletes events older than the given Unix second
// cutoff (spec.md §3 "prunable by age").
func (s *Store) PruneEventsOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, "DELETE FROM scan_events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, mapSQLError(err, "scan_events")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func valueOrEmpty(s *string) *string {
	if s == nil {
		empty := ""
		return &empty
	}
	return s
}
