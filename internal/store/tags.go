package store

import "context"

// UpsertTag creates a tag or updates its color/description if it already
// exists; usage_count is never touched here, only by the junction-table
// triggers (spec.md §3 "Tag", §4.1).
func (s *Store) UpsertTag(ctx context.Context, name, color, description string) (*Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	_, err := s.execWithRetry(ctx, `
		INSERT INTO tags (name, color, description, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(name) DO UPDATE SET color = excluded.color, description = excluded.description, updated_at = excluded.updated_at`,
		name, color, description, ts, ts)
	if err != nil {
		return nil, mapSQLError(err, "tag")
	}
	return s.GetTag(ctx, name)
}

// GetTag fetches a tag by name.
func (s *Store) GetTag(ctx context.Context, name string) (*Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT name, color, description, usage_count, created_at, updated_at
		FROM tags WHERE name = ?`, name).Scan(
		&t.Name, &t.Color, &t.Description, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapSQLError(err, "tag")
	}
	return &t, nil
}

// ListTags returns every tag ordered by usage, most-referenced first.
func (s *Store) ListTags(ctx context.Context) ([]*Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, color, description, usage_count, created_at, updated_at
		FROM tags ORDER BY usage_count DESC, name`)
	if err != nil {
		return nil, mapSQLError(err, "tags")
	}
	defer rows.Close()

	var out []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.Name, &t.Color, &t.Description, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, mapSQLError(err, "tag")
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// attachTags inserts junction rows for one entity across table tagTable
// (note_tags/idea_tags/document_tags), creating missing tags on the fly.
// Each insert fires the usage_count trigger for that junction table
// inside the same transaction, so the count can never drift from the
// true reference count (spec.md §4.1, §9).
func (s *Store) attachTags(ctx context.Context, tagTable, idColumn, entityID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLError(err, "tags")
	}
	defer tx.Rollback()

	ts := now()
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tags (name, color, usage_count, created_at, updated_at)
			VALUES (?, '#6b7280', 0, ?, ?) ON CONFLICT(name) DO NOTHING`, tag, ts, ts); err != nil {
			return mapSQLError(err, "tag")
		}
		query := "INSERT INTO " + tagTable + " (" + idColumn + ", tag) VALUES (?, ?) ON CONFLICT DO NOTHING"
		if _, err := tx.ExecContext(ctx, query, entityID, tag); err != nil {
			return mapSQLError(err, "tag")
		}
	}
	return tx.Commit()
}

// replaceTags removes all existing junction rows for an entity and
// inserts the new set; each removal/insertion fires the usage_count
// trigger for that table exactly once per row.
func (s *Store) replaceTags(ctx context.Context, tagTable, idColumn, entityID string, tags []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLError(err, "tags")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+tagTable+" WHERE "+idColumn+" = ?", entityID); err != nil {
		return mapSQLError(err, "tags")
	}
	ts := now()
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tags (name, color, usage_count, created_at, updated_at)
			VALUES (?, '#6b7280', 0, ?, ?) ON CONFLICT(name) DO NOTHING`, tag, ts, ts); err != nil {
			return mapSQLError(err, "tag")
		}
		query := "INSERT INTO " + tagTable + " (" + idColumn + ", tag) VALUES (?, ?)"
		if _, err := tx.ExecContext(ctx, query, entityID, tag); err != nil {
			return mapSQLError(err, "tag")
		}
	}
	return tx.Commit()
}

func (s *Store) tagsFor(ctx context.Context, tagTable, idColumn, entityID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tag FROM "+tagTable+" WHERE "+idColumn+" = ? ORDER BY tag", entityID)
	if err != nil {
		return nil, mapSQLError(err, "tags")
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, mapSQLError(err, "tags")
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
