package store

import "context"

// GetFileHashes returns the last-seen content hash for every path
// recorded for a repository, keyed by path, so the scanner can diff
// the current tree against it in one query (spec.md §4.C "changed
// files").
func (s *Store) GetFileHashes(ctx context.Context, repoID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT path, content_hash FROM file_hashes WHERE repo_id = ?", repoID)
	if err != nil {
		return nil, mapSQLError(err, "file_hashes")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, mapSQLError(err, "file_hashes")
		}
		out[path] = hash
	}
	return out, rows.Err()
}

// PutFileHash upserts the content hash recorded for one path.
func (s *Store) PutFileHash(ctx context.Context, repoID, path, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.execWithRetry(ctx, `
		INSERT INTO file_hashes (repo_id, path, content_hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_id, path) DO UPDATE SET content_hash = excluded.content_hash, updated_at = excluded.updated_at`,
		repoID, path, hash, now())
	return mapSQLError(err, "file_hashes")
}

// DeleteFileHashesNotIn removes tracked hashes for paths no longer
// present in the current tree (e.g. files deleted since the last
// scan), keeping the diff set from growing unbounded.
func (s *Store) DeleteFileHashesNotIn(ctx context.Context, repoID string, keepPaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getFileHashPathsLocked(ctx, repoID)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(keepPaths))
	for _, p := range keepPaths {
		keep[p] = true
	}
	for _, p := range existing {
		if keep[p] {
			continue
		}
		if _, err := s.execWithRetry(ctx, "DELETE FROM file_hashes WHERE repo_id = ? AND path = ?", repoID, p); err != nil {
			return mapSQLError(err, "file_hashes")
		}
	}
	return nil
}

func (s *Store) getFileHashPathsLocked(ctx context.Context, repoID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM file_hashes WHERE repo_id = ?", repoID)
	if err != nil {
		return nil, mapSQLError(err, "file_hashes")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, mapSQLError(err, "file_hashes")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
