package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/config"
)

// CreateRepository inserts a new tracked repository (spec.md §3
// "Repository"). It does not check the remote URL or the scan interval
// itself: the schema's CHECK constraint bounds scan_interval_min, and
// repomanager.Manager.Ensure rejects a non-https remote when it clones.
func (s *Store) CreateRepository(ctx context.Context, r *Repository) (*Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	ts := now()
	r.CreatedAt, r.UpdatedAt = ts, ts
	if r.ScanStatus == "" {
		r.ScanStatus = ScanStatusIdle
	}

	_, err := s.execWithRetry(ctx, `
		INSERT INTO repositories (
			id, name, remote_url, local_path, default_branch, source_type,
			clone_depth, auto_scan, scan_interval_min, scan_status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.RemoteURL, r.LocalPath, r.DefaultBranch, r.SourceType,
		r.CloneDepth, r.AutoScan, r.ScanIntervalMin, r.ScanStatus,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, mapSQLError(err, "repository")
	}
	return r, nil
}

// GetRepository fetches a repository by id.
func (s *Store) GetRepository(ctx context.Context, id string) (*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, remote_url, local_path, default_branch, source_type,
		       clone_depth, auto_scan, scan_interval_min, last_checked_at,
		       last_synced_at, scan_status, progress_total, progress_done,
		       progress_current, issues_found, last_duration_ms, last_error,
		       created_at, updated_at
		FROM repositories WHERE id = ?`, id)
	return scanRepository(row)
}

// ListRepositories returns all tracked repositories, optionally filtered
// to those with auto-scan enabled.
func (s *Store) ListRepositories(ctx context.Context, autoScanOnly bool) ([]*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, name, remote_url, local_path, default_branch, source_type,
		       clone_depth, auto_scan, scan_interval_min, last_checked_at,
		       last_synced_at, scan_status, progress_total, progress_done,
		       progress_current, issues_found, last_duration_ms, last_error,
		       created_at, updated_at
		FROM repositories`
	args := []any{}
	if autoScanOnly {
		query += " WHERE auto_scan = ?"
		args = append(args, true)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLError(err, "repositories")
	}
	defer rows.Close()

	var out []*Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRepositorySettings updates the mutable settings fields a user
// may change (auto-scan flag, scan interval); it never touches scan
// status or progress, which only the scanner may mutate.
func (s *Store) UpdateRepositorySettings(ctx context.Context, id string, autoScan bool, intervalMin int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := config.ValidateScanInterval(intervalMin); err != nil {
		return apperr.Validation(err.Error())
	}

	res, err := s.execWithRetry(ctx, `
		UPDATE repositories SET auto_scan = ?, scan_interval_min = ?, updated_at = ?
		WHERE id = ?`, autoScan, intervalMin, now(), id)
	if err != nil {
		return mapSQLError(err, "repository")
	}
	return requireRowsAffected(res, "repository")
}

// TransitionScanStatus moves a repository through the states enumerated
// in spec.md §4.3; callers (Repository Manager, Auto-Scanner) are the
// only legitimate writers of scan_status.
func (s *Store) TransitionScanStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx,
		"UPDATE repositories SET scan_status = ?, updated_at = ? WHERE id = ?",
		status, now(), id)
	if err != nil {
		return mapSQLError(err, "repository")
	}
	return requireRowsAffected(res, "repository")
}

// UpdateScanProgress records a progress snapshot (spec.md §4.C progress
// batching); called by the scanner every N=5 files processed.
func (s *Store) UpdateScanProgress(ctx context.Context, id string, total, done int, current string, issuesFound int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.execWithRetry(ctx, `
		UPDATE repositories
		SET progress_total = ?, progress_done = ?, progress_current = ?,
		    issues_found = ?, updated_at = ?
		WHERE id = ?`, total, done, current, issuesFound, now(), id)
	if err != nil {
		return mapSQLError(err, "repository")
	}
	return nil
}

// TouchLastChecked stamps last_checked_at immediately after eligibility
// is determined, independent of whether a scan actually runs (spec.md
// §4.C step 3: "prevent starvation of other repos by repeated
// eligibility of the same one").
func (s *Store) TouchLastChecked(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.execWithRetry(ctx,
		"UPDATE repositories SET last_checked_at = ?, updated_at = ? WHERE id = ?",
		now(), now(), id)
	return mapSQLError(err, "repository")
}

// RecordScanOutcome finalizes a scan: sets last_checked/synced, duration,
// error (empty clears it) and returns to idle or error.
func (s *Store) RecordScanOutcome(ctx context.Context, id string, success bool, durationMs int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	status := ScanStatusIdle
	if !success {
		status = ScanStatusError
	}
	_, err := s.execWithRetry(ctx, `
		UPDATE repositories
		SET scan_status = ?, last_checked_at = ?, last_synced_at = ?,
		    last_duration_ms = ?, last_error = ?, updated_at = ?
		WHERE id = ?`, status, ts, ts, durationMs, errMsg, ts, id)
	if err != nil {
		return mapSQLError(err, "repository")
	}
	return nil
}

func requireRowsAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Fatal("failed to read rows affected", err)
	}
	if n == 0 {
		return apperr.NotFound(what)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (*Repository, error) {
	var r Repository
	err := row.Scan(
		&r.ID, &r.Name, &r.RemoteURL, &r.LocalPath, &r.DefaultBranch, &r.SourceType,
		&r.CloneDepth, &r.AutoScan, &r.ScanIntervalMin, &r.LastCheckedAt,
		&r.LastSyncedAt, &r.ScanStatus, &r.ProgressTotal, &r.ProgressDone,
		&r.ProgressCurrent, &r.IssuesFound, &r.LastDurationMs, &r.LastError,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, mapSQLError(err, "repository")
	}
	return &r, nil
}
