// Package store is the persistence layer binding repositories, scan
// events, notes, ideas, tags, documents, chunks, embeddings, tasks, the
// response cache and the cost ledger (spec.md §3, §4.A).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the single entry point to the SQLite-backed persistence
// layer. SQLite allows only one writer at a time; maxOpenConns is capped
// at 1 so the driver serializes writers itself rather than racing on
// SQLITE_BUSY, and execWithRetry absorbs the remaining contention from
// readers holding the WAL.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// retryBackoff mirrors the gateway's exponential-backoff shape but is
// local to the store so a missing config never blocks startup.
var retryBackoff = []time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
}

// Open initializes the SQLite database at path, applying WAL mode and
// running embedded migrations (spec.md §4.A).
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("opening store at %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Fatal("failed to create database directory", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, apperr.Fatal("failed to open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Get(logging.CategoryStore).Warn("pragma failed %q: %v", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("store ready at %s", path)
	return &Store{db: db, dbPath: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current time as Unix seconds, the timestamp unit used
// throughout the schema (spec.md §3 "All timestamps are seconds since
// epoch").
func now() int64 { return time.Now().Unix() }

// execWithRetry retries a write against SQLITE_BUSY with the package
// backoff ladder (spec.md §4.A "single-writer/many-reader"), returning an
// apperr.TransientIO once the ladder is exhausted.
func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= len(retryBackoff); attempt++ {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isBusyErr(err) {
			return nil, err
		}
		if attempt < len(retryBackoff) {
			select {
			case <-time.After(retryBackoff[attempt]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, apperr.TransientIO("database busy after retries", lastErr)
}

func isBusyErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// mapSQLError translates a raw database/sql error into the closed
// apperr.Kind taxonomy used at every package boundary (spec.md §7).
func mapSQLError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(notFoundMsg)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return apperr.Conflict(fmt.Sprintf("%s already exists", notFoundMsg))
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return apperr.Validation(fmt.Sprintf("%s references a row that does not exist", notFoundMsg))
	case isBusyErr(err):
		return apperr.TransientIO("database busy", err)
	default:
		return apperr.Fatal(fmt.Sprintf("%s: unexpected storage error", notFoundMsg), err)
	}
}

// cosineSimilarity is the brute-force fallback similarity used by the
// RAG pipeline's search path (spec.md §4.F), shared here so store-level
// vector helpers and internal/rag compute it identically.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
