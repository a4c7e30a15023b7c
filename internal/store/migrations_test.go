package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrationsCreatesAllTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, runMigrations(db))

	for _, table := range []string{
		"repositories", "scan_events", "tags", "notes", "note_tags",
		"ideas", "idea_tags", "documents", "document_tags",
		"document_chunks", "document_embeddings", "tasks",
		"cache_entries", "cost_ledger", "file_hashes", "migrations",
	} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name = ?", table).Scan(&name)
		require.NoErrorf(t, err, "expected table %s to exist", table)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, runMigrations(db))
	require.NoError(t, runMigrations(db))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
	names, err := embeddedMigrationNames()
	require.NoError(t, err)
	require.Equal(t, len(names), count)
}

func TestRunMigrationsFailsLoudlyOnMissingSource(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, runMigrations(db))

	_, err := db.Exec("INSERT INTO migrations (version, applied_at) VALUES ('9999_ghost.sql', 0)")
	require.NoError(t, err)

	err = runMigrations(db)
	require.Error(t, err)
	require.Contains(t, err.Error(), "9999_ghost.sql")
}

func TestTagUsageCountTracksJunctionRows(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, runMigrations(db))

	now := int64(1000)
	_, err := db.Exec("INSERT INTO tags (name, color, usage_count, created_at, updated_at) VALUES ('go', '#000', 0, ?, ?)", now, now)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO notes (id, content, status, created_at, updated_at) VALUES ('n1', 'hello', 'inbox', ?, ?)", now, now)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO note_tags (note_id, tag) VALUES ('n1', 'go')")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT usage_count FROM tags WHERE name = 'go'").Scan(&count))
	require.Equal(t, 1, count)

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM notes WHERE id = 'n1'")
	require.NoError(t, err)

	require.NoError(t, db.QueryRow("SELECT usage_count FROM tags WHERE name = 'go'").Scan(&count))
	require.Equal(t, 0, count)
}

func TestDocumentsFTSStaysInSyncWithBaseTable(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, runMigrations(db))

	now := int64(1000)
	_, err := db.Exec(`INSERT INTO documents (id, title, content, content_type, source_type, doc_type, word_count, char_count, created_at, updated_at)
		VALUES ('d1', 'Runbook', 'restart the worker pool', 'markdown', 'manual', 'reference', 4, 24, ?, ?)`, now, now)
	require.NoError(t, err)

	var docID string
	err = db.QueryRow("SELECT doc_id FROM documents_fts WHERE documents_fts MATCH 'worker'").Scan(&docID)
	require.NoError(t, err)
	require.Equal(t, "d1", docID)

	_, err = db.Exec("DELETE FROM documents WHERE id = 'd1'")
	require.NoError(t, err)

	err = db.QueryRow("SELECT doc_id FROM documents_fts WHERE doc_id = 'd1'").Scan(&docID)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
