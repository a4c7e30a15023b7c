package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/logging"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationsDir = "migrations"

// migrationsTableDDL is applied before any embedded migration so the
// tracking table itself never depends on migration ordering.
const migrationsTableDDL = `
CREATE TABLE IF NOT EXISTS migrations (
	version    TEXT PRIMARY KEY,
	applied_at INTEGER NOT NULL
)`

// runMigrations applies every embedded *.sql file in lexicographic order.
// Each file must be idempotent (CREATE ... IF NOT EXISTS); already-applied
// versions are skipped. Startup fails loudly (spec.md §4.A) if a version
// recorded in the migrations table no longer has a matching source file —
// that indicates a mismatched binary/database pairing, not something safe
// to paper over.
func runMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "runMigrations")
	defer timer.Stop()

	if _, err := db.Exec(migrationsTableDDL); err != nil {
		return apperr.Fatal("failed to create migrations table", err)
	}

	names, err := embeddedMigrationNames()
	if err != nil {
		return apperr.Fatal("failed to list embedded migrations", err)
	}

	applied, err := appliedMigrationVersions(db)
	if err != nil {
		return apperr.Fatal("failed to read migrations table", err)
	}

	available := make(map[string]bool, len(names))
	for _, n := range names {
		available[n] = true
	}
	for version := range applied {
		if !available[version] {
			return apperr.Fatal(fmt.Sprintf("migration %q was previously applied but is missing from the embedded source set", version), nil)
		}
	}

	appliedCount := 0
	for _, name := range names {
		if applied[name] {
			logging.StoreDebug("migration %s already applied, skipping", name)
			continue
		}
		if err := applyMigration(db, name); err != nil {
			return apperr.Fatal(fmt.Sprintf("migration %s failed", name), err)
		}
		appliedCount++
	}

	logging.Store("migrations complete: %d applied, %d already current", appliedCount, len(names)-appliedCount)
	return nil
}

func embeddedMigrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, migrationsDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func appliedMigrationVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(db *sql.DB, name string) error {
	body, err := fs.ReadFile(migrationFS, migrationsDir+"/"+name)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return fmt.Errorf("executing %s: %w", name, err)
	}
	if _, err := tx.Exec("INSERT INTO migrations (version, applied_at) VALUES (?, strftime('%s','now'))", name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logging.Store("applied migration %s", name)
	return nil
}
