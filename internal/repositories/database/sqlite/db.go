// Package sqlite keeps the hierarchy state that the record store cannot hold in a local
// SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS record_hierarchy (
		record_id    TEXT PRIMARY KEY,
		level        TEXT,
		parent_id    TEXT,
		vers_include INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_record_hierarchy_parent ON record_hierarchy (parent_id)`,
	`ALTER TABLE record_hierarchy ADD COLUMN updated_at TEXT`,
}

// OpenDB opens the SQLite database at path, creating its directory when needed, and
// applies the schema.
func OpenDB(path string) (*sql.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating local state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening local state database: %w", err)
	}
	if path == MemoryPath {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running local state migrations: %w", err)
	}
	return db, nil
}

// Migrate applies every schema statement. Re-running is safe.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
