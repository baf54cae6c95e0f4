package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB opens the SQLite database at dbPath with foreign keys enabled.
// The pool is limited to one connection: SQLite serializes writers anyway,
// and an in-memory database only exists on the connection that created it.
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// migrations holds the schema steps; PRAGMA user_version records how many
// of them have been applied. Append new steps, never edit old ones.
var migrations = [][]string{
	// 1: core records
	{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			domain TEXT NOT NULL,
			favicon TEXT,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			est_minutes INTEGER,
			word_count INTEGER,
			notes TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			last_opened_at DATETIME,
			metadata_fetched INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			usage_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS item_tags (
			item_id TEXT NOT NULL,
			tag_id TEXT NOT NULL,
			PRIMARY KEY (item_id, tag_id),
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
			FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			rules TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			is_system INTEGER NOT NULL DEFAULT 0,
			icon TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_url ON items(url)`,
		`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status)`,
		`CREATE INDEX IF NOT EXISTS idx_items_priority ON items(priority)`,
		`CREATE INDEX IF NOT EXISTS idx_items_domain ON items(domain)`,
		`CREATE INDEX IF NOT EXISTS idx_items_updated_at ON items(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_item_tags_tag_id ON item_tags(tag_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name COLLATE NOCASE)`,
	},
	// 2: tag hierarchy and open log
	{
		`ALTER TABLE tags ADD COLUMN parent TEXT`,
		`CREATE TABLE IF NOT EXISTS item_opens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL,
			opened_at DATETIME NOT NULL,
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_opens_item_id ON item_opens(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_item_opens_opened_at ON item_opens(opened_at)`,
	},
}

// SchemaVersion is the user_version a fully migrated database reports
var SchemaVersion = len(migrations)

// Migrate applies every pending migration step, each in its own transaction
func Migrate(db *sql.DB) error {
	return MigrateContext(context.Background(), db)
}

// MigrateContext is Migrate with a caller-supplied context
func MigrateContext(ctx context.Context, db *sql.DB) error {
	current, err := Version(ctx, db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		if err := applyStep(ctx, db, v+1, migrations[v]); err != nil {
			return err
		}
	}

	return nil
}

func applyStep(ctx context.Context, db *sql.DB, version int, statements []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", version, err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", version, err)
		}
	}

	// PRAGMA does not accept bound parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}
	return nil
}

// Version returns the schema version recorded in the database
func Version(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
