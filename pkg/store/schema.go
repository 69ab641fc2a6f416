package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if err := createLabelsTable(db); err != nil {
		return fmt.Errorf("creating labels table: %w", err)
	}

	if err := createSourcesTable(db); err != nil {
		return fmt.Errorf("creating sources table: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Insert version if table is empty
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	return nil
}

func createLabelsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS labels (
			content_id TEXT PRIMARY KEY NOT NULL,
			category TEXT NOT NULL,
			subcategory TEXT NOT NULL DEFAULT '',
			confidence INTEGER NOT NULL,
			language TEXT NOT NULL,
			model TEXT NOT NULL,
			classified_at TEXT NOT NULL
		)
	`)
	return err
}

func createSourcesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content_id TEXT NOT NULL,
			path TEXT NOT NULL,
			UNIQUE(content_id, path)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sources_content_id ON sources(content_id)
	`)
	return err
}
