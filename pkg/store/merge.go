package store

import (
	"database/sql"
	"fmt"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	LabelsMerged     int
	SourcesMerged    int
	SourcesProcessed int
}

// Merge combines several label databases into one. A label already in the
// destination is replaced only by a more recently classified one; source
// paths are deduplicated.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	destDB, err := sql.Open(driverName, cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer destDB.Close()

	if err := CreateSchema(destDB); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	stats := &MergeStats{}
	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(destDB, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.LabelsMerged += sourceStats.LabelsMerged
		stats.SourcesMerged += sourceStats.SourcesMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	sourceDB, err := sql.Open(driverName, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	stats := &MergeStats{}

	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	labelCount, err := mergeLabels(tx, sourceDB)
	if err != nil {
		return nil, fmt.Errorf("merging labels: %w", err)
	}
	stats.LabelsMerged = labelCount

	sourceCount, err := mergeSources(tx, sourceDB)
	if err != nil {
		return nil, fmt.Errorf("merging sources: %w", err)
	}
	stats.SourcesMerged = sourceCount

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return stats, nil
}

func mergeLabels(tx *sql.Tx, sourceDB *sql.DB) (int, error) {
	rows, err := sourceDB.Query("SELECT " + labelColumns + " FROM labels")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	stmt, err := tx.Prepare(`
		INSERT INTO labels (` + labelColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			category = excluded.category,
			subcategory = excluded.subcategory,
			confidence = excluded.confidence,
			language = excluded.language,
			model = excluded.model,
			classified_at = excluded.classified_at
		WHERE excluded.classified_at > labels.classified_at
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for rows.Next() {
		var contentID, category, subcategory, language, model, classifiedAt string
		var confidence int
		if err := rows.Scan(&contentID, &category, &subcategory, &confidence,
			&language, &model, &classifiedAt); err != nil {
			return count, err
		}
		result, err := stmt.Exec(contentID, category, subcategory, confidence, language, model, classifiedAt)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}

func mergeSources(tx *sql.Tx, sourceDB *sql.DB) (int, error) {
	rows, err := sourceDB.Query("SELECT content_id, path FROM sources")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO sources (content_id, path) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for rows.Next() {
		var contentID, path string
		if err := rows.Scan(&contentID, &path); err != nil {
			return count, err
		}
		result, err := stmt.Exec(contentID, path)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}
