package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/praetorian-inc/corpora/pkg/types"
	_ "modernc.org/sqlite"
)

// driverName is the database/sql driver registered by modernc.org/sqlite.
const driverName = "sqlite"

// timeLayout is fixed width so stored timestamps compare as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Initialize schema
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// PutLabel stores a label, replacing any previous one.
func (s *SQLiteStore) PutLabel(l *types.Label) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO labels (content_id, category, subcategory, confidence, language, model, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		l.ContentID.Hex(),
		l.Category,
		l.Subcategory,
		l.Confidence,
		l.Language,
		l.Model,
		l.ClassifiedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting label: %w", err)
	}
	return nil
}

const labelColumns = "content_id, category, subcategory, confidence, language, model, classified_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLabel(row rowScanner) (*types.Label, error) {
	var (
		l            types.Label
		classifiedAt string
	)
	if err := row.Scan(&l.ContentID, &l.Category, &l.Subcategory, &l.Confidence,
		&l.Language, &l.Model, &classifiedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, classifiedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing classified_at: %w", err)
	}
	l.ClassifiedAt = t
	return &l, nil
}

// GetLabel returns the label for id, or nil when none is stored.
func (s *SQLiteStore) GetLabel(id types.ContentID) (*types.Label, error) {
	row := s.db.QueryRow("SELECT "+labelColumns+" FROM labels WHERE content_id = ?", id.Hex())
	l, err := scanLabel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying label: %w", err)
	}
	return l, nil
}

// LabelExists checks if content has already been labelled.
func (s *SQLiteStore) LabelExists(id types.ContentID) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM labels WHERE content_id = ?", id.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking label: %w", err)
	}
	return count > 0, nil
}

// AllLabels returns every stored label ordered by content ID.
func (s *SQLiteStore) AllLabels() ([]*types.Label, error) {
	rows, err := s.db.Query("SELECT " + labelColumns + " FROM labels ORDER BY content_id")
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	var labels []*types.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// AddSource records a path for content (deduplicated).
func (s *SQLiteStore) AddSource(id types.ContentID, path string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO sources (content_id, path) VALUES (?, ?)", id.Hex(), path)
	if err != nil {
		return fmt.Errorf("inserting source: %w", err)
	}
	return nil
}

// GetSources returns the recorded paths for content, sorted.
func (s *SQLiteStore) GetSources(id types.ContentID) ([]string, error) {
	rows, err := s.db.Query("SELECT path FROM sources WHERE content_id = ? ORDER BY path", id.Hex())
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
