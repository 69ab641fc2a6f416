// Package store persists catalog labels keyed by content hash.
package store

import (
	"fmt"

	"github.com/praetorian-inc/corpora/pkg/types"
)

// MemoryPath selects the in-memory backend.
const MemoryPath = ":memory:"

// Store provides persistence for catalog labels.
// This interface abstracts the underlying storage implementation so the
// catalog can run against SQLite or a process-local map.
type Store interface {
	// PutLabel stores a label, replacing any previous label for the same
	// content (last writer wins).
	PutLabel(l *types.Label) error

	// GetLabel returns the label for id, or nil when none is stored.
	GetLabel(id types.ContentID) (*types.Label, error)

	// LabelExists checks if content has already been labelled.
	LabelExists(id types.ContentID) (bool, error)

	// AllLabels returns every stored label ordered by content ID.
	AllLabels() ([]*types.Label, error)

	// AddSource records a path at which the content was seen.
	AddSource(id types.ContentID, path string) error

	// GetSources returns the recorded paths for content, sorted.
	GetSources(id types.ContentID) ([]string, error)

	// Close closes the database connection.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for a process-local store (useful for testing).
	Path string
}

// New creates a Store. ":memory:" returns a MemoryStore; any other path
// opens (or creates) a SQLite database.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Path == MemoryPath {
		return NewMemory(), nil
	}
	return NewSQLite(cfg.Path)
}
