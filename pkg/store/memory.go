package store

import (
	"bytes"
	"sort"
	"sync"

	"github.com/praetorian-inc/corpora/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu      sync.RWMutex
	labels  map[types.ContentID]*types.Label
	sources map[types.ContentID]map[string]struct{}
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		labels:  make(map[types.ContentID]*types.Label),
		sources: make(map[types.ContentID]map[string]struct{}),
	}
}

// PutLabel stores a copy of l.
func (m *MemoryStore) PutLabel(l *types.Label) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *l
	m.labels[l.ContentID] = &cp
	return nil
}

// GetLabel returns a copy of the stored label.
func (m *MemoryStore) GetLabel(id types.ContentID) (*types.Label, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.labels[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// LabelExists checks if content has already been labelled.
func (m *MemoryStore) LabelExists(id types.ContentID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.labels[id]
	return ok, nil
}

// AllLabels returns copies of every label ordered by content ID.
func (m *MemoryStore) AllLabels() ([]*types.Label, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Label, 0, len(m.labels))
	for _, l := range m.labels {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ContentID[:], out[j].ContentID[:]) < 0
	})
	return out, nil
}

// AddSource records a path for content (deduplicated).
func (m *MemoryStore) AddSource(id types.ContentID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths, ok := m.sources[id]
	if !ok {
		paths = make(map[string]struct{})
		m.sources[id] = paths
	}
	paths[path] = struct{}{}
	return nil
}

// GetSources returns the recorded paths for content, sorted.
func (m *MemoryStore) GetSources(id types.ContentID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.sources[id]))
	for p := range m.sources[id] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
