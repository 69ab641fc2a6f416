package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/praetorian-inc/corpora/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_EmptySources(t *testing.T) {
	_, err := Merge(MergeConfig{
		SourcePaths: []string{},
		DestPath:    filepath.Join(t.TempDir(), "dest.db"),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no source databases")
}

func TestMerge_NoDestination(t *testing.T) {
	_, err := Merge(MergeConfig{
		SourcePaths: []string{"source.db"},
		DestPath:    "",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "destination path is required")
}

func writeSource(t *testing.T, path string, labels []*types.Label, sources map[string]types.ContentID) {
	t.Helper()
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	for _, l := range labels {
		require.NoError(t, s.PutLabel(l))
	}
	for p, id := range sources {
		require.NoError(t, s.AddSource(id, p))
	}
}

func TestMerge_NewerLabelWins(t *testing.T) {
	dir := t.TempDir()
	older := testLabel("shared", types.CategoryMisc, labelTime)
	newer := testLabel("shared", types.CategoryMedical, labelTime.Add(24*time.Hour))
	only := testLabel("only-in-a", types.CategoryTechnical, labelTime)

	a := filepath.Join(dir, "a.db")
	b := filepath.Join(dir, "b.db")
	writeSource(t, a, []*types.Label{newer, only}, map[string]types.ContentID{"a/x.txt": newer.ContentID})
	writeSource(t, b, []*types.Label{older}, map[string]types.ContentID{"b/x.txt": older.ContentID, "a/x.txt": older.ContentID})

	dest := filepath.Join(dir, "dest.db")
	stats, err := Merge(MergeConfig{SourcePaths: []string{a, b}, DestPath: dest})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.SourcesProcessed)
	assert.Equal(t, 2, stats.LabelsMerged)
	assert.Equal(t, 2, stats.SourcesMerged)

	merged, err := NewSQLite(dest)
	require.NoError(t, err)
	defer merged.Close()

	got, err := merged.GetLabel(newer.ContentID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.CategoryMedical, got.Category)

	paths, err := merged.GetSources(newer.ContentID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/x.txt", "b/x.txt"}, paths)

	all, err := merged.AllLabels()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMerge_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := Merge(MergeConfig{
		SourcePaths: []string{filepath.Join(dir, "missing", "none.db")},
		DestPath:    filepath.Join(dir, "dest.db"),
	})
	assert.Error(t, err)
}
