package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/corpora/pkg/catalog"
	"github.com/praetorian-inc/corpora/pkg/store"
	"github.com/praetorian-inc/corpora/pkg/types"
)

// newGenerateServer answers every generation request with response.
func newGenerateServer(t *testing.T, response string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"response": response, "done": true})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestRunCatalog_JSON(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "patient treatment notes")
	writeTestFile(t, filepath.Join(dir, "b.txt"), "patient treatment notes")

	server, calls := newGenerateServer(t, "medical: 90")
	catalogEndpoint = server.URL
	catalogCache = filepath.Join(t.TempDir(), "labels.db")
	catalogFormat = "json"

	cmd, out := newTestCmd()
	require.NoError(t, runCatalog(cmd, []string{dir}))
	assert.Equal(t, 1, *calls)

	var report catalog.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 1, report.Cached)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, types.CategoryMedical, report.Categories[0].Name)
	assert.Equal(t, 100.0, report.Categories[0].Percent)

	// A second run is answered from the cache.
	cmd, _ = newTestCmd()
	require.NoError(t, runCatalog(cmd, []string{dir}))
	assert.Equal(t, 1, *calls)
}

func TestRunCatalog_Human(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "guide.txt")
	writeTestFile(t, input, "install the python package")

	server, _ := newGenerateServer(t, "technical: 75")
	catalogEndpoint = server.URL
	catalogCache = store.MemoryPath
	outputDir = filepath.Join(t.TempDir(), "sorted")

	cmd, out := newTestCmd()
	require.NoError(t, runCatalog(cmd, []string{input}))

	output := out.String()
	assert.Contains(t, output, input+": technical/programming (75%, english)")
	assert.Contains(t, output, "Catalog summary")
	assert.Contains(t, output, "Average confidence: 75.0%")
	assert.DirExists(t, filepath.Join(outputDir, types.CategoryTechnical, "programming"))
}

func TestRunCatalog_UnknownFormat(t *testing.T) {
	resetFlags(t)
	catalogFormat = "xml"
	cmd, _ := newTestCmd()
	err := runCatalog(cmd, []string{"."})
	assert.Error(t, err)
}

func TestRunCatalogMerge(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()

	var sources []string
	for i, category := range []string{types.CategoryMedical, types.CategoryReference} {
		path := filepath.Join(dir, category+".db")
		st, err := store.NewSQLite(path)
		require.NoError(t, err)
		id := types.ComputeContentID([]byte(category))
		require.NoError(t, st.PutLabel(&types.Label{ContentID: id, Category: category, Confidence: 80 + i, Language: types.LanguageEnglish}))
		require.NoError(t, st.AddSource(id, category+".txt"))
		require.NoError(t, st.Close())
		sources = append(sources, path)
	}

	catalogMergeOutput = filepath.Join(dir, "merged.db")
	cmd, out := newTestCmd()
	require.NoError(t, runCatalogMerge(cmd, sources))
	assert.Contains(t, out.String(), "Labels merged: 2")

	merged, err := store.NewSQLite(catalogMergeOutput)
	require.NoError(t, err)
	defer merged.Close()
	labels, err := merged.AllLabels()
	require.NoError(t, err)
	assert.Len(t, labels, 2)
}
