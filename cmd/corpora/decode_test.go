package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDecode(t *testing.T) {
	resetFlags(t)
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	writeTestFile(t, filepath.Join(proj, "src", "main.py"), "print(1)\n")

	cmd, _ := newTestCmd()
	require.NoError(t, runEncode(cmd, []string{proj}))
	corpusPath := filepath.Join(root, "proj_folder_contents.txt")

	cmd, out := newTestCmd()
	require.NoError(t, runDecode(cmd, []string{corpusPath}))

	splitDir := filepath.Join(root, "proj_folder_contents_split")
	assert.FileExists(t, filepath.Join(splitDir, "src", "main.py"))
	assert.NoFileExists(t, corpusPath)
	assert.Contains(t, out.String(), "(1 files, strict parse)")
	assert.Contains(t, out.String(), "removed "+corpusPath)
}

func TestRunDecode_KeepAndFailures(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "a.txt")
	writeTestFile(t, input, "a")
	junk := filepath.Join(dir, "junk.txt")
	writeTestFile(t, junk, "no records here")

	cmd, _ := newTestCmd()
	require.NoError(t, runEncode(cmd, []string{input}))
	corpusPath := filepath.Join(dir, "a_file_contents.txt")

	decodeKeep = true
	cmd, out := newTestCmd()
	err := runDecode(cmd, []string{junk, corpusPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 corpora failed")
	assert.Contains(t, out.String(), "✗ "+junk)

	assert.FileExists(t, corpusPath)
	assert.FileExists(t, junk)
	data, err := os.ReadFile(filepath.Join(dir, "a_file_contents_split", "a.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "a\n")
}
