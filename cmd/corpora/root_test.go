package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every package-level flag to its default.
func resetFlags(t *testing.T) {
	t.Helper()
	verbose, quiet = false, false
	colorMode = "never"
	configPath = ""
	outputDir = ""

	encodeViaTableExport, encodeOCR, encodeNoContainers = false, false, false
	encodeWorkers, encodeMaxDepth = 0, 0
	encodeMaxFileSize = ""

	decodeKeep = false

	catalogEndpoint, catalogModel, catalogCache = "", "", ""
	catalogFormat = "human"
	catalogWorkers = 0
	catalogOCR = false
	catalogMergeOutput = "merged-labels.db"
}

// newTestCmd returns a command with captured output.
func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &buf
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewLogger_Levels(t *testing.T) {
	resetFlags(t)
	var buf bytes.Buffer

	logger := newLogger(&buf)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	verbose = true
	assert.True(t, newLogger(&buf).Enabled(context.Background(), slog.LevelDebug))

	verbose, quiet = false, true
	logger = newLogger(&buf)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestSetupColor(t *testing.T) {
	resetFlags(t)
	defer func() { color.NoColor = true }()

	colorMode = "always"
	setupColor(&bytes.Buffer{})
	assert.False(t, color.NoColor)

	colorMode = "never"
	setupColor(&bytes.Buffer{})
	assert.True(t, color.NoColor)

	colorMode = "auto"
	setupColor(&bytes.Buffer{})
	assert.True(t, color.NoColor, "non-terminal writers get no color")
}

func TestLoadConfig(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "corpora.yaml")
	writeTestFile(t, cfgPath, "workers: 3\noutput_dir: "+filepath.Join(dir, "from-file")+"\n")

	configPath = cfgPath
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.DirExists(t, filepath.Join(dir, "from-file"))

	outputDir = filepath.Join(dir, "from-flag")
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, outputDir, cfg.OutputDir)
	assert.DirExists(t, outputDir)

	configPath = filepath.Join(dir, "missing.yaml")
	_, err = loadConfig()
	assert.Error(t, err)
}
