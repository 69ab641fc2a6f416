package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/praetorian-inc/corpora/pkg/config"
)

var (
	verbose    bool
	quiet      bool
	colorMode  string
	configPath string
	outputDir  string
)

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Corpora - flatten file trees into text corpora and back",
	Long: `Corpora turns directories, archives and documents into a single delimited
text corpus, splits corpora back into files, and catalogs text by topic using
a local generation model.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Color output: auto, always, never")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for outputs (default: next to each input)")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the context cmd was executed with.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newLogger builds the diagnostic logger. Library packages log through it;
// user-facing lines are printed directly by each command.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config and applies the flags shared by every command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	return cfg, nil
}

// setupColor decides whether styled output is enabled for w.
func setupColor(w io.Writer) {
	switch colorMode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default: // "auto"
		f, ok := w.(*os.File)
		if !ok || !term.IsTerminal(int(f.Fd())) || os.Getenv("NO_COLOR") != "" {
			color.NoColor = true
		} else {
			color.NoColor = false
		}
	}
}

// styles holds the color formatters for command output.
type styles struct {
	heading *color.Color
	path    *color.Color
	ok      *color.Color
	warn    *color.Color
	fail    *color.Color
	count   *color.Color
}

// newStyles creates color formatters. enabled=false follows --color=never
// and NO_COLOR.
func newStyles(enabled bool) *styles {
	s := &styles{
		heading: color.New(color.Bold),
		path:    color.New(color.FgHiBlue),
		ok:      color.New(color.FgHiGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.Bold, color.FgRed),
		count:   color.New(color.FgHiWhite),
	}
	if !enabled {
		for _, c := range []*color.Color{s.heading, s.path, s.ok, s.warn, s.fail, s.count} {
			c.DisableColor()
		}
	}
	return s
}

// commandStyles configures color for cmd's stdout and returns the styles.
func commandStyles(cmd *cobra.Command) *styles {
	setupColor(cmd.OutOrStdout())
	return newStyles(!color.NoColor)
}
