package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/corpora/pkg/config"
	"github.com/praetorian-inc/corpora/pkg/corpus"
	"github.com/praetorian-inc/corpora/pkg/extract"
	"github.com/praetorian-inc/corpora/pkg/pipeline"
)

var (
	encodeViaTableExport bool
	encodeOCR            bool
	encodeWorkers        int
	encodeMaxFileSize    string
	encodeNoContainers   bool
	encodeMaxDepth       int
)

var encodeCmd = &cobra.Command{
	Use:   "encode <path>...",
	Short: "Flatten files, directories and archives into text corpora",
	Long: `Encode each path into a corpus text file written next to it.

Directories produce <name>_folder_contents.txt, archives <name>_<format>_contents.txt
and plain files <name>_file_contents.txt. PDF, office documents, HTML and SQLite
databases are handled by their own producers and written as separate corpora.
Each path is processed independently; a path that cannot be processed is
reported and the remaining paths continue.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().BoolVar(&encodeViaTableExport, "via-table-export", false, "Export databases through an in-memory spreadsheet")
	encodeCmd.Flags().BoolVar(&encodeOCR, "ocr", false, "OCR PDF pages without a text layer (requires pdftoppm and tesseract)")
	encodeCmd.Flags().IntVar(&encodeWorkers, "workers", 0, "Concurrent readers (default: config value)")
	encodeCmd.Flags().StringVar(&encodeMaxFileSize, "max-file-size", "", "Skip files larger than this (e.g. 10MB)")
	encodeCmd.Flags().BoolVar(&encodeNoContainers, "no-containers", false, "Do not expand archives nested in inputs")
	encodeCmd.Flags().IntVar(&encodeMaxDepth, "max-depth", 0, "Maximum nested archive depth (default: config value)")
}

// applyEncodeFlags overrides file settings with flags that were set.
func applyEncodeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = encodeWorkers
	}
	if flags.Changed("max-file-size") {
		size, err := config.ParseByteSize(encodeMaxFileSize)
		if err != nil {
			return fmt.Errorf("--max-file-size: %w", err)
		}
		cfg.MaxFileSize = size
	}
	if flags.Changed("no-containers") {
		expand := !encodeNoContainers
		cfg.ExpandContainers = &expand
	}
	if flags.Changed("max-depth") {
		cfg.MaxContainerDepth = encodeMaxDepth
	}
	return cfg.Validate()
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyEncodeFlags(cmd, cfg); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	logger := newLogger(cmd.ErrOrStderr())
	s := commandStyles(cmd)
	out := cmd.OutOrStdout()

	producers := extract.DefaultRegistry(extract.Options{
		OCR:            encodeOCR,
		ViaTableExport: encodeViaTableExport,
		Logger:         logger,
	})

	failed := 0
	for _, input := range args {
		root := ""
		if info, err := os.Stat(input); err == nil && info.IsDir() {
			root = input
		}
		encCfg, err := cfg.EncoderConfig(root, logger)
		if err != nil {
			s.fail.Fprintf(out, "✗ %s: %v\n", input, err)
			failed++
			continue
		}

		p := pipeline.New(pipeline.Options{
			Encoder:   corpus.NewEncoder(encCfg),
			Producers: producers,
			OutputDir: cfg.OutputDir,
			Logger:    logger,
		})
		outputs, err := p.Encode(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, corpus.ErrSplitFragment) {
				s.warn.Fprintf(out, "- %s: skipped, part of a split archive\n", input)
				continue
			}
			s.fail.Fprintf(out, "✗ %s: %v\n", input, err)
			failed++
			continue
		}
		for _, o := range outputs {
			printEncodeOutput(out, s, o)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(args))
	}
	return nil
}

func printEncodeOutput(w io.Writer, s *styles, o *pipeline.Output) {
	if o.Err != nil {
		s.warn.Fprintf(w, "! %s: %v\n", o.Input, o.Err)
		return
	}

	s.ok.Fprint(w, "✓ ")
	fmt.Fprintf(w, "%s -> ", o.Input)
	s.path.Fprintf(w, "%s", o.Path)
	fmt.Fprintf(w, " (%d records)\n", o.Records)

	st := o.Stats
	if st == nil {
		return
	}
	fmt.Fprintf(w, "  processed %d, skipped %d, markers %d, binary %d, handled elsewhere %d\n",
		st.Processed, st.Skipped, st.Markers, st.Binary, st.HandledElsewhere)
	if st.Collisions > 0 {
		s.warn.Fprintf(w, "  %d records contain delimiter lines and may not split cleanly\n", st.Collisions)
	}
}
