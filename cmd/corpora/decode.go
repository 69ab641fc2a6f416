package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/corpora/pkg/pipeline"
)

var decodeKeep bool

var decodeCmd = &cobra.Command{
	Use:   "decode <corpus-file>...",
	Short: "Split corpus files back into individual files",
	Long: `Decode each corpus into a sibling <name>_split directory.

The corpus file is deleted after its files are written, unless --keep is given.
A corpus in which no records can be found is reported and left in place.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeKeep, "keep", false, "Keep the corpus file after decoding")
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	logger := newLogger(cmd.ErrOrStderr())
	s := commandStyles(cmd)
	out := cmd.OutOrStdout()

	p := pipeline.New(pipeline.Options{OutputDir: cfg.OutputDir, Logger: logger})

	failed := 0
	for _, corpusPath := range args {
		res, err := p.Decode(ctx, corpusPath, decodeKeep)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.fail.Fprintf(out, "✗ %s: %v\n", corpusPath, err)
			failed++
			continue
		}

		s.ok.Fprint(out, "✓ ")
		fmt.Fprintf(out, "%s -> ", corpusPath)
		s.path.Fprintf(out, "%s", res.Dir)
		fmt.Fprintf(out, " (%d files, %s parse)\n", len(res.Files), res.Strategy)
		if res.Discarded > 0 {
			s.warn.Fprintf(out, "  %d records had no usable path\n", res.Discarded)
		}
		if res.Removed {
			fmt.Fprintf(out, "  removed %s\n", corpusPath)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d corpora failed", failed, len(args))
	}
	return nil
}
