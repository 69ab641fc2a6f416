package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/corpora/pkg/catalog"
	"github.com/praetorian-inc/corpora/pkg/config"
	"github.com/praetorian-inc/corpora/pkg/extract"
	"github.com/praetorian-inc/corpora/pkg/naming"
	"github.com/praetorian-inc/corpora/pkg/pipeline"
	"github.com/praetorian-inc/corpora/pkg/store"
)

var (
	catalogEndpoint string
	catalogModel    string
	catalogCache    string
	catalogFormat   string
	catalogWorkers  int
	catalogTimeout  time.Duration
	catalogOCR      bool

	catalogMergeOutput string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <path>...",
	Short: "Classify text files by topic with a local model",
	Long: `Catalog labels every text document below the given paths as medical,
technical, translation, reference or misc, with a confidence and the detected
language. Labels are cached by content hash, so unchanged content is sent to
the model once across runs.

With --output-dir, a copy of each document is written under
<output-dir>/<category>/<subcategory>/ with a YAML front matter header.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCatalog,
}

var catalogMergeCmd = &cobra.Command{
	Use:   "merge <source1.db> <source2.db> [source3.db...]",
	Short: "Merge catalog label caches",
	Long: `Merge several label caches into one database.

When two caches label the same content, the more recent label is kept.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCatalogMerge,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogEndpoint, "endpoint", "", "Generation endpoint (default: config value or "+catalog.DefaultEndpoint+")")
	catalogCmd.Flags().StringVar(&catalogModel, "model", "", "Model name (default: config value or "+catalog.DefaultModel+")")
	catalogCmd.Flags().StringVar(&catalogCache, "cache", "", "Label cache database, or :memory: (default: config value or "+config.DefaultCacheFile+")")
	catalogCmd.Flags().StringVar(&catalogFormat, "format", "human", "Output format: human, json")
	catalogCmd.Flags().IntVar(&catalogWorkers, "workers", 0, "Concurrent readers (default: config value)")
	catalogCmd.Flags().DurationVar(&catalogTimeout, "timeout", 2*time.Minute, "Timeout for one model request")
	catalogCmd.Flags().BoolVar(&catalogOCR, "ocr", false, "OCR PDF pages without a text layer")

	catalogMergeCmd.Flags().StringVar(&catalogMergeOutput, "into", "merged-labels.db", "Output database path")
	catalogCmd.AddCommand(catalogMergeCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	if catalogFormat != "human" && catalogFormat != "json" {
		return fmt.Errorf("unknown output format: %s", catalogFormat)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if catalogEndpoint != "" {
		cfg.Catalog.Endpoint = catalogEndpoint
	}
	if catalogModel != "" {
		cfg.Catalog.Model = catalogModel
	}
	if catalogCache != "" {
		cfg.Catalog.Cache = catalogCache
	}
	if catalogWorkers > 0 {
		cfg.Workers = catalogWorkers
	}

	ctx := commandContext(cmd)
	logger := newLogger(cmd.ErrOrStderr())

	st, err := store.New(store.Config{Path: cfg.Catalog.Cache})
	if err != nil {
		return fmt.Errorf("opening label cache: %w", err)
	}
	defer st.Close()

	gen := catalog.NewOllamaClient(cfg.Catalog.Endpoint, cfg.Catalog.Model, &http.Client{Timeout: catalogTimeout})
	classifier, err := catalog.New(catalog.Config{Generator: gen, Store: st, Logger: logger})
	if err != nil {
		return err
	}

	filter, err := cfg.Filter("")
	if err != nil {
		return err
	}
	opts := pipeline.CatalogOptions{
		Classifier:  classifier,
		Filter:      filter,
		MaxFileSize: int64(cfg.MaxFileSize),
		Workers:     cfg.Workers,
	}
	if cfg.OutputDir != "" {
		opts.Writer = catalog.NewWriter(cfg.OutputDir, naming.New(nil))
	}

	p := pipeline.New(pipeline.Options{
		Producers: extract.DefaultRegistry(extract.Options{OCR: catalogOCR, Logger: logger}),
		Logger:    logger,
	})
	report, runErr := p.Catalog(ctx, args, opts)
	if report == nil {
		return runErr
	}

	switch catalogFormat {
	case "json":
		if err := outputCatalogJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	default:
		outputCatalogHuman(cmd.OutOrStdout(), commandStyles(cmd), report)
	}
	return runErr
}

func outputCatalogJSON(w io.Writer, report *catalog.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func outputCatalogHuman(w io.Writer, s *styles, report *catalog.Report) {
	for _, res := range report.Results {
		s.path.Fprintf(w, "%s", res.Path)
		fmt.Fprintf(w, ": %s/%s (%d%%, %s)", res.Label.Category, res.Label.Subcategory, res.Label.Confidence, res.Label.Language)
		if res.Cached {
			fmt.Fprint(w, " [cached]")
		}
		fmt.Fprintln(w)
		if res.Output != "" {
			fmt.Fprintf(w, "  -> %s\n", res.Output)
		}
	}
	if len(report.Results) > 0 {
		fmt.Fprintln(w)
	}

	s.heading.Fprintln(w, "Catalog summary")
	fmt.Fprintf(w, "  Files:              %d\n", report.Files)
	fmt.Fprintf(w, "  From cache:         %d\n", report.Cached)
	fmt.Fprintf(w, "  Words:              %d\n", report.Words)
	fmt.Fprintf(w, "  Characters:         %d\n", report.Chars)
	fmt.Fprintf(w, "  Average confidence: %.1f%%\n", report.AvgConfidence)

	if len(report.Categories) > 0 {
		s.heading.Fprintln(w, "Categories")
		for _, c := range report.Categories {
			fmt.Fprintf(w, "  %-12s ", c.Name)
			s.count.Fprintf(w, "%4d", c.Count)
			fmt.Fprintf(w, "  (%.1f%%)\n", c.Percent)
		}
	}
	if len(report.Languages) > 0 {
		s.heading.Fprintln(w, "Languages")
		for _, c := range report.Languages {
			fmt.Fprintf(w, "  %-12s ", c.Name)
			s.count.Fprintf(w, "%4d", c.Count)
			fmt.Fprintf(w, "  (%.1f%%)\n", c.Percent)
		}
	}
	if len(report.Failures) > 0 {
		s.fail.Fprintf(w, "Failures (%d)\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
		}
	}
}

func runCatalogMerge(cmd *cobra.Command, args []string) error {
	stats, err := store.Merge(store.MergeConfig{
		SourcePaths: args,
		DestPath:    catalogMergeOutput,
	})
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merge complete:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  Databases processed: %d\n", stats.SourcesProcessed)
	fmt.Fprintf(cmd.OutOrStdout(), "  Labels merged: %d\n", stats.LabelsMerged)
	fmt.Fprintf(cmd.OutOrStdout(), "  Source paths merged: %d\n", stats.SourcesMerged)
	fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", catalogMergeOutput)
	return nil
}
