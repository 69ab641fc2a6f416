package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/corpora/pkg/catalog"
	"github.com/praetorian-inc/corpora/pkg/classify"
	"github.com/praetorian-inc/corpora/pkg/pathfilter"
	"github.com/praetorian-inc/corpora/pkg/types"
)

// TextExtensions are cataloged when found in a directory walk, in addition
// to every extension a producer handles.
var TextExtensions = []string{
	".txt", ".py", ".js", ".html", ".css", ".json", ".xml", ".csv", ".md", ".yml", ".yaml",
}

// CatalogOptions configures Catalog.
type CatalogOptions struct {
	Classifier *catalog.Classifier

	// Writer stores a categorized copy of every labeled document. Nil
	// disables the copies.
	Writer *catalog.Writer

	// Filter adds ignore rules for directory walks.
	Filter *pathfilter.Filter

	// MaxFileSize skips larger files (0 = no limit).
	MaxFileSize int64

	// Workers is the number of concurrent readers.
	Workers int
}

// source is one document selected for cataloging.
type source struct {
	path string
	size int64
	text string
	err  error
}

// Catalog labels every document below inputs. Reading runs in parallel;
// labeling runs in input order against a single classifier whose cache is
// flushed once at the end. Per-document failures are listed in the report.
// The returned error joins the failures of top-level inputs.
func (p *Pipeline) Catalog(ctx context.Context, inputs []string, opts CatalogOptions) (*catalog.Report, error) {
	if opts.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}

	// Phase 1: collect document paths.
	var (
		sources   []*source
		failures  []catalog.Failure
		inputErrs []error
	)
	for _, input := range inputs {
		found, err := p.collect(ctx, input, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			inputErrs = append(inputErrs, err)
			failures = append(failures, catalog.Failure{Path: input, Error: err.Error()})
			continue
		}
		sources = append(sources, found...)
	}
	p.logger.Info("found documents to catalog", "count", len(sources))

	// Phase 2: read documents in parallel.
	if err := p.readSources(ctx, sources, opts.Workers); err != nil {
		return nil, err
	}

	// Phase 3: label sequentially.
	var results []*catalog.Result
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, p.flushCancelled(opts.Classifier, err)
		}
		if src.err != nil {
			failures = append(failures, catalog.Failure{Path: src.path, Error: src.err.Error()})
			continue
		}
		p.logger.Debug("cataloging", "index", i+1, "total", len(sources), "path", src.path)

		res, err := opts.Classifier.ClassifyDocument(ctx, src.path, src.text, src.size)
		if err != nil {
			if ctx.Err() != nil {
				return nil, p.flushCancelled(opts.Classifier, ctx.Err())
			}
			p.logger.Warn("cataloging failed", "path", src.path, "error", err)
			failures = append(failures, catalog.Failure{Path: src.path, Error: err.Error()})
			continue
		}
		if opts.Writer != nil {
			out, err := opts.Writer.Write(res)
			if err != nil {
				failures = append(failures, catalog.Failure{Path: src.path, Error: err.Error()})
			} else {
				res.Output = out
			}
		}
		results = append(results, res)
	}

	if err := opts.Classifier.Flush(); err != nil {
		return nil, err
	}
	return catalog.NewReport(p.now(), results, failures), errors.Join(inputErrs...)
}

// flushCancelled persists the labels obtained before cancellation and
// returns cause.
func (p *Pipeline) flushCancelled(c *catalog.Classifier, cause error) error {
	if err := c.Flush(); err != nil {
		p.logger.Warn("cannot persist labels after cancellation", "error", err)
	}
	return cause
}

// collect returns the documents selected from one input. An explicitly
// named file is always selected.
func (p *Pipeline) collect(ctx context.Context, input string, opts CatalogOptions) ([]*source, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []*source{{path: input, size: info.Size()}}, nil
	}

	wanted := make(map[string]bool, len(TextExtensions))
	for _, ext := range TextExtensions {
		wanted[ext] = true
	}

	// WalkDir does not follow a symlinked root.
	root, err := filepath.EvalSymlinks(input)
	if err != nil {
		return nil, err
	}

	var found []*source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			p.logger.Warn("cannot read path", "path", path, "error", err)
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if opts.Filter.ShouldIgnore(filepath.ToSlash(rel) + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || opts.Filter.ShouldIgnore(filepath.ToSlash(rel)) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := p.producers.Lookup(path); !ok && !wanted[ext] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			p.logger.Warn("cannot stat file", "path", path, "error", err)
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			p.logger.Debug("file exceeds size limit", "path", path, "size", info.Size())
			return nil
		}
		found = append(found, &source{path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", input, err)
	}
	return found, nil
}

// readSources fills in the text of every source. Per-document errors are
// stored on the source; only cancellation aborts.
func (p *Pipeline) readSources(ctx context.Context, sources []*source, workers int) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	ch := make(chan *source, workers*2)

	g.Go(func() error {
		defer close(ch)
		for _, src := range sources {
			select {
			case ch <- src:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for src := range ch {
				if err := gctx.Err(); err != nil {
					return err
				}
				src.text, src.err = p.readText(gctx, src.path)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// readText returns the text of one document, through its producer when
// one handles the extension.
func (p *Pipeline) readText(ctx context.Context, path string) (string, error) {
	if _, ok := p.producers.Lookup(path); ok {
		_, contents, err := p.producers.Extract(ctx, path)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(contents))
		for _, c := range contents {
			parts = append(parts, c.Text)
		}
		return strings.Join(parts, "\n\n"), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	res := classify.Classify(content)
	switch res.Kind {
	case types.KindText:
		return res.Text, nil
	case types.KindEmpty:
		return "", catalog.ErrEmpty
	default:
		return "", fmt.Errorf("%s: binary content (%s)", filepath.Base(path), res.Binary)
	}
}
