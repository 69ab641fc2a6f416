// Package corpora flattens file trees into a single delimited text corpus
// and splits corpora back into files.
//
// # Basic Usage
//
// Encode a directory, archive or file and write the corpus:
//
//	codec, err := corpora.NewCodec()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stats, err := codec.Encode(ctx, "project/", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d files written, %d skipped\n", stats.Processed, stats.Skipped)
//
// # Decoding
//
// Recover the files recorded in a corpus:
//
//	files, err := corpora.Decode(text)
//	for _, f := range files {
//	    fmt.Println(f.Path, len(f.Content))
//	}
package corpora

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/praetorian-inc/corpora/pkg/corpus"
	"github.com/praetorian-inc/corpora/pkg/pathfilter"
)

// Re-export commonly used types for convenience.
type (
	// Document is an encoded corpus held in memory.
	Document = corpus.Document

	// Record is one file entry of a corpus.
	Record = corpus.Record

	// Stats holds the counts of one encoding.
	Stats = corpus.Stats

	// DecodedFile is one file recovered from a corpus.
	DecodedFile = corpus.DecodedFile
)

// Re-export the errors callers branch on.
var (
	ErrSplitFragment    = corpus.ErrSplitFragment
	ErrHandledElsewhere = corpus.ErrHandledElsewhere
	ErrNoRecords        = corpus.ErrNoRecords
)

// Codec encodes inputs into corpora.
type Codec struct {
	enc *corpus.Encoder
}

// codecConfig holds codec configuration.
type codecConfig struct {
	ignore         []string
	workers        int
	maxFileSize    int64
	skipContainers bool
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures a Codec.
type Option func(*codecConfig)

// WithIgnore adds gitignore-style patterns to the built-in ignore rules.
func WithIgnore(patterns ...string) Option {
	return func(c *codecConfig) {
		c.ignore = append(c.ignore, patterns...)
	}
}

// WithWorkers sets the number of concurrent readers. Default is 1.
// Record order does not depend on it.
func WithWorkers(workers int) Option {
	return func(c *codecConfig) {
		c.workers = workers
	}
}

// WithMaxFileSize skips entries larger than size bytes.
func WithMaxFileSize(size int64) Option {
	return func(c *codecConfig) {
		c.maxFileSize = size
	}
}

// WithoutContainers classifies nested archives by content instead of
// expanding them.
func WithoutContainers() Option {
	return func(c *codecConfig) {
		c.skipContainers = true
	}
}

// WithLogger sets the logger for per-entry problems.
func WithLogger(logger *slog.Logger) Option {
	return func(c *codecConfig) {
		c.logger = logger
	}
}

// WithClock sets the time stamped into corpus headers.
func WithClock(now func() time.Time) Option {
	return func(c *codecConfig) {
		c.now = now
	}
}

// NewCodec creates a Codec with the given options.
//
// By default, the codec:
//   - Applies the built-in ignore rules only
//   - Expands nested archives up to four levels
//   - Reads with a single worker
func NewCodec(opts ...Option) (*Codec, error) {
	config := &codecConfig{workers: 1}
	for _, opt := range opts {
		opt(config)
	}

	filter, err := pathfilter.New(pathfilter.WithRules(config.ignore...))
	if err != nil {
		return nil, fmt.Errorf("compiling ignore rules: %w", err)
	}

	return &Codec{
		enc: corpus.NewEncoder(corpus.Config{
			Filter:         filter,
			Workers:        config.workers,
			MaxFileSize:    config.maxFileSize,
			SkipContainers: config.skipContainers,
			Logger:         config.logger,
			Now:            config.now,
		}),
	}, nil
}

// EncodeDocument encodes a directory, archive or file into a Document.
func (c *Codec) EncodeDocument(ctx context.Context, path string) (*Document, error) {
	return c.enc.Encode(ctx, path)
}

// Encode encodes path and writes the corpus to w.
func (c *Codec) Encode(ctx context.Context, path string, w io.Writer) (*Stats, error) {
	doc, err := c.enc.Encode(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := doc.WriteTo(w); err != nil {
		return nil, fmt.Errorf("writing corpus: %w", err)
	}
	return doc.Stats, nil
}

// Decode parses corpus text into files with sanitized relative paths.
// It returns ErrNoRecords when no record can be recovered.
func Decode(text string) ([]DecodedFile, error) {
	files, _, _, err := corpus.Decode(text)
	return files, err
}

// SanitizePath returns the relative path Decode would use for p.
func SanitizePath(p string) string {
	return corpus.SanitizePath(p)
}
