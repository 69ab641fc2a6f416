// Package pipeline runs the encode, decode and catalog operations for one
// top-level input at a time. Each input is finished before the next one
// starts; a failure is reported for that input only.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/praetorian-inc/corpora/pkg/container"
	"github.com/praetorian-inc/corpora/pkg/corpus"
	"github.com/praetorian-inc/corpora/pkg/extract"
	"github.com/praetorian-inc/corpora/pkg/naming"
	"github.com/praetorian-inc/corpora/pkg/pathfilter"
)

// ErrNoContent is reported when a producer finds nothing to write.
var ErrNoContent = errors.New("no text extracted")

// Output name suffixes for the generic corpus.
const (
	SuffixFolder   = "_folder_contents"
	SuffixFile     = "_file_contents"
	suffixContents = "_contents"
	corpusExt      = ".txt"
)

// Options configures a Pipeline.
type Options struct {
	// Encoder builds the generic corpus. Nil uses a default encoder.
	Encoder *corpus.Encoder

	// Producers handle documents the generic corpus skips. Nil disables
	// them.
	Producers *extract.Registry

	// OutputDir receives every output. Empty means the input's parent.
	OutputDir string

	// Alloc reserves output names. Nil allocates on the OS filesystem.
	Alloc *naming.Allocator

	Logger *slog.Logger
	Now    func() time.Time
}

// Pipeline dispatches inputs to the encoder, the producers and the decoder.
type Pipeline struct {
	enc       *corpus.Encoder
	producers *extract.Registry
	outDir    string
	alloc     *naming.Allocator
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		enc:       opts.Encoder,
		producers: opts.Producers,
		outDir:    opts.OutputDir,
		alloc:     opts.Alloc,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.enc == nil {
		p.enc = corpus.NewEncoder(corpus.Config{Logger: p.logger, Now: p.now})
	}
	if p.alloc == nil {
		p.alloc = naming.New(nil, naming.WithClock(p.now))
	}
	return p
}

// Output describes one corpus written by Encode.
type Output struct {
	// Input is the file or directory the corpus was built from.
	Input string
	// Path is the written corpus. Empty when Err is set.
	Path string
	// Producer names the format-specific producer, empty for the generic
	// corpus.
	Producer string
	Records  int
	Stats    *corpus.Stats
	Err      error
}

// Encode processes one top-level input and returns every corpus written
// for it. A directory yields its folder corpus followed by one corpus per
// producer-owned file found in it; producer failures for those files are
// reported on their Output. The returned error is set when the input
// itself could not be processed.
func (p *Pipeline) Encode(ctx context.Context, input string) ([]*Output, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(filepath.Clean(input))
	if info.IsDir() {
		doc, err := p.enc.EncodeDir(ctx, input)
		if err != nil {
			return nil, err
		}
		out, err := p.writeDocument(input, name+SuffixFolder, doc)
		if err != nil {
			return nil, err
		}
		outputs := []*Output{out}
		for _, deferred := range doc.Stats.Deferred {
			if err := ctx.Err(); err != nil {
				return outputs, err
			}
			outputs = append(outputs, p.produce(ctx, deferred))
		}
		return outputs, nil
	}

	if pathfilter.IsSplitFragment(input) {
		return nil, fmt.Errorf("%s: %w", input, corpus.ErrSplitFragment)
	}

	if format := container.DetectFormat(input); format != container.FormatNone {
		doc, err := p.enc.EncodeContainer(ctx, input)
		if err != nil {
			return nil, err
		}
		suffix := "_" + strings.ToLower(format.Label()) + suffixContents
		out, err := p.writeDocument(input, stem(name)+suffix, doc)
		if err != nil {
			return nil, err
		}
		return []*Output{out}, nil
	}

	if _, ok := p.producers.Lookup(input); ok {
		out := p.produce(ctx, input)
		if out.Err != nil {
			return nil, out.Err
		}
		return []*Output{out}, nil
	}
	if p.enc.IsHandledElsewhere(input) {
		return nil, fmt.Errorf("%s: %w", input, corpus.ErrHandledElsewhere)
	}

	doc, err := p.enc.EncodeFile(ctx, input)
	if err != nil {
		return nil, err
	}
	out, err := p.writeDocument(input, stem(name)+SuffixFile, doc)
	if err != nil {
		return nil, err
	}
	return []*Output{out}, nil
}

// produce runs the producer for path and writes its parts as one corpus.
func (p *Pipeline) produce(ctx context.Context, path string) *Output {
	prod, contents, err := p.producers.Extract(ctx, path)
	out := &Output{Input: path}
	if prod != nil {
		out.Producer = prod.Name()
	}
	if err != nil {
		out.Err = err
		p.logger.Warn("extraction failed", "path", path, "error", err)
		return out
	}
	if len(contents) == 0 {
		out.Err = fmt.Errorf("%s: %w", path, ErrNoContent)
		return out
	}

	name := filepath.Base(path)
	doc := corpus.NewDocument(corpus.FileTitle(name), p.now())
	for _, c := range contents {
		doc.AddText(c.Name, c.Text)
	}
	written, err := p.writeDocument(path, stem(name)+prod.OutputSuffix(), doc)
	if err != nil {
		out.Err = err
		return out
	}
	written.Producer = out.Producer
	return written
}

// writeDocument reserves "<base>.txt" in the output directory and writes
// doc to it.
func (p *Pipeline) writeDocument(input, base string, doc *corpus.Document) (*Output, error) {
	dir := p.outDir
	if dir == "" {
		dir = filepath.Dir(filepath.Clean(input))
	}
	target, err := p.alloc.AllocateFile(filepath.Join(dir, base), corpusExt)
	if err != nil {
		return nil, fmt.Errorf("allocating output for %s: %w", input, err)
	}
	doc.Header.OutputName = filepath.Base(target)

	fsys := p.alloc.Fs()
	f, err := fsys.OpenFile(target, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", target, err)
	}
	w := bufio.NewWriter(f)
	if _, err := doc.WriteTo(w); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing %s: %w", target, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", target, err)
	}

	p.logger.Debug("wrote corpus", "input", input, "output", target, "records", len(doc.Records))
	return &Output{
		Input:   input,
		Path:    target,
		Records: len(doc.Records),
		Stats:   doc.Stats,
	}, nil
}

// stem drops the last extension of name.
func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
