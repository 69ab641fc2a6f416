// Package extract holds the format-specific content producers that turn
// documents the generic corpus skips (PDF, office files, SQLite databases,
// HTML) into named text parts.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// ErrUnsupported means no producer can handle the file, or the producer
// lacks a capability it needs.
var ErrUnsupported = errors.New("unsupported document")

// Content is one named text part produced from a document.
type Content struct {
	// Name is a relative name for the part (e.g. "users.tsv", "page_0001.txt").
	Name string
	Text string
}

// Producer extracts text from one family of document formats.
type Producer interface {
	// Name identifies the producer in logs.
	Name() string

	// Extensions lists the lower-case extensions handled, with leading dot.
	Extensions() []string

	// OutputSuffix is appended to the input name to form the corpus file name.
	OutputSuffix() string

	// Extract reads the document at path.
	Extract(ctx context.Context, path string) ([]Content, error)
}

// Registry maps extensions to producers.
type Registry struct {
	byExt map[string]Producer
}

// NewRegistry creates a registry. Later producers override earlier ones
// for the same extension.
func NewRegistry(producers ...Producer) *Registry {
	r := &Registry{byExt: make(map[string]Producer)}
	for _, p := range producers {
		r.Register(p)
	}
	return r
}

// Register adds a producer for all of its extensions.
func (r *Registry) Register(p Producer) {
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// Lookup returns the producer for path's extension.
func (r *Registry) Lookup(path string) (Producer, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return p, ok
}

// Extract runs the matching producer. It returns ErrUnsupported when no
// producer handles the extension.
func (r *Registry) Extract(ctx context.Context, path string) (Producer, []Content, error) {
	p, ok := r.Lookup(path)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
	contents, err := p.Extract(ctx, path)
	if err != nil {
		return p, nil, fmt.Errorf("%s %s: %w", p.Name(), filepath.Base(path), err)
	}
	return p, contents, nil
}

// Options configures DefaultRegistry.
type Options struct {
	// OCR enables image-to-text for PDF pages without a text layer.
	OCR bool
	// OCREngine overrides the command-line engine used when OCR is set.
	OCREngine OCREngine
	// ViaTableExport routes databases through an in-memory workbook.
	ViaTableExport bool
	Logger         *slog.Logger
}

// DefaultRegistry returns every built-in producer configured by opts.
// When OCR is requested but no engine is available, PDF extraction runs
// without it and a warning is logged.
func DefaultRegistry(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pdfProducer := &PDF{Logger: logger}
	if opts.OCR {
		engine := opts.OCREngine
		if engine == nil {
			cmd, err := NewCommandOCR()
			if err != nil {
				logger.Warn("OCR requested but unavailable", "error", err)
			} else {
				engine = cmd
			}
		}
		pdfProducer.OCR = engine
	}

	return NewRegistry(
		pdfProducer,
		&Office{},
		&Spreadsheet{},
		&HTML{},
		&SQLite{ViaTableExport: opts.ViaTableExport},
	)
}
