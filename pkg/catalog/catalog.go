// Package catalog assigns a topical category to text documents using a
// local generation model. Labels are cached by content hash so identical
// content reaches the model once across runs.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/praetorian-inc/corpora/pkg/store"
	"github.com/praetorian-inc/corpora/pkg/types"
)

// ErrEmpty is returned for content with no text left after preprocessing.
var ErrEmpty = errors.New("empty content")

// Config configures a Classifier.
type Config struct {
	Generator Generator
	// Store holds labels across runs. Nil uses a process-local store.
	Store  store.Store
	Logger *slog.Logger
	Now    func() time.Time
}

// Result is the outcome of classifying one document.
type Result struct {
	Path   string       `json:"path"`
	Label  *types.Label `json:"label"`
	Words  int          `json:"words"`
	Chars  int          `json:"chars"`
	Size   int64        `json:"size"`
	Cached bool         `json:"cached"`
	// Output is the categorized copy written for the document, if any.
	Output string `json:"output,omitempty"`
	// Text is the preprocessed content the label was computed from.
	Text string `json:"-"`
}

// Classifier labels documents. The label cache is read in full from the
// store when the classifier is created and new labels are written back by
// Flush. A Classifier is not safe for concurrent use.
type Classifier struct {
	gen     Generator
	store   store.Store
	logger  *slog.Logger
	now     func() time.Time
	labels  map[types.ContentID]*types.Label
	pending map[types.ContentID]*types.Label
	sources map[types.ContentID][]string
}

// New creates a Classifier and loads every cached label.
func New(cfg Config) (*Classifier, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	st := cfg.Store
	if st == nil {
		st = store.NewMemory()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	all, err := st.AllLabels()
	if err != nil {
		return nil, fmt.Errorf("loading label cache: %w", err)
	}
	labels := make(map[types.ContentID]*types.Label, len(all))
	for _, l := range all {
		labels[l.ContentID] = l
	}
	logger.Debug("loaded label cache", "labels", len(labels))

	return &Classifier{
		gen:     cfg.Generator,
		store:   st,
		logger:  logger,
		now:     now,
		labels:  labels,
		pending: make(map[types.ContentID]*types.Label),
		sources: make(map[types.ContentID][]string),
	}, nil
}

// Cached returns the number of labels currently known.
func (c *Classifier) Cached() int {
	return len(c.labels)
}

// Classify labels raw text. The returned bool reports a cache hit.
// Generation errors are returned and nothing is cached for the content.
func (c *Classifier) Classify(ctx context.Context, text string) (*types.Label, bool, error) {
	processed := Preprocess(text)
	if processed == "" {
		return nil, false, ErrEmpty
	}
	return c.classifyProcessed(ctx, processed)
}

func (c *Classifier) classifyProcessed(ctx context.Context, processed string) (*types.Label, bool, error) {
	id := types.ComputeContentID([]byte(processed))
	if l, ok := c.labels[id]; ok {
		c.logger.Debug("using cached label", "content_id", id.Hex()[:8], "category", l.Category)
		return l, true, nil
	}

	lang := DetectLanguage(processed)
	response, err := c.gen.Generate(ctx, BuildPrompt(lang, Preview(processed)))
	if err != nil {
		return nil, false, err
	}

	category, confidence := ParseResponse(response)
	l := &types.Label{
		ContentID:    id,
		Category:     category,
		Subcategory:  Subcategory(category, processed),
		Confidence:   confidence,
		Language:     lang,
		Model:        c.gen.Model(),
		ClassifiedAt: c.now().UTC(),
	}
	c.labels[id] = l
	c.pending[id] = l
	return l, false, nil
}

// ClassifyDocument labels the text found at path and records path as a
// source of the content.
func (c *Classifier) ClassifyDocument(ctx context.Context, path string, text string, size int64) (*Result, error) {
	processed := Preprocess(text)
	if processed == "" {
		return nil, ErrEmpty
	}
	l, cached, err := c.classifyProcessed(ctx, processed)
	if err != nil {
		return nil, err
	}
	c.sources[l.ContentID] = append(c.sources[l.ContentID], path)

	return &Result{
		Path:   path,
		Label:  l,
		Words:  len(strings.Fields(processed)),
		Chars:  len([]rune(processed)),
		Size:   size,
		Cached: cached,
		Text:   processed,
	}, nil
}

// Flush writes new labels and recorded sources to the store. Labels
// replace any stored label for the same content.
func (c *Classifier) Flush() error {
	for id, l := range c.pending {
		if err := c.store.PutLabel(l); err != nil {
			return fmt.Errorf("saving label %s: %w", id.Hex(), err)
		}
		delete(c.pending, id)
	}
	for id, paths := range c.sources {
		for _, p := range paths {
			if err := c.store.AddSource(id, p); err != nil {
				return fmt.Errorf("saving source %s: %w", p, err)
			}
		}
		delete(c.sources, id)
	}
	c.logger.Debug("saved label cache", "labels", len(c.labels))
	return nil
}
