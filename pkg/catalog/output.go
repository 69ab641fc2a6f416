package catalog

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/praetorian-inc/corpora/pkg/naming"
)

// FrontMatter is the YAML header written above classified content.
type FrontMatter struct {
	Title        string `yaml:"title"`
	Category     string `yaml:"category"`
	Subcategory  string `yaml:"subcategory"`
	Confidence   int    `yaml:"confidence"`
	Language     string `yaml:"language"`
	SourceFile   string `yaml:"source_file"`
	SizeBytes    int64  `yaml:"size_bytes"`
	WordCount    int    `yaml:"word_count"`
	CharCount    int    `yaml:"char_count"`
	ClassifiedAt string `yaml:"classification_timestamp"`
	Model        string `yaml:"model_used"`
}

// NewFrontMatter describes a result.
func NewFrontMatter(res *Result) FrontMatter {
	return FrontMatter{
		Title:        stem(res.Path),
		Category:     res.Label.Category,
		Subcategory:  res.Label.Subcategory,
		Confidence:   res.Label.Confidence,
		Language:     res.Label.Language,
		SourceFile:   res.Path,
		SizeBytes:    res.Size,
		WordCount:    res.Words,
		CharCount:    res.Chars,
		ClassifiedAt: res.Label.ClassifiedAt.Format(time.RFC3339),
		Model:        res.Label.Model,
	}
}

// Writer stores classified content under
// <root>/<category>/<subcategory>/<stem>_<category>_<subcategory>.md.
type Writer struct {
	root  string
	alloc *naming.Allocator
}

// NewWriter creates a Writer rooted at root. Names are reserved with alloc
// so existing files are never overwritten.
func NewWriter(root string, alloc *naming.Allocator) *Writer {
	if alloc == nil {
		alloc = naming.New(nil)
	}
	return &Writer{root: root, alloc: alloc}
}

// Write stores the preprocessed text of res with a front matter header and
// returns the path written.
func (w *Writer) Write(res *Result) (string, error) {
	fm := NewFrontMatter(res)
	sub := fm.Subcategory
	if sub == "" {
		sub = "general"
	}
	dir := filepath.Join(w.root, fm.Category, sub)
	fs := w.alloc.Fs()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(res.Text)

	base := filepath.Join(dir, fmt.Sprintf("%s_%s_%s", fm.Title, fm.Category, sub))
	path, err := w.alloc.AllocateFile(base, ".md")
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
