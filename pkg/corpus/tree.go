package corpus

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/praetorian-inc/corpora/pkg/naming"
)

// SplitSuffix is appended to the corpus name to form the output directory.
const SplitSuffix = "_split"

// TreeWriter reconstitutes decoded files under a fresh directory.
type TreeWriter struct {
	fs     afero.Fs
	alloc  *naming.Allocator
	logger *slog.Logger
}

// NewTreeWriter creates a TreeWriter. The allocator's filesystem is used
// for all writes. A nil logger discards output.
func NewTreeWriter(alloc *naming.Allocator, logger *slog.Logger) *TreeWriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TreeWriter{fs: alloc.Fs(), alloc: alloc, logger: logger}
}

// WrittenFile describes one reconstituted file.
type WrittenFile struct {
	Recorded string
	// Rel is the final slash separated path below the output directory.
	Rel  string
	Path string
}

// TreeResult is the outcome of writing one corpus.
type TreeResult struct {
	Dir   string
	Files []WrittenFile
}

// ProvenanceHeader is written at the top of every reconstituted file.
func ProvenanceHeader(source, recorded, final string) string {
	return fmt.Sprintf("# المصدر: %s\n# الملف الأصلي: %s\n# التقسيم: %s\n\n", source, recorded, final)
}

// Write creates "<corpus name>_split" (or a suffixed variant) next to
// corpusPath and writes every file into it. Duplicate paths receive
// allocator-suffixed names. The corpus itself is never touched.
func (tw *TreeWriter) Write(corpusPath string, files []DecodedFile) (*TreeResult, error) {
	return tw.WriteIn("", corpusPath, files)
}

// WriteIn is Write with the split directory placed in outDir. An empty
// outDir means the corpus's own directory.
func (tw *TreeWriter) WriteIn(outDir, corpusPath string, files []DecodedFile) (*TreeResult, error) {
	corpusName := filepath.Base(corpusPath)
	if outDir == "" {
		outDir = filepath.Dir(corpusPath)
	}
	base := filepath.Join(outDir, strings.TrimSuffix(corpusName, filepath.Ext(corpusName))+SplitSuffix)

	dir, err := tw.alloc.AllocateDir(base)
	if err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &TreeResult{Dir: dir}
	for _, f := range files {
		dest, err := tw.destination(dir, f.Path)
		if err != nil {
			return result, err
		}
		rel, err := filepath.Rel(dir, dest)
		if err != nil {
			return result, fmt.Errorf("resolving %s: %w", dest, err)
		}
		rel = filepath.ToSlash(rel)

		body := ProvenanceHeader(corpusName, f.Recorded, rel) + f.Content + "\n"
		if err := afero.WriteFile(tw.fs, dest, []byte(body), 0o644); err != nil {
			return result, fmt.Errorf("writing %s: %w", dest, err)
		}
		tw.logger.Debug("wrote file", "path", dest, "recorded", f.Recorded)
		result.Files = append(result.Files, WrittenFile{Recorded: f.Recorded, Rel: rel, Path: dest})
	}
	return result, nil
}

// destination returns a reserved, unused path for rel below dir.
func (tw *TreeWriter) destination(dir, rel string) (string, error) {
	parent := path.Dir(rel)
	if parent != "." {
		if err := tw.fs.MkdirAll(filepath.Join(dir, filepath.FromSlash(parent)), 0o755); err != nil {
			// A file already occupies part of the directory chain.
			tw.logger.Warn("flattening path", "path", rel, "error", err)
			rel = strings.ReplaceAll(rel, "/", "_")
		}
	}

	target := filepath.Join(dir, filepath.FromSlash(rel))
	ext := filepath.Ext(target)
	dest, err := tw.alloc.AllocateFile(strings.TrimSuffix(target, ext), ext)
	if err != nil {
		return "", fmt.Errorf("allocating %s: %w", rel, err)
	}
	return dest, nil
}
