// Package pathfilter decides which relative paths inside a tree or container
// take part in a corpus.
//
// The built-in rules are case-sensitive and operate on the slash-normalized
// relative path:
//
//   - any segment starting with "." (other than "." and "..") is ignored
//   - any segment equal to "__pycache__" is ignored
//   - a path ending in ".pyc" is ignored
//   - a segment equal to "venv" that is not the final segment is ignored
//
// A path with a segment equal to "models" is not ignored but is tagged as a
// model file, whose content is replaced by a name-only placeholder.
//
// Additional gitignore-style rules can be layered on top with WithRules or
// WithRulesFile.
package pathfilter

import (
	"fmt"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Category names reported for paths ignored by the built-in rules.
const (
	CategoryPycache = "__pycache__"
	CategoryPyc     = "*.pyc"
	CategoryVenv    = "venv"
	CategoryRules   = "ignore-rules"
)

const (
	modelsSegment    = "models"
	venvSegment      = "venv"
	pycacheSegment   = "__pycache__"
	compiledPySuffix = ".pyc"
)

// Reason explains why a path was ignored.
type Reason struct {
	// Category is the folder or rule family responsible: the hidden segment
	// itself (".git"), "__pycache__", "*.pyc", "venv" or "ignore-rules".
	Category string
}

// Filter applies the built-in rules plus optional gitignore-style rules.
// A zero Filter applies the built-in rules only. Filter is safe for
// concurrent use once constructed.
type Filter struct {
	rules []*gitignore.GitIgnore
}

// Option configures a Filter.
type Option func(*Filter) error

// WithRules adds gitignore-style patterns.
func WithRules(lines ...string) Option {
	return func(f *Filter) error {
		if len(lines) == 0 {
			return nil
		}
		f.rules = append(f.rules, gitignore.CompileIgnoreLines(lines...))
		return nil
	}
}

// WithRulesFile adds the patterns found in a gitignore-style file.
func WithRulesFile(path string) Option {
	return func(f *Filter) error {
		ig, err := gitignore.CompileIgnoreFile(path)
		if err != nil {
			return fmt.Errorf("compiling ignore file %s: %w", path, err)
		}
		f.rules = append(f.rules, ig)
		return nil
	}
}

// New creates a Filter.
func New(opts ...Option) (*Filter, error) {
	f := &Filter{}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ShouldIgnore reports whether the path must be skipped.
func (f *Filter) ShouldIgnore(path string) bool {
	_, ignored := f.Reason(path)
	return ignored
}

// Reason returns why the path is ignored, and false if it is not.
func (f *Filter) Reason(path string) (Reason, bool) {
	path = strings.ReplaceAll(path, "\\", "/")
	if r, ok := builtinReason(path); ok {
		return r, true
	}
	if f != nil {
		for _, ig := range f.rules {
			if ig.MatchesPath(path) {
				return Reason{Category: CategoryRules}, true
			}
		}
	}
	return Reason{}, false
}

func builtinReason(path string) (Reason, bool) {
	segments := strings.Split(path, "/")

	for _, seg := range segments {
		if isHidden(seg) {
			return Reason{Category: seg}, true
		}
	}
	for _, seg := range segments {
		if seg == pycacheSegment {
			return Reason{Category: CategoryPycache}, true
		}
	}
	if strings.HasSuffix(path, compiledPySuffix) {
		return Reason{Category: CategoryPyc}, true
	}
	for i, seg := range segments {
		if seg == venvSegment && i < len(segments)-1 {
			return Reason{Category: CategoryVenv}, true
		}
	}
	return Reason{}, false
}

// IsModelFile reports whether any segment of the path equals "models".
func IsModelFile(path string) bool {
	path = strings.ReplaceAll(path, "\\", "/")
	for _, seg := range strings.Split(path, "/") {
		if seg == modelsSegment {
			return true
		}
	}
	return false
}

// isHidden checks if a path segment is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
