package types

import (
	"fmt"
	"path"
	"strings"
)

// SourceKind says where an Entry's bytes come from.
type SourceKind string

const (
	SourcePlainFile       SourceKind = "file"
	SourceContainerMember SourceKind = "member"
)

// Entry is one addressable unit inside a tree or container.
type Entry struct {
	// Path is slash separated and relative; see NormalizePath.
	Path      string
	SizeBytes int64
	Source    SourceKind

	// Provenance locates the entry on disk (or inside containers on disk).
	Provenance Provenance

	// Open reads the entry's bytes. Entries are read lazily so that filtered
	// and marker-only entries never touch their content.
	Open func() ([]byte, error)
}

// Read returns the entry bytes.
func (e Entry) Read() ([]byte, error) {
	if e.Open == nil {
		return nil, fmt.Errorf("entry %s has no content source", e.Path)
	}
	return e.Open()
}

// Base returns the last path segment.
func (e Entry) Base() string {
	return path.Base(e.Path)
}

// NormalizePath converts a platform or archive path into the relative,
// slash separated form used for Entry.Path. Backslashes become slashes,
// leading slashes and drive-less roots are removed, and "." / ".." segments
// are resolved without ever climbing above the root. The result never begins
// with "/" and never contains "..".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")

	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	return strings.Join(out, "/")
}
