package types

import "strings"

// Provenance tracks where an entry was discovered.
type Provenance interface {
	Kind() string
	// Path returns displayable path (if applicable)
	Path() string
}

// FileProvenance for filesystem files.
type FileProvenance struct {
	FilePath string
}

// Kind returns "file".
func (f FileProvenance) Kind() string {
	return "file"
}

// Path returns the file path.
func (f FileProvenance) Path() string {
	return f.FilePath
}

// ArchiveProvenance tracks content read from a container member.
// Nested containers are recorded outermost first in Chain.
type ArchiveProvenance struct {
	ArchivePath string   // path to the outermost container on disk
	Chain       []string // member paths of nested containers, outermost first
	MemberPath  string   // path within the innermost container
}

// Kind returns "archive".
func (a ArchiveProvenance) Kind() string {
	return "archive"
}

// Path returns the archive path followed by every member path, colon separated.
func (a ArchiveProvenance) Path() string {
	parts := make([]string, 0, len(a.Chain)+2)
	parts = append(parts, a.ArchivePath)
	parts = append(parts, a.Chain...)
	parts = append(parts, a.MemberPath)
	return strings.Join(parts, ":")
}

// Nest returns the provenance of member read from the container located by
// parent.
func Nest(parent Provenance, member string) ArchiveProvenance {
	switch p := parent.(type) {
	case ArchiveProvenance:
		chain := make([]string, 0, len(p.Chain)+1)
		chain = append(chain, p.Chain...)
		chain = append(chain, p.MemberPath)
		return ArchiveProvenance{ArchivePath: p.ArchivePath, Chain: chain, MemberPath: member}
	case nil:
		return ArchiveProvenance{MemberPath: member}
	default:
		return ArchiveProvenance{ArchivePath: p.Path(), MemberPath: member}
	}
}
