package corpus

import (
	"io"
	"sort"
	"time"

	"github.com/praetorian-inc/corpora/pkg/pathfilter"
	"github.com/praetorian-inc/corpora/pkg/types"
)

// Record is one entry serialized into the corpus.
type Record struct {
	// Path is the entry path as written on the header line.
	Path string
	Body string
	Kind types.Kind

	// Encoding is the source encoding of a text body.
	Encoding types.Encoding

	// ID is the hash of the original bytes, zero for model markers.
	ID types.ContentID
}

// Stats accumulates the counts of one encoder invocation. It is owned by
// that invocation and returned with its Document.
type Stats struct {
	// Processed counts text records written.
	Processed int
	// Skipped counts entries that produced no record: ignored paths,
	// binary content, read failures, split fragments and nested
	// containers that could not be opened.
	Skipped int
	// Markers counts model placeholder records written.
	Markers int
	// Binary counts binary entries, by content or by extension.
	Binary      int
	BinaryKinds map[types.BinaryKind]int
	// HandledElsewhere counts entries left to format-specific producers.
	// They are not counted as skipped.
	HandledElsewhere int
	// Empty counts zero-length entries. They are neither processed nor
	// skipped.
	Empty      int
	Errors     int
	Fragments  int
	Containers int
	// Collisions counts written bodies that contain delimiter sequences.
	Collisions int
	// RenamedPaths counts entry paths rewritten for the header line:
	// line breaks replaced or invalid UTF-8 decoded as Latin-1.
	RenamedPaths int
	// Total counts every entry examined, container members included.
	Total int

	IgnoredCategories map[string]int
	VenvFiles         int
	VenvExamples      []string
	BinaryExamples    []string

	// Deferred lists the on-disk paths of handled-elsewhere plain files.
	Deferred []string
}

// NewStats returns zeroed stats.
func NewStats() *Stats {
	return &Stats{
		BinaryKinds:       make(map[types.BinaryKind]int),
		IgnoredCategories: make(map[string]int),
	}
}

// IgnoredCategoryNames returns the ignored categories in sorted order.
func (s *Stats) IgnoredCategoryNames() []string {
	names := make([]string, 0, len(s.IgnoredCategories))
	for name := range s.IgnoredCategories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Stats) addIgnored(path, category string) {
	s.Skipped++
	s.IgnoredCategories[category]++
	if category == pathfilter.CategoryVenv {
		s.VenvFiles++
		if len(s.VenvExamples) < exampleLimit {
			s.VenvExamples = append(s.VenvExamples, path)
		}
	}
}

func (s *Stats) addBinary(path string, kind types.BinaryKind) {
	s.Skipped++
	s.Binary++
	s.BinaryKinds[kind]++
	if len(s.BinaryExamples) < exampleLimit {
		s.BinaryExamples = append(s.BinaryExamples, path+" ("+string(kind)+")")
	}
}

// merge folds o into s. Example lists keep their first entries.
func (s *Stats) merge(o *Stats) {
	s.Processed += o.Processed
	s.Skipped += o.Skipped
	s.Markers += o.Markers
	s.Binary += o.Binary
	s.HandledElsewhere += o.HandledElsewhere
	s.Empty += o.Empty
	s.Errors += o.Errors
	s.Fragments += o.Fragments
	s.Containers += o.Containers
	s.Collisions += o.Collisions
	s.RenamedPaths += o.RenamedPaths
	s.Total += o.Total
	s.VenvFiles += o.VenvFiles

	for k, v := range o.BinaryKinds {
		s.BinaryKinds[k] += v
	}
	for k, v := range o.IgnoredCategories {
		s.IgnoredCategories[k] += v
	}
	s.VenvExamples = appendLimited(s.VenvExamples, o.VenvExamples)
	s.BinaryExamples = appendLimited(s.BinaryExamples, o.BinaryExamples)
	s.Deferred = append(s.Deferred, o.Deferred...)
}

func appendLimited(dst, src []string) []string {
	for _, v := range src {
		if len(dst) >= exampleLimit {
			break
		}
		dst = append(dst, v)
	}
	return dst
}

// Document is a fully materialized corpus: header, records in path order,
// and the summary counts.
type Document struct {
	Header  Header
	Records []Record
	Stats   *Stats
}

// NewDocument creates an empty document.
func NewDocument(title string, created time.Time) *Document {
	return &Document{
		Header: Header{Title: title, Created: created},
		Stats:  NewStats(),
	}
}

// AddText appends a text record and counts it as processed. It is used by
// callers that assemble documents from producer output.
func (d *Document) AddText(path, body string) {
	path, changed := RecordPath(path)
	if changed {
		d.Stats.RenamedPaths++
	}
	d.Records = append(d.Records, Record{
		Path:     path,
		Body:     body,
		Kind:     types.KindText,
		Encoding: types.EncodingUTF8,
		ID:       types.ComputeContentID([]byte(body)),
	})
	d.Stats.Processed++
	d.Stats.Total++
	if hasCollision(body) {
		d.Stats.Collisions++
	}
}

// Empty reports whether the document has no records.
func (d *Document) Empty() bool {
	return len(d.Records) == 0
}

// WriteTo writes the document in the corpus wire format.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if d.Stats == nil {
		d.Stats = NewStats()
	}
	return write(w, d)
}
