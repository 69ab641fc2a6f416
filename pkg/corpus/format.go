// Package corpus encodes file trees and containers into a single delimited
// text artifact and parses such artifacts back into individual files.
//
// A corpus is UTF-8 text with this layout:
//
//	================================================================================
//	محتوى المجلد: project
//	تاريخ الإنشاء: 2024-03-09 14:05:07
//	اسم ملف الإخراج: project_folder_contents.txt
//	================================================================================
//
//	اسم الملف: src/main.py
//	----------------------------------------
//	print("hi")
//
//	================================================================================
//
//	...
//
//	================================================================================
//	ملخص المعالجة:
//	- عدد الملفات النصية المعالجة: 1
//	...
//	================================================================================
//
// Record bodies are not escaped. A body that contains a line starting with
// the record header token, or a run of eighty "=" characters, can split or
// merge records on decode. The encoder counts such bodies in
// Stats.Collisions so the ambiguity is visible.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/praetorian-inc/corpora/pkg/types"
)

const (
	// HeaderToken starts every record header line.
	HeaderToken = "اسم الملف: "

	// SeparatorWidth is the number of dashes after a header line.
	SeparatorWidth = 40

	// BannerWidth is the number of "=" in banners and record terminators.
	BannerWidth = 80

	// TimestampLayout formats the creation time line.
	TimestampLayout = "2006-01-02 15:04:05"

	// exampleLimit bounds the example lists printed in the summary.
	exampleLimit = 5
)

var (
	separator = strings.Repeat("-", SeparatorWidth)
	banner    = strings.Repeat("=", BannerWidth)
)

// Title labels used in corpus headers.
const (
	titleFolder  = "محتوى المجلد: "
	titleFile    = "محتوى الملف: "
	titleArchive = "محتوى الأرشيف (%s): "
)

// FolderTitle is the header title for a directory corpus.
func FolderTitle(name string) string {
	return titleFolder + name
}

// FileTitle is the header title for a single-file corpus.
func FileTitle(name string) string {
	return titleFile + name
}

// ArchiveTitle is the header title for a container corpus. label is the
// upper-case format name.
func ArchiveTitle(label, name string) string {
	return fmt.Sprintf(titleArchive, label) + name
}

// Header is the block written before the first record.
type Header struct {
	Title      string
	Created    time.Time
	OutputName string
}

// countingWriter tracks bytes written and the first error.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}

func (cw *countingWriter) write(s string) {
	if cw.err != nil {
		return
	}
	n, err := cw.w.WriteString(s)
	cw.n += int64(n)
	cw.err = err
}

func writeHeader(cw *countingWriter, h Header) {
	cw.write(banner + "\n")
	cw.write(h.Title + "\n")
	cw.printf("تاريخ الإنشاء: %s\n", h.Created.Format(TimestampLayout))
	cw.printf("اسم ملف الإخراج: %s\n", h.OutputName)
	cw.write(banner + "\n\n")
}

func writeRecord(cw *countingWriter, r Record) {
	cw.write(HeaderToken + r.Path + "\n")
	cw.write(separator + "\n")
	cw.write(r.Body)
	if r.Body != "" && !strings.HasSuffix(r.Body, "\n") {
		cw.write("\n")
	}
	cw.write("\n" + banner + "\n\n")
}

func writeSummary(cw *countingWriter, s *Stats) {
	cw.write("\n" + banner + "\n")
	cw.write("ملخص المعالجة:\n")
	cw.printf("- عدد الملفات النصية المعالجة: %d\n", s.Processed)
	cw.printf("- عدد الملفات المتجاهلة: %d\n", s.Skipped)
	cw.printf("- عدد ملفات models (تم تسجيل الأسماء فقط): %d\n", s.Markers)
	cw.printf("- إجمالي الملفات المفحوصة: %d\n", s.Total)

	if s.HandledElsewhere > 0 {
		cw.printf("- عدد الملفات المعالجة بأدوات مخصصة (PDF/Word/Excel/قواعد بيانات): %d\n", s.HandledElsewhere)
	}
	if s.Containers > 0 {
		cw.printf("- عدد الأرشيفات المتداخلة التي تم فتحها: %d\n", s.Containers)
	}
	if s.Fragments > 0 {
		cw.printf("- عدد أجزاء الأرشيفات المقسمة المتجاهلة: %d\n", s.Fragments)
	}
	if s.Errors > 0 {
		cw.printf("- عدد الملفات التي تعذرت قراءتها: %d\n", s.Errors)
	}
	if s.RenamedPaths > 0 {
		cw.printf("- عدد المسارات التي أعيدت كتابتها: %d\n", s.RenamedPaths)
	}

	if len(s.IgnoredCategories) > 0 {
		cw.printf("- المجلدات/الأنواع المتجاهلة: %s\n", strings.Join(s.IgnoredCategoryNames(), ", "))
	}

	if s.VenvFiles > 0 {
		cw.printf("- عدد الملفات في مجلدات venv/ المتجاهلة: %d\n", s.VenvFiles)
		if s.VenvFiles <= exampleLimit {
			cw.write("  أمثلة على ملفات venv/ المتجاهلة:\n")
		} else {
			cw.printf("  (أول %d من %d ملف في venv/):\n", exampleLimit, s.VenvFiles)
		}
		for _, p := range s.VenvExamples {
			cw.printf("    - %s\n", p)
		}
	}

	if s.Binary > 0 {
		cw.printf("- عدد الملفات الثنائية المتجاهلة: %d\n", s.Binary)
		if s.Binary <= exampleLimit {
			cw.write("  أمثلة على الملفات الثنائية المتجاهلة:\n")
		} else {
			cw.printf("  (أول %d من %d ملف ثنائي):\n", exampleLimit, s.Binary)
		}
		for _, p := range s.BinaryExamples {
			cw.printf("    - %s\n", p)
		}
		kinds := make([]types.BinaryKind, 0, len(s.BinaryKinds))
		for k := range s.BinaryKinds {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			cw.printf("    * %s: %d\n", k, s.BinaryKinds[k])
		}
	}

	if s.Markers > 0 {
		cw.printf("ℹ️  ملاحظة: تم تسجيل أسماء فقط لـ %d ملف في مجلدات models/\n", s.Markers)
		cw.write("   ولم يتم استخراج محتواها لتجنب الملفات الكبيرة.\n")
	}

	cw.write(banner + "\n")
}

// write serializes a document in one pass.
func write(w io.Writer, d *Document) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	writeHeader(cw, d.Header)
	for _, r := range d.Records {
		writeRecord(cw, r)
	}
	writeSummary(cw, d.Stats)
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}
