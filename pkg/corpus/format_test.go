package corpus

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/corpora/pkg/types"
)

var testTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestDocument_WriteTo(t *testing.T) {
	doc := NewDocument(FolderTitle("project"), testTime)
	doc.Header.OutputName = "project_folder_contents.txt"
	doc.AddText("src/main.py", "print(1)")

	var buf bytes.Buffer
	n, err := doc.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	eq := strings.Repeat("=", 80)
	want := eq + "\n" +
		"محتوى المجلد: project\n" +
		"تاريخ الإنشاء: 2024-03-09 14:05:07\n" +
		"اسم ملف الإخراج: project_folder_contents.txt\n" +
		eq + "\n\n" +
		"اسم الملف: src/main.py\n" +
		strings.Repeat("-", 40) + "\n" +
		"print(1)\n" +
		"\n" + eq + "\n\n" +
		"\n" + eq + "\n" +
		"ملخص المعالجة:\n" +
		"- عدد الملفات النصية المعالجة: 1\n" +
		"- عدد الملفات المتجاهلة: 0\n" +
		"- عدد ملفات models (تم تسجيل الأسماء فقط): 0\n" +
		"- إجمالي الملفات المفحوصة: 1\n" +
		eq + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteRecord_TrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	doc := NewDocument(FileTitle("a.txt"), testTime)
	doc.AddText("a.txt", "line\n")
	_, err := doc.WriteTo(&buf)
	require.NoError(t, err)

	// A body that already ends in a newline is not given a second one.
	assert.Contains(t, buf.String(), "line\n\n"+banner+"\n")
	assert.NotContains(t, buf.String(), "line\n\n\n")
}

func TestWriteSummary_Details(t *testing.T) {
	doc := NewDocument(FolderTitle("p"), testTime)
	st := doc.Stats
	for i := 0; i < 7; i++ {
		st.addIgnored("venv/lib/f"+string(rune('a'+i))+".py", "venv")
	}
	st.addIgnored(".git/config", ".git")
	st.addBinary("img.png", types.BinaryPNG)
	st.addBinary("app.exe", types.BinaryPE)
	st.Markers = 1

	var buf bytes.Buffer
	_, err := doc.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "- المجلدات/الأنواع المتجاهلة: .git, venv\n")
	assert.Contains(t, out, "- عدد الملفات في مجلدات venv/ المتجاهلة: 7\n")
	assert.Contains(t, out, "  (أول 5 من 7 ملف في venv/):\n")
	assert.Contains(t, out, "    - venv/lib/fa.py\n")
	assert.NotContains(t, out, "venv/lib/ff.py")
	assert.Contains(t, out, "- عدد الملفات الثنائية المتجاهلة: 2\n")
	assert.Contains(t, out, "  أمثلة على الملفات الثنائية المتجاهلة:\n")
	assert.Contains(t, out, "    - img.png (PNG Image)\n")
	assert.Contains(t, out, "    * PNG Image: 1\n")
	assert.Contains(t, out, "    * Windows Executable: 1\n")
	assert.Contains(t, out, "تم تسجيل أسماء فقط لـ 1 ملف")
	assert.Contains(t, out, "- عدد الملفات المتجاهلة: 10\n")
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "محتوى المجلد: src", FolderTitle("src"))
	assert.Equal(t, "محتوى الملف: a.py", FileTitle("a.py"))
	assert.Equal(t, "محتوى الأرشيف (ZIP): a.zip", ArchiveTitle("ZIP", "a.zip"))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, assert.AnError
}

func TestDocument_WriteTo_Error(t *testing.T) {
	doc := NewDocument(FolderTitle("p"), testTime)
	doc.AddText("a", strings.Repeat("x", 8192))
	_, err := doc.WriteTo(failingWriter{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStats_Merge(t *testing.T) {
	a := NewStats()
	a.Processed = 2
	a.addBinary("x.png", types.BinaryPNG)
	a.Deferred = []string{"/r/a.pdf"}

	b := NewStats()
	b.Processed = 1
	b.addBinary("y.png", types.BinaryPNG)
	b.addIgnored(".git/HEAD", ".git")
	b.Deferred = []string{"/r/b.pdf"}

	a.merge(b)
	assert.Equal(t, 3, a.Processed)
	assert.Equal(t, 2, a.Binary)
	assert.Equal(t, 2, a.BinaryKinds[types.BinaryPNG])
	assert.Equal(t, 3, a.Skipped)
	assert.Equal(t, []string{".git"}, a.IgnoredCategoryNames())
	assert.Equal(t, []string{"/r/a.pdf", "/r/b.pdf"}, a.Deferred)
	assert.Equal(t, []string{"x.png (PNG Image)", "y.png (PNG Image)"}, a.BinaryExamples)
}

func TestHasCollision(t *testing.T) {
	assert.False(t, hasCollision("plain text\nmore"))
	assert.True(t, hasCollision(HeaderToken+"x\n"))
	assert.True(t, hasCollision("a\n"+HeaderToken+"x"))
	assert.True(t, hasCollision("a\n"+banner+"\n"))
	// Mid-line header tokens are harmless.
	assert.False(t, hasCollision("see "+HeaderToken+"x"))
}

func TestDocument_AddText_CountsCollisions(t *testing.T) {
	doc := NewDocument(FileTitle("a"), testTime)
	doc.AddText("a", "x\n"+banner)
	assert.Equal(t, 1, doc.Stats.Collisions)
	assert.False(t, doc.Empty())
}
