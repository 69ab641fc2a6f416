package corpus

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "src/main.py", "src/main.py"},
		{"newlines", "a\nb\r.txt", "a b .txt"},
		{"illegal characters", `a*b?c"d<e>f|g:h\i.txt`, "a_b_c_d_e_f_g_h_i.txt"},
		{"collapse whitespace", "my    notes\t\tfile.txt", "my notes file.txt"},
		{"trim segments", " dir / file.txt ", "dir/file.txt"},
		{"drop dot segments", "./a/../b/./c.txt", "a/b/c.txt"},
		{"leading slash", "/etc/passwd", "etc/passwd"},
		{"double slash", "a//b", "a/b"},
		{"hidden kept", ".env", ".env"},
		{"only dots", "../..", ""},
		{"empty", "", ""},
		{"whitespace only", "   \n ", ""},
		{"arabic", "ملفات/ملاحظات.txt", "ملفات/ملاحظات.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePath(tt.in))
		})
	}
}

func TestSanitizePath_Truncates(t *testing.T) {
	long := strings.Repeat("ب", 200) + ".txt"
	got := SanitizePath(long)
	assert.Equal(t, MaxPathLength, len([]rune(got)))
}

func TestSanitizePath_TruncationCleansTail(t *testing.T) {
	in := strings.Repeat("a", MaxPathLength-1) + "/" + "..secret"
	got := SanitizePath(in)
	assert.False(t, strings.HasSuffix(got, "/"))
	assert.Equal(t, strings.Repeat("a", MaxPathLength-1), got)
}

func TestSanitizePath_Idempotent(t *testing.T) {
	inputs := []string{
		"src/main.py",
		" a  b /c:d ",
		strings.Repeat("x ", 100) + "/y",
		"a/\n/b",
		`C:\Users\me\file.txt`,
		strings.Repeat("d/", 80),
	}
	for _, in := range inputs {
		once := SanitizePath(in)
		assert.Equal(t, once, SanitizePath(once), "input %q", in)
	}
}

func TestRecordPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		changed bool
	}{
		{"src/main.py", "src/main.py", false},
		{"مجلد/ملف.txt", "مجلد/ملف.txt", false},
		{"a\nb.txt", "a b.txt", true},
		{"a\r\nb.txt", "a  b.txt", true},
		{"\xe9t\xe9.txt", "été.txt", true},
	}
	for _, tt := range tests {
		got, changed := RecordPath(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.changed, changed, "input %q", tt.in)
		assert.True(t, utf8.ValidString(got), "input %q", tt.in)
	}
}
