package corpus

import (
	"strings"
	"unicode"

	"github.com/praetorian-inc/corpora/pkg/classify"
)

// MaxPathLength bounds sanitized paths, in characters.
const MaxPathLength = 150

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

var illegalPathChars = strings.NewReplacer(
	`\`, "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
	":", "_",
)

// SanitizePath turns a recorded path into a safe relative filesystem path.
//
// Line breaks become spaces; the characters \ * ? " < > | : become
// underscores; whitespace runs collapse to one space; each segment is
// trimmed and empty, "." and ".." segments are dropped. "/" is kept as the
// directory separator. The result is cut to MaxPathLength characters and
// never ends in "/" or a space. SanitizePath is idempotent, and an empty
// result means the path is unusable.
func SanitizePath(p string) string {
	p = lineBreaks.Replace(p)

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		seg = illegalPathChars.Replace(seg)
		segments[i] = strings.Join(strings.FieldsFunc(seg, unicode.IsSpace), " ")
	}
	out := joinSegments(segments)

	if r := []rune(out); len(r) > MaxPathLength {
		out = joinSegments(strings.Split(string(r[:MaxPathLength]), "/"))
	}
	return out
}

func joinSegments(segments []string) string {
	kept := segments[:0:0]
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, "/")
}

// RecordPath returns p as it is written to a record header line: valid
// UTF-8, decoded as Latin-1 when p is not, with line breaks replaced by
// spaces. changed reports whether p was rewritten.
func RecordPath(p string) (out string, changed bool) {
	out, _ = classify.Decode([]byte(p))
	out = lineBreaks.Replace(out)
	return out, out != p
}
