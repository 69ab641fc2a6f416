// Package classify decides whether raw bytes are text and decodes them.
//
// Classification never trusts file names. A short magic-byte cascade runs
// first (only when at least four bytes are present); if no signature
// matches, the bytes are decoded as UTF-8 and, failing that, as Latin-1.
// Latin-1 maps every byte to a code point, so classification of non-empty
// input always ends in either a binary kind or text.
package classify

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/praetorian-inc/corpora/pkg/types"
)

// signature is one step of the magic-byte cascade.
type signature struct {
	kind   types.BinaryKind
	prefix []byte
}

// cascade is evaluated in order; the first matching prefix wins.
var cascade = []signature{
	{types.BinaryPythonCompiled, []byte{0x63, 0x00, 0x00, 0x00}},
	{types.BinaryELF, []byte{0x7f, 'E', 'L', 'F'}},
	{types.BinaryPE, []byte("MZ")},
	{types.BinaryPNG, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}},
	{types.BinaryJPEG, []byte{0xff, 0xd8, 0xff}},
	{types.BinaryPDF, []byte("%PDF")},
	{types.BinaryZIP, []byte("PK")},
	{types.BinaryGZIP, []byte{0x1f, 0x8b}},
}

// minCascadeLen is the number of bytes required before signatures are checked.
const minCascadeLen = 4

// Classify returns the classification of content.
//
// Empty input yields KindEmpty. Every other input yields either KindBinary
// with the matched subkind or KindText with the decoded string.
func Classify(content []byte) types.ClassificationResult {
	if len(content) == 0 {
		return types.ClassificationResult{Kind: types.KindEmpty}
	}

	if kind, ok := Sniff(content); ok {
		return types.ClassificationResult{Kind: types.KindBinary, Binary: kind}
	}

	text, enc := Decode(content)
	return types.ClassificationResult{
		Kind:     types.KindText,
		Text:     text,
		Encoding: enc,
	}
}

// ClassifyEntry classifies content found at path. When modelFile is set the
// content is not examined at all and a placeholder naming the file is
// returned instead.
func ClassifyEntry(path string, content []byte, modelFile bool) types.ClassificationResult {
	if modelFile {
		return ModelMarker(path)
	}
	return Classify(content)
}

// ModelMarker returns the placeholder record for a file under a models
// directory. The body names the file so the corpus keeps an inventory
// without materializing weights.
func ModelMarker(path string) types.ClassificationResult {
	return types.ClassificationResult{
		Kind:     types.KindModelMarker,
		Text:     ModelPlaceholder(path),
		Encoding: types.EncodingUTF8,
	}
}

// ModelPlaceholder is the body written for a model file.
func ModelPlaceholder(path string) string {
	return fmt.Sprintf("[ملف في مجلد models - تم تسجيل الاسم فقط]\nالمسار: %s\n", path)
}

// Sniff runs the magic-byte cascade and returns the first matching binary
// kind. It requires at least four bytes.
func Sniff(content []byte) (types.BinaryKind, bool) {
	if len(content) < minCascadeLen {
		return "", false
	}
	for _, sig := range cascade {
		if bytes.HasPrefix(content, sig.prefix) {
			return sig.kind, true
		}
	}
	return "", false
}

// Decode converts content to a string, as UTF-8 when valid and as Latin-1
// otherwise.
func Decode(content []byte) (string, types.Encoding) {
	if utf8.Valid(content) {
		return string(content), types.EncodingUTF8
	}

	// ISO 8859-1 assigns a code point to every byte value, so this cannot fail.
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		panic(fmt.Sprintf("latin-1 decoding failed: %v", err))
	}
	return string(decoded), types.EncodingLatin1
}
