package classify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/praetorian-inc/corpora/pkg/types"
)

func TestClassify_MagicCascade(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    types.BinaryKind
	}{
		{"python compiled", []byte{0x63, 0x00, 0x00, 0x00, 0x01}, types.BinaryPythonCompiled},
		{"elf", []byte("\x7fELF\x02\x01\x01"), types.BinaryELF},
		{"pe", []byte("MZ\x90\x00\x03"), types.BinaryPE},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00"), types.BinaryPNG},
		{"jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF"), types.BinaryJPEG},
		{"pdf", []byte("%PDF-1.7\n"), types.BinaryPDF},
		{"zip", []byte("PK\x03\x04\x14\x00"), types.BinaryZIP},
		{"gzip", []byte("\x1f\x8b\x08\x00\x00"), types.BinaryGZIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.content)
			assert.Equal(t, types.KindBinary, got.Kind)
			assert.Equal(t, tt.want, got.Binary)
			assert.Empty(t, got.Text)
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	content := []byte("%PDF-1.4\n... PK\x03\x04 embedded ...")
	got := Classify(content)
	assert.Equal(t, types.KindBinary, got.Kind)
	assert.Equal(t, types.BinaryPDF, got.Binary)
}

func TestClassify_ShortInputSkipsCascade(t *testing.T) {
	// "MZ" alone is shorter than the cascade minimum, so it is text.
	got := Classify([]byte("MZ"))
	assert.Equal(t, types.KindText, got.Kind)
	assert.Equal(t, "MZ", got.Text)

	got = Classify([]byte("PK!"))
	assert.Equal(t, types.KindText, got.Kind)
}

func TestClassify_PNGNeedsFullSignature(t *testing.T) {
	// Four bytes of the PNG signature are not enough to match it.
	got := Classify([]byte("\x89PNG"))
	assert.Equal(t, types.KindText, got.Kind)
	assert.Equal(t, types.EncodingLatin1, got.Encoding)
}

func TestClassify_UTF8(t *testing.T) {
	got := Classify([]byte("مرحبا hello\n"))
	assert.Equal(t, types.KindText, got.Kind)
	assert.Equal(t, types.EncodingUTF8, got.Encoding)
	assert.Equal(t, "مرحبا hello\n", got.Text)
}

func TestClassify_Latin1Fallback(t *testing.T) {
	got := Classify([]byte("caf\xe9 cr\xe8me"))
	assert.Equal(t, types.KindText, got.Kind)
	assert.Equal(t, types.EncodingLatin1, got.Encoding)
	assert.Equal(t, "café crème", got.Text)
}

func TestClassify_Empty(t *testing.T) {
	got := Classify(nil)
	assert.Equal(t, types.KindEmpty, got.Kind)
	assert.False(t, got.IsRecord())
}

func TestClassify_TotalOverAllBytes(t *testing.T) {
	// Every single byte value and a long run of arbitrary bytes classify
	// without panicking.
	for b := 0; b < 256; b++ {
		got := Classify([]byte{byte(b)})
		assert.Equal(t, types.KindText, got.Kind)
	}

	var all bytes.Buffer
	for i := 0; i < 4096; i++ {
		all.WriteByte(byte(i*31 + 7))
	}
	got := Classify(all.Bytes())
	assert.True(t, got.Kind == types.KindText || got.Kind == types.KindBinary)
}

func TestClassifyEntry_ModelFileShortCircuits(t *testing.T) {
	// ELF bytes under models/ still become a marker.
	got := ClassifyEntry("models/weights.bin", []byte("\x7fELF\x02\x01"), true)
	assert.Equal(t, types.KindModelMarker, got.Kind)
	assert.Contains(t, got.Text, "models/weights.bin")
	assert.NotContains(t, got.Text, "ELF")

	got = ClassifyEntry("src/a.txt", []byte("plain"), false)
	assert.Equal(t, types.KindText, got.Kind)
}

func TestModelPlaceholder_DoesNotContainRecordHeader(t *testing.T) {
	assert.NotContains(t, ModelPlaceholder("models/x.pt"), "اسم الملف: ")
}

func TestDecode(t *testing.T) {
	s, enc := Decode([]byte{0xff, 0xfe, 'a'})
	assert.Equal(t, types.EncodingLatin1, enc)
	assert.Equal(t, "ÿþa", s)
}
