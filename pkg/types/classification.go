package types

// Kind is the outcome class of content classification.
type Kind string

const (
	KindText        Kind = "text"
	KindModelMarker Kind = "model-marker"
	KindBinary      Kind = "binary"
	// KindEmpty marks content with no bytes. Callers skip it without
	// counting it as processed or as binary.
	KindEmpty Kind = "empty"
)

// BinaryKind names the binary format recognized by the magic-byte cascade.
type BinaryKind string

const (
	BinaryPythonCompiled BinaryKind = "Python Compiled (.pyc)"
	BinaryELF            BinaryKind = "ELF Executable"
	BinaryPE             BinaryKind = "Windows Executable"
	BinaryPNG            BinaryKind = "PNG Image"
	BinaryJPEG           BinaryKind = "JPEG Image"
	BinaryPDF            BinaryKind = "PDF Document"
	BinaryZIP            BinaryKind = "ZIP Archive"
	BinaryGZIP           BinaryKind = "GZIP Compressed"
	BinaryOther          BinaryKind = "Binary"
)

// Encoding names the character encoding a text body was decoded from.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin-1"
)

// ClassificationResult is what the content classifier decided about a byte slice.
type ClassificationResult struct {
	Kind Kind

	// Binary is set when Kind is KindBinary.
	Binary BinaryKind

	// Text and Encoding are set when Kind is KindText. For KindModelMarker,
	// Text holds the placeholder body.
	Text     string
	Encoding Encoding
}

// IsRecord reports whether the result produces a corpus record.
func (r ClassificationResult) IsRecord() bool {
	return r.Kind == KindText || r.Kind == KindModelMarker
}
