// Package container gives archive formats one listing and reading interface.
//
// Supported formats are zip, 7z, rar, plain tar, tar compressed with gzip,
// bzip2, xz, zstd or lz4, and single-file gzip. Which formats can actually be
// opened is decided by a Capabilities value, so optional decoders can be left
// out and surface as ErrUnsupported instead of partial reads.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/praetorian-inc/corpora/pkg/pathfilter"
)

var (
	// ErrUnsupported means no reader is available for the format.
	ErrUnsupported = errors.New("unsupported container")

	// ErrNeedFirstVolume means the archive is a later volume of a
	// multi-volume set and cannot be read without the first one.
	ErrNeedFirstVolume = errors.New("multi-volume archive: first volume required")

	// ErrNotContainer means the bytes are not a valid archive of the
	// format suggested by the name.
	ErrNotContainer = errors.New("not a valid container")

	// ErrMemberNotFound is returned by ReadMember for unknown names.
	ErrMemberNotFound = errors.New("member not found")
)

// Format identifies a container format.
type Format string

const (
	FormatNone   Format = ""
	FormatZip    Format = "zip"
	Format7z     Format = "7z"
	FormatRar    Format = "rar"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarBz2 Format = "tar.bz2"
	FormatTarXz  Format = "tar.xz"
	FormatTarZst Format = "tar.zst"
	FormatTarLz4 Format = "tar.lz4"
	FormatGzip   Format = "gz"
)

// Label is the short upper-case name used in corpus titles and output names.
func (f Format) Label() string {
	switch f {
	case FormatTarGz, FormatTarBz2, FormatTarXz, FormatTarZst, FormatTarLz4:
		return "TAR"
	default:
		return strings.ToUpper(string(f))
	}
}

// Member is one entry listed by a Reader.
type Member struct {
	Name   string
	IsFile bool
	// Size is the uncompressed size, or -1 when the format does not record it.
	Size int64
}

// Reader lists and reads the members of one container.
type Reader interface {
	// Members lists file members in archive order. Directory entries and
	// non-regular members are not returned.
	Members() ([]Member, error)

	// ReadMember returns the full content of the named member.
	ReadMember(name string) ([]byte, error)

	Close() error
}

// suffixes maps lower-case name suffixes to formats. Longer suffixes are
// listed before the shorter ones they contain.
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tbz", FormatTarBz2},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".tar.lz4", FormatTarLz4},
	{".tar", FormatTar},
	{".gz", FormatGzip},
	{".zip", FormatZip},
	{".7z", Format7z},
	{".rar", FormatRar},
}

// DetectFormat returns the container format implied by the file name.
// Split-archive fragments never map to a format.
func DetectFormat(name string) Format {
	if pathfilter.IsSplitFragment(name) {
		return FormatNone
	}
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	for _, s := range suffixes {
		if strings.HasSuffix(base, s.suffix) && len(base) > len(s.suffix) {
			return s.format
		}
	}
	return FormatNone
}

// IsZipSignature reports whether head starts with a zip local file header,
// empty-archive end record or spanning marker.
func IsZipSignature(head []byte) bool {
	return bytes.HasPrefix(head, []byte("PK\x03\x04")) ||
		bytes.HasPrefix(head, []byte("PK\x05\x06")) ||
		bytes.HasPrefix(head, []byte("PK\x07\x08"))
}

// Opener opens one format from random-access bytes.
type Opener func(name string, r io.ReaderAt, size int64) (Reader, error)

// Capabilities is the set of formats that can be opened.
type Capabilities struct {
	openers map[Format]Opener
}

// NewCapabilities returns an empty capability set.
func NewCapabilities() *Capabilities {
	return &Capabilities{openers: make(map[Format]Opener)}
}

// DefaultCapabilities returns every reader built into this package.
func DefaultCapabilities() *Capabilities {
	c := NewCapabilities()
	c.Register(FormatZip, openZip)
	c.Register(Format7z, open7z)
	c.Register(FormatRar, openRar)
	c.Register(FormatGzip, openGzip)
	for _, f := range []Format{FormatTar, FormatTarGz, FormatTarBz2, FormatTarXz, FormatTarZst, FormatTarLz4} {
		c.Register(f, tarOpener(f))
	}
	return c
}

// Register installs or replaces the opener for a format.
func (c *Capabilities) Register(f Format, o Opener) {
	c.openers[f] = o
}

// Without returns a copy of c lacking the given formats.
func (c *Capabilities) Without(formats ...Format) *Capabilities {
	out := NewCapabilities()
	for f, o := range c.openers {
		out.openers[f] = o
	}
	for _, f := range formats {
		delete(out.openers, f)
	}
	return out
}

// Supports reports whether f can be opened.
func (c *Capabilities) Supports(f Format) bool {
	if c == nil {
		return false
	}
	_, ok := c.openers[f]
	return ok
}

// Open opens random-access bytes as format f.
func (c *Capabilities) Open(f Format, name string, r io.ReaderAt, size int64) (Reader, error) {
	if f == FormatNone {
		return nil, fmt.Errorf("%s: %w", name, ErrNotContainer)
	}
	if !c.Supports(f) {
		return nil, fmt.Errorf("%s (%s): %w", name, f, ErrUnsupported)
	}
	return c.openers[f](name, r, size)
}

// OpenBytes opens an in-memory container, detecting the format from name.
func (c *Capabilities) OpenBytes(name string, data []byte) (Reader, Format, error) {
	f := DetectFormat(name)
	rd, err := c.Open(f, name, bytes.NewReader(data), int64(len(data)))
	return rd, f, err
}

// OpenFile opens a container on disk, detecting the format from its name.
// Closing the returned Reader closes the file.
func (c *Capabilities) OpenFile(filePath string) (Reader, Format, error) {
	f := DetectFormat(filePath)
	if f == FormatNone {
		return nil, f, fmt.Errorf("%s: %w", filePath, ErrNotContainer)
	}
	if !c.Supports(f) {
		return nil, f, fmt.Errorf("%s (%s): %w", filePath, f, ErrUnsupported)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, f, fmt.Errorf("opening %s: %w", filePath, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, f, fmt.Errorf("stat %s: %w", filePath, err)
	}

	rd, err := c.Open(f, filePath, file, info.Size())
	if err != nil {
		file.Close()
		return nil, f, err
	}
	return &fileBacked{Reader: rd, file: file}, f, nil
}

// fileBacked closes the underlying file together with the reader.
type fileBacked struct {
	Reader
	file *os.File
}

func (fb *fileBacked) Close() error {
	err := fb.Reader.Close()
	if cerr := fb.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// readHead returns up to n leading bytes.
func readHead(r io.ReaderAt, size int64, n int) []byte {
	if size < int64(n) {
		n = int(size)
	}
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	read, _ := r.ReadAt(buf, 0)
	return buf[:read]
}
