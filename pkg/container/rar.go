package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"
)

var (
	rar4Signature = []byte("Rar!\x1a\x07\x00")
	rar5Signature = []byte("Rar!\x1a\x07\x01\x00")
)

const (
	rar4HeadMain       = 0x73
	rar4HeadFile       = 0x74
	rar4MainVolume     = 0x0001
	rar4MainFirstVol   = 0x0100
	rar4FileSplitPrior = 0x0001

	rar5HeadMain      = 2
	rar5HasExtra      = 0x0001
	rar5HasData       = 0x0002
	rar5ArchVolume    = 0x0001
	rar5ArchVolNumber = 0x0002
)

func openRar(name string, r io.ReaderAt, size int64) (Reader, error) {
	head := readHead(r, size, 256)
	later, err := isLaterVolume(head)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", name, err, ErrNotContainer)
	}
	if later {
		return nil, fmt.Errorf("%s: %w", name, ErrNeedFirstVolume)
	}

	iterate := func(visit visitFunc) error {
		rr, err := rardecode.NewReader(io.NewSectionReader(r, 0, size))
		if err != nil {
			return fmt.Errorf("%s: %v: %w", name, err, ErrNotContainer)
		}
		for {
			hdr, err := rr.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %v: %w", name, err, ErrNotContainer)
			}
			if hdr.IsDir || !hdr.Mode().IsRegular() {
				continue
			}
			m := Member{Name: hdr.Name, IsFile: true, Size: hdr.UnPackedSize}
			if hdr.UnKnownSize {
				m.Size = -1
			}
			if err := visit(m, rr); err != nil {
				return err
			}
		}
	}

	sr := newStreamReader(iterate)
	if _, err := sr.Members(); err != nil {
		return nil, err
	}
	return sr, nil
}

// isLaterVolume inspects the archive header and reports whether the
// bytes are the second or later volume of a multi-volume set.
func isLaterVolume(head []byte) (bool, error) {
	switch {
	case bytes.HasPrefix(head, rar5Signature):
		return rar5LaterVolume(head[len(rar5Signature):])
	case bytes.HasPrefix(head, rar4Signature):
		return rar4LaterVolume(head[len(rar4Signature):])
	default:
		return false, errors.New("missing rar signature")
	}
}

// rar4LaterVolume reads the main header and, when present, the first file
// header. A volume flag without the first-volume flag, or a first file
// continued from a previous volume, marks a later volume.
func rar4LaterVolume(b []byte) (bool, error) {
	// CRC(2) type(1) flags(2) size(2)
	if len(b) < 7 {
		return false, errors.New("truncated rar header")
	}
	if b[2] != rar4HeadMain {
		return false, errors.New("rar main header not found")
	}
	flags := binary.LittleEndian.Uint16(b[3:5])
	size := int(binary.LittleEndian.Uint16(b[5:7]))

	if flags&rar4MainVolume != 0 && flags&rar4MainFirstVol == 0 {
		// Archives written before RAR 3.0 never set the first-volume
		// flag, so only trust it when the file header agrees or is absent.
		if size < 7 || len(b) < size+7 {
			return true, nil
		}
		next := b[size:]
		if next[2] != rar4HeadFile {
			return true, nil
		}
		fileFlags := binary.LittleEndian.Uint16(next[3:5])
		return fileFlags&rar4FileSplitPrior != 0, nil
	}

	if size >= 7 && len(b) >= size+7 {
		next := b[size:]
		if next[2] == rar4HeadFile {
			fileFlags := binary.LittleEndian.Uint16(next[3:5])
			return fileFlags&rar4FileSplitPrior != 0, nil
		}
	}
	return false, nil
}

// rar5LaterVolume decodes the main archive header. A volume number field
// is only written for volumes after the first.
func rar5LaterVolume(b []byte) (bool, error) {
	if len(b) < 4 {
		return false, errors.New("truncated rar5 header")
	}
	b = b[4:] // CRC32

	var fields [3]uint64 // size, type, flags
	for i := range fields {
		v, n := binary.Uvarint(b)
		if n <= 0 {
			return false, errors.New("malformed rar5 header")
		}
		fields[i] = v
		b = b[n:]
	}
	if fields[1] != rar5HeadMain {
		return false, errors.New("rar5 main header not found")
	}

	headFlags := fields[2]
	if headFlags&rar5HasExtra != 0 {
		if _, n := binary.Uvarint(b); n > 0 {
			b = b[n:]
		} else {
			return false, errors.New("malformed rar5 header")
		}
	}
	if headFlags&rar5HasData != 0 {
		if _, n := binary.Uvarint(b); n > 0 {
			b = b[n:]
		} else {
			return false, errors.New("malformed rar5 header")
		}
	}

	archFlags, n := binary.Uvarint(b)
	if n <= 0 {
		return false, errors.New("malformed rar5 header")
	}
	// The volume number field is omitted for the first volume.
	return archFlags&rar5ArchVolume != 0 && archFlags&rar5ArchVolNumber != 0, nil
}
