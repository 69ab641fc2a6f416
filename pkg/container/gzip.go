package container

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// openGzip exposes a single-file gzip stream as a one-member container.
// The member is named after the archive with the .gz suffix removed.
func openGzip(name string, r io.ReaderAt, size int64) (Reader, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	member := strings.TrimSuffix(base, path.Ext(base))
	if member == "" {
		member = base
	}

	iterate := func(visit visitFunc) error {
		zr, err := gzip.NewReader(io.NewSectionReader(r, 0, size))
		if err != nil {
			return fmt.Errorf("%s: %v: %w", name, err, ErrNotContainer)
		}
		defer zr.Close()
		zr.Multistream(true)
		return visit(Member{Name: member, IsFile: true, Size: -1}, zr)
	}

	sr := newStreamReader(iterate)
	if _, err := sr.Members(); err != nil {
		return nil, err
	}
	return sr, nil
}
