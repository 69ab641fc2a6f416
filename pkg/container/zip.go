package container

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// zipReader reads zip archives through archive/zip.
type zipReader struct {
	files   map[string]*zip.File
	members []Member
}

func openZip(name string, r io.ReaderAt, size int64) (Reader, error) {
	if !IsZipSignature(readHead(r, size, 4)) {
		return nil, fmt.Errorf("%s: missing zip signature: %w", name, ErrNotContainer)
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", name, err, ErrNotContainer)
	}

	zrd := &zipReader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		if _, dup := zrd.files[f.Name]; dup {
			continue
		}
		zrd.files[f.Name] = f
		zrd.members = append(zrd.members, Member{
			Name:   f.Name,
			IsFile: true,
			Size:   int64(f.UncompressedSize64),
		})
	}
	return zrd, nil
}

func (z *zipReader) Members() ([]Member, error) {
	return z.members, nil
}

func (z *zipReader) ReadMember(name string) ([]byte, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrMemberNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func (z *zipReader) Close() error {
	return nil
}
