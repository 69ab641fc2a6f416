package container

import (
	"fmt"
	"io"

	"github.com/bodgit/sevenzip"
)

// sevenZipReader reads 7z archives through bodgit/sevenzip.
type sevenZipReader struct {
	files   map[string]*sevenzip.File
	members []Member
}

func open7z(name string, r io.ReaderAt, size int64) (Reader, error) {
	zr, err := sevenzip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", name, err, ErrNotContainer)
	}

	szr := &sevenZipReader{files: make(map[string]*sevenzip.File, len(zr.File))}
	for _, f := range zr.File {
		info := f.FileInfo()
		if info.IsDir() || !info.Mode().IsRegular() {
			continue
		}
		if _, dup := szr.files[f.Name]; dup {
			continue
		}
		szr.files[f.Name] = f
		szr.members = append(szr.members, Member{
			Name:   f.Name,
			IsFile: true,
			Size:   info.Size(),
		})
	}
	return szr, nil
}

func (s *sevenZipReader) Members() ([]Member, error) {
	return s.members, nil
}

func (s *sevenZipReader) ReadMember(name string) ([]byte, error) {
	f, ok := s.files[name]
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

func (s *sevenZipReader) Close() error {
	return nil
}
