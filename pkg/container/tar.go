package container

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// decompressor wraps a compressed stream. The returned closer releases
// decoder resources and may be nil.
type decompressor func(r io.Reader) (io.Reader, io.Closer, error)

func decompressorFor(f Format) decompressor {
	switch f {
	case FormatTarGz:
		return func(r io.Reader) (io.Reader, io.Closer, error) {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, zr, nil
		}
	case FormatTarBz2:
		return func(r io.Reader) (io.Reader, io.Closer, error) {
			return bzip2.NewReader(r), nil, nil
		}
	case FormatTarXz:
		return func(r io.Reader) (io.Reader, io.Closer, error) {
			xr, err := xz.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return xr, nil, nil
		}
	case FormatTarZst:
		return func(r io.Reader) (io.Reader, io.Closer, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			rc := zr.IOReadCloser()
			return rc, rc, nil
		}
	case FormatTarLz4:
		return func(r io.Reader) (io.Reader, io.Closer, error) {
			return lz4.NewReader(r), nil, nil
		}
	default:
		return func(r io.Reader) (io.Reader, io.Closer, error) {
			return r, nil, nil
		}
	}
}

// tarOpener returns an Opener for plain or compressed tar.
func tarOpener(f Format) Opener {
	decompress := decompressorFor(f)
	return func(name string, r io.ReaderAt, size int64) (Reader, error) {
		iterate := func(visit visitFunc) error {
			raw, closer, err := decompress(io.NewSectionReader(r, 0, size))
			if err != nil {
				return fmt.Errorf("%s: %v: %w", name, err, ErrNotContainer)
			}
			if closer != nil {
				defer closer.Close()
			}

			tr := tar.NewReader(raw)
			for {
				hdr, err := tr.Next()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("%s: %v: %w", name, err, ErrNotContainer)
				}
				if hdr.Typeflag != tar.TypeReg {
					continue
				}
				m := Member{Name: hdr.Name, IsFile: true, Size: hdr.Size}
				if err := visit(m, tr); err != nil {
					return err
				}
			}
		}

		sr := newStreamReader(iterate)
		// List eagerly so a corrupt archive fails at open time.
		if _, err := sr.Members(); err != nil {
			return nil, err
		}
		return sr, nil
	}
}
