package container

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type fixtureFile struct {
	name string
	body string
}

var fixtureFiles = []fixtureFile{
	{"src/a.py", "print('a')\n"},
	{"README.md", "# readme\n"},
}

func buildZip(t *testing.T, files []fixtureFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("src/")
	require.NoError(t, err)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildTar(t *testing.T, files []fixtureFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "src/", Typeflag: tar.TypeDir, Mode: 0o755}))
	for _, f := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     f.name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(f.body)),
		}))
		_, err := tw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "link", Typeflag: tar.TypeSymlink, Linkname: "README.md"}))
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = xw.Write(data)
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	return buf.Bytes()
}

func lz4Bytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	lw := lz4.NewWriter(&buf)
	_, err := lw.Write(data)
	require.NoError(t, err)
	require.NoError(t, lw.Close())
	return buf.Bytes()
}

func readAll(t *testing.T, rd Reader) map[string]string {
	t.Helper()
	members, err := rd.Members()
	require.NoError(t, err)
	out := make(map[string]string, len(members))
	for _, m := range members {
		assert.True(t, m.IsFile)
		data, err := rd.ReadMember(m.Name)
		require.NoError(t, err)
		out[m.Name] = string(data)
	}
	return out
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"project.zip", FormatZip},
		{"PROJECT.ZIP", FormatZip},
		{"bundle.7z", Format7z},
		{"bundle.rar", FormatRar},
		{"src.tar", FormatTar},
		{"src.tar.gz", FormatTarGz},
		{"src.tgz", FormatTarGz},
		{"src.tar.bz2", FormatTarBz2},
		{"src.tar.xz", FormatTarXz},
		{"src.tar.zst", FormatTarZst},
		{"src.tar.lz4", FormatTarLz4},
		{"notes.txt.gz", FormatGzip},
		{"dir/sub/a.zip", FormatZip},
		{"notes.txt", FormatNone},
		{"archive.z01", FormatNone},
		{"archive.r00", FormatNone},
		{"archive.part2.rar", FormatNone},
		{"archive.001", FormatNone},
		{".zip", FormatNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.name))
		})
	}
}

func TestFormat_Label(t *testing.T) {
	assert.Equal(t, "ZIP", FormatZip.Label())
	assert.Equal(t, "7Z", Format7z.Label())
	assert.Equal(t, "TAR", FormatTarGz.Label())
	assert.Equal(t, "TAR", FormatTar.Label())
	assert.Equal(t, "RAR", FormatRar.Label())
}

func TestOpenBytes_Zip(t *testing.T) {
	caps := DefaultCapabilities()
	rd, f, err := caps.OpenBytes("project.zip", buildZip(t, fixtureFiles))
	require.NoError(t, err)
	defer rd.Close()

	assert.Equal(t, FormatZip, f)
	got := readAll(t, rd)
	assert.Equal(t, map[string]string{
		"src/a.py":  "print('a')\n",
		"README.md": "# readme\n",
	}, got)
}

func TestOpenBytes_ZipOrder(t *testing.T) {
	rd, _, err := DefaultCapabilities().OpenBytes("project.zip", buildZip(t, fixtureFiles))
	require.NoError(t, err)
	members, err := rd.Members()
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "src/a.py", members[0].Name)
	assert.Equal(t, "README.md", members[1].Name)
}

func TestOpenBytes_NotZip(t *testing.T) {
	_, _, err := DefaultCapabilities().OpenBytes("fake.zip", []byte("%PDF-1.4 not a zip"))
	assert.ErrorIs(t, err, ErrNotContainer)
}

func TestOpenBytes_Tar(t *testing.T) {
	raw := buildTar(t, fixtureFiles)
	tests := []struct {
		name string
		data []byte
	}{
		{"src.tar", raw},
		{"src.tar.gz", gzipBytes(t, raw)},
		{"src.tar.zst", zstdBytes(t, raw)},
		{"src.tar.xz", xzBytes(t, raw)},
		{"src.tar.lz4", lz4Bytes(t, raw)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd, _, err := DefaultCapabilities().OpenBytes(tt.name, tt.data)
			require.NoError(t, err)
			defer rd.Close()

			got := readAll(t, rd)
			assert.Equal(t, map[string]string{
				"src/a.py":  "print('a')\n",
				"README.md": "# readme\n",
			}, got)
		})
	}
}

func TestOpenBytes_CorruptTarGz(t *testing.T) {
	_, _, err := DefaultCapabilities().OpenBytes("src.tar.gz", []byte("not gzip at all"))
	assert.ErrorIs(t, err, ErrNotContainer)
}

func TestOpenBytes_Gzip(t *testing.T) {
	rd, f, err := DefaultCapabilities().OpenBytes("notes.txt.gz", gzipBytes(t, []byte("hello\n")))
	require.NoError(t, err)
	defer rd.Close()

	assert.Equal(t, FormatGzip, f)
	got := readAll(t, rd)
	assert.Equal(t, map[string]string{"notes.txt": "hello\n"}, got)
}

func TestReadMember_NotFound(t *testing.T) {
	rd, _, err := DefaultCapabilities().OpenBytes("src.tar", buildTar(t, fixtureFiles))
	require.NoError(t, err)
	_, err = rd.ReadMember("missing.txt")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	zr, _, err := DefaultCapabilities().OpenBytes("project.zip", buildZip(t, fixtureFiles))
	require.NoError(t, err)
	_, err = zr.ReadMember("missing.txt")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestCapabilities_Without(t *testing.T) {
	caps := DefaultCapabilities().Without(FormatRar, Format7z)
	assert.False(t, caps.Supports(FormatRar))
	assert.False(t, caps.Supports(Format7z))
	assert.True(t, caps.Supports(FormatZip))
	assert.True(t, DefaultCapabilities().Supports(FormatRar))

	_, _, err := caps.OpenBytes("bundle.rar", []byte("Rar!\x1a\x07\x00"))
	assert.ErrorIs(t, err, ErrUnsupported)

	var none *Capabilities
	assert.False(t, none.Supports(FormatZip))
}

func TestOpenBytes_Fragment(t *testing.T) {
	_, f, err := DefaultCapabilities().OpenBytes("archive.r00", []byte("whatever"))
	assert.Equal(t, FormatNone, f)
	assert.ErrorIs(t, err, ErrNotContainer)
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "project.zip")
	require.NoError(t, os.WriteFile(p, buildZip(t, fixtureFiles), 0o644))

	rd, f, err := DefaultCapabilities().OpenFile(p)
	require.NoError(t, err)
	assert.Equal(t, FormatZip, f)
	got := readAll(t, rd)
	assert.Len(t, got, 2)
	require.NoError(t, rd.Close())

	_, _, err = DefaultCapabilities().OpenFile(filepath.Join(dir, "missing.zip"))
	assert.Error(t, err)

	_, _, err = DefaultCapabilities().OpenFile(filepath.Join(dir, "plain.txt"))
	assert.ErrorIs(t, err, ErrNotContainer)
}

func TestIsZipSignature(t *testing.T) {
	assert.True(t, IsZipSignature([]byte("PK\x03\x04rest")))
	assert.True(t, IsZipSignature([]byte("PK\x05\x06")))
	assert.False(t, IsZipSignature([]byte("%PDF")))
	assert.False(t, IsZipSignature(nil))
}

func rar4Header(mainFlags uint16, fileFlags *uint16) []byte {
	b := append([]byte{}, rar4Signature...)
	// main header: crc, type, flags, size=13, 6 reserved bytes
	b = append(b, 0, 0, rar4HeadMain, byte(mainFlags), byte(mainFlags>>8), 13, 0)
	b = append(b, 0, 0, 0, 0, 0, 0)
	if fileFlags != nil {
		b = append(b, 0, 0, rar4HeadFile, byte(*fileFlags), byte(*fileFlags>>8), 32, 0)
	}
	return b
}

func TestIsLaterVolume_RAR4(t *testing.T) {
	split := uint16(rar4FileSplitPrior)
	whole := uint16(0)

	tests := []struct {
		name string
		head []byte
		want bool
	}{
		{"single archive", rar4Header(0, &whole), false},
		{"first volume", rar4Header(rar4MainVolume|rar4MainFirstVol, &whole), false},
		{"later volume", rar4Header(rar4MainVolume, &split), true},
		{"later volume without file header", rar4Header(rar4MainVolume, nil), true},
		{"old first volume", rar4Header(rar4MainVolume, &whole), false},
		{"continued file in non-volume header", rar4Header(0, &split), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := isLaterVolume(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsLaterVolume_RAR5(t *testing.T) {
	build := func(archFlags ...byte) []byte {
		b := append([]byte{}, rar5Signature...)
		b = append(b, 0, 0, 0, 0) // crc
		b = append(b, byte(2+len(archFlags)), rar5HeadMain, 0)
		return append(b, archFlags...)
	}

	tests := []struct {
		name string
		head []byte
		want bool
	}{
		{"single archive", build(0x00), false},
		{"first volume", build(rar5ArchVolume), false},
		{"second volume", build(rar5ArchVolume|rar5ArchVolNumber, 0x01), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := isLaterVolume(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsLaterVolume_NotRar(t *testing.T) {
	_, err := isLaterVolume([]byte("PK\x03\x04"))
	assert.Error(t, err)
}

func TestOpenRar_LaterVolume(t *testing.T) {
	split := uint16(rar4FileSplitPrior)
	_, _, err := DefaultCapabilities().OpenBytes("bundle.rar", rar4Header(rar4MainVolume, &split))
	assert.ErrorIs(t, err, ErrNeedFirstVolume)
}

func TestOpenRar_Garbage(t *testing.T) {
	_, _, err := DefaultCapabilities().OpenBytes("bundle.rar", []byte("definitely not rar"))
	assert.ErrorIs(t, err, ErrNotContainer)
}
