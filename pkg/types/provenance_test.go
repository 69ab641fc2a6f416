package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileProvenance(t *testing.T) {
	prov := FileProvenance{
		FilePath: "/path/to/file.txt",
	}

	assert.Equal(t, "file", prov.Kind())
	assert.Equal(t, "/path/to/file.txt", prov.Path())
}

func TestArchiveProvenance(t *testing.T) {
	prov := ArchiveProvenance{
		ArchivePath: "/data/bundle.zip",
		MemberPath:  "src/main.py",
	}

	assert.Equal(t, "archive", prov.Kind())
	assert.Equal(t, "/data/bundle.zip:src/main.py", prov.Path())
}

func TestArchiveProvenance_Nested(t *testing.T) {
	prov := ArchiveProvenance{
		ArchivePath: "/data/bundle.zip",
		Chain:       []string{"vendor/lib.tar.gz"},
		MemberPath:  "lib/util.py",
	}

	assert.Equal(t, "/data/bundle.zip:vendor/lib.tar.gz:lib/util.py", prov.Path())
}

func TestProvenance_Interface(t *testing.T) {
	var _ Provenance = FileProvenance{}
	var _ Provenance = ArchiveProvenance{}
}

func TestNest(t *testing.T) {
	outer := Nest(FileProvenance{FilePath: "/data/bundle.zip"}, "vendor/lib.tar.gz")
	assert.Equal(t, "/data/bundle.zip:vendor/lib.tar.gz", outer.Path())

	inner := Nest(outer, "lib/util.py")
	assert.Equal(t, []string{"vendor/lib.tar.gz"}, inner.Chain)
	assert.Equal(t, "/data/bundle.zip:vendor/lib.tar.gz:lib/util.py", inner.Path())

	// The parent chain is not shared with the child.
	deeper := Nest(inner, "x.py")
	assert.Len(t, inner.Chain, 1)
	assert.Len(t, deeper.Chain, 2)
}
