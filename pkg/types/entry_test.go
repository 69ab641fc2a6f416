package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/main.py", "src/main.py"},
		{"/abs/path.txt", "abs/path.txt"},
		{`dir\sub\file.txt`, "dir/sub/file.txt"},
		{"./a/./b", "a/b"},
		{"a/../b", "b"},
		{"../../etc/passwd", "etc/passwd"},
		{"a//b/", "a/b"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestEntry_Read(t *testing.T) {
	e := Entry{Path: "a/b.txt", Open: func() ([]byte, error) { return []byte("x"), nil }}
	data, err := e.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	assert.Equal(t, "b.txt", e.Base())

	failing := Entry{Path: "c", Open: func() ([]byte, error) { return nil, errors.New("boom") }}
	_, err = failing.Read()
	assert.EqualError(t, err, "boom")

	_, err = Entry{Path: "d"}.Read()
	assert.Error(t, err)
}

func TestClassificationResult_IsRecord(t *testing.T) {
	assert.True(t, ClassificationResult{Kind: KindText}.IsRecord())
	assert.True(t, ClassificationResult{Kind: KindModelMarker}.IsRecord())
	assert.False(t, ClassificationResult{Kind: KindBinary, Binary: BinaryPNG}.IsRecord())
	assert.False(t, ClassificationResult{Kind: KindEmpty}.IsRecord())
}
