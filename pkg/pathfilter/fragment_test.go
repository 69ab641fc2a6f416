package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSplitFragment(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"archive.r00", true},
		{"archive.R04", true},
		{"archive.r99", true},
		{"backup.z01", true},
		{"backup.z123", true},
		{"backup.part1.rar", true},
		{"backup.PART12.RAR", true},
		{"disk.001", true},
		{"disk.7z.005", true},
		{"disk.010", true},
		{"dir/sub/data.z02", true},

		{"archive.zip", false},
		{"archive.rar", false},
		{"disk.011", false},
		{"disk.000", false},
		{"notes.r", false},
		{"report.rtf", false},
		{"video.mp4", false},
		{"a.part.rar", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSplitFragment(tt.name))
		})
	}
}
