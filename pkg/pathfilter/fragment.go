package pathfilter

import (
	"path"
	"regexp"
	"strings"
)

// Multi-volume archive fragments: .z01 (split zip), .r00 (old-style rar
// volumes), .part1.rar (new-style rar volumes) and .001-.010 (raw splits).
var fragmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.z[0-9]+$`),
	regexp.MustCompile(`\.r[0-9]{2}$`),
	regexp.MustCompile(`\.part[0-9]+\.rar$`),
	regexp.MustCompile(`\.(00[1-9]|010)$`),
}

// IsSplitFragment reports whether the file name belongs to a multi-volume
// split archive set. Such files are never opened as containers. The test is
// a pure, case-insensitive extension match on the final path segment.
func IsSplitFragment(name string) bool {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	for _, re := range fragmentPatterns {
		if re.MatchString(base) {
			return true
		}
	}
	return false
}
