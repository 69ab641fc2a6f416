package corpus

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// delimiters are the sequences that the decoder treats as record
// boundaries when they appear at the start of a line.
var delimiters = []string{
	"\n" + HeaderToken,
	banner,
}

var delimiterMatcher = ahocorasick.NewStringMatcher(delimiters)

// hasCollision reports whether body contains a sequence that the decoder
// could read as a record boundary.
func hasCollision(body string) bool {
	if strings.HasPrefix(body, HeaderToken) {
		return true
	}
	return len(delimiterMatcher.MatchThreadSafe([]byte(body))) > 0
}
