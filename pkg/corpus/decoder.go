package corpus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// ErrNoRecords is returned by Parse when neither strategy finds a record.
var ErrNoRecords = errors.New("no records found in corpus")

// Strategy names the parser that produced a decode result.
type Strategy string

const (
	StrategyStrict  Strategy = "strict"
	StrategyLenient Strategy = "lenient"
)

// ParsedRecord is one record recovered from a corpus. Path is the path as
// recorded, before sanitizing.
type ParsedRecord struct {
	Path    string
	Content string
}

// recordPattern matches a complete record: header line, dash separator,
// body, and an equals terminator.
var recordPattern = regexp2.MustCompile(
	HeaderToken+`([^\n]+?)\n-{`+fmt.Sprint(SeparatorWidth)+`,}\n(.*?)\n={`+fmt.Sprint(BannerWidth)+`,}`,
	regexp2.Singleline,
)

// normalizeNewlines converts CRLF corpora to LF.
func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// ParseStrict returns every complete record in text. Records whose
// terminator is missing are not returned.
func ParseStrict(text string) ([]ParsedRecord, error) {
	text = normalizeNewlines(text)

	var records []ParsedRecord
	m, err := recordPattern.FindStringMatch(text)
	for m != nil && err == nil {
		groups := m.Groups()
		path := strings.TrimSpace(groups[1].String())
		records = append(records, ParsedRecord{
			Path:    path,
			Content: trimBody(groups[2].String()),
		})
		m, err = recordPattern.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("matching records: %w", err)
	}
	return records, nil
}

// ParseLenient splits text on header lines. The first line of each chunk
// is the path; a leading dash separator is dropped, and the body ends at
// the first run of eighty "=" characters or at the end of the chunk.
// Chunks with an empty path or body are skipped.
func ParseLenient(text string) []ParsedRecord {
	text = normalizeNewlines(text)

	var chunks []string
	if rest, ok := strings.CutPrefix(text, HeaderToken); ok {
		chunks = strings.Split(rest, "\n"+HeaderToken)
	} else {
		chunks = strings.Split(text, "\n"+HeaderToken)
		chunks = chunks[1:]
	}

	var records []ParsedRecord
	for _, chunk := range chunks {
		pathLine, rest, ok := strings.Cut(chunk, "\n")
		if !ok {
			continue
		}
		path := strings.TrimSpace(pathLine)
		if path == "" {
			continue
		}

		if first, after, found := strings.Cut(rest, "\n"); found && isSeparatorLine(first) {
			rest = after
		} else if isSeparatorLine(rest) {
			rest = ""
		}
		if i := strings.Index(rest, banner); i >= 0 {
			rest = rest[:i]
		}

		body := trimBody(rest)
		if strings.TrimSpace(body) == "" {
			continue
		}
		records = append(records, ParsedRecord{Path: path, Content: body})
	}
	return records
}

// Parse runs ParseStrict and falls back to ParseLenient only when the
// strict pass finds nothing. It returns ErrNoRecords when both are empty.
func Parse(text string) ([]ParsedRecord, Strategy, error) {
	records, err := ParseStrict(text)
	if err != nil {
		return nil, StrategyStrict, err
	}
	if len(records) > 0 {
		return records, StrategyStrict, nil
	}

	records = ParseLenient(text)
	if len(records) > 0 {
		return records, StrategyLenient, nil
	}
	return nil, StrategyLenient, ErrNoRecords
}

func isSeparatorLine(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) >= SeparatorWidth && strings.Trim(line, "-") == ""
}

// trimBody removes the newlines the encoder adds after a body.
func trimBody(s string) string {
	return strings.TrimRight(s, "\n")
}

// DecodedFile is a parsed record with a usable relative path.
type DecodedFile struct {
	// Path is the sanitized, slash separated relative path.
	Path string
	// Recorded is the path as it appeared in the corpus.
	Recorded string
	Content  string
}

// Decode parses a corpus and sanitizes every record path. Records whose
// sanitized path is empty are dropped and counted in discarded.
func Decode(text string) (files []DecodedFile, discarded int, strategy Strategy, err error) {
	records, strategy, err := Parse(text)
	if err != nil {
		return nil, 0, strategy, err
	}
	for _, r := range records {
		safe := SanitizePath(r.Path)
		if safe == "" {
			discarded++
			continue
		}
		files = append(files, DecodedFile{Path: safe, Recorded: r.Path, Content: r.Content})
	}
	if len(files) == 0 {
		return nil, discarded, strategy, ErrNoRecords
	}
	return files, discarded, strategy, nil
}
