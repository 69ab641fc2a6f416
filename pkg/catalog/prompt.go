package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/praetorian-inc/corpora/pkg/types"
)

// PreviewLength is the number of characters of content sent in a prompt.
const PreviewLength = 500

// Confidence assigned when the response cannot be interpreted.
const (
	unparsedConfidence = 50
	invalidConfidence  = 30
)

// DetectLanguage returns arabic when Arabic-block letters outnumber Latin
// letters, english otherwise.
func DetectLanguage(text string) string {
	var arabic, latin int
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	if arabic > latin {
		return types.LanguageArabic
	}
	return types.LanguageEnglish
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	// Letters, digits, underscore and the Arabic presentation blocks and
	// directional marks survive; other symbols become spaces.
	symbolPattern = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s\x{0600}-\x{06FF}\x{0750}-\x{077F}\x{08A0}-\x{08FF}\x{FB50}-\x{FDFF}\x{FE70}-\x{FEFF}\x{200C}-\x{200F}\x{202A}-\x{202E}]`)
)

// Preprocess collapses whitespace and replaces punctuation and symbols
// with spaces.
func Preprocess(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = symbolPattern.ReplaceAllString(text, " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Preview returns the first PreviewLength characters of text.
func Preview(text string) string {
	n := 0
	for i := range text {
		if n == PreviewLength {
			return text[:i]
		}
		n++
	}
	return text
}

// BuildPrompt renders the classification prompt for a preview.
func BuildPrompt(language, preview string) string {
	return fmt.Sprintf(`
You are an expert text classifier. Classify the following text into one of these categories:
- medical (medical content, health, diseases, treatments, anatomy)
- technical (technology, programming, computers, engineering, software)
- translation (bilingual content, translation work, language learning)
- reference (manuals, guides, documentation, tutorials)
- misc (other content)

Text (%s):
%s

Respond with only the category name followed by confidence score (0-100) in the format:
category: confidence

Examples:
- medical: 95
- technical: 80
- translation: 70
- reference: 85
- misc: 50
`, language, preview)
}

// ParseResponse reads "category: confidence" from a model response.
// A response without the separator yields misc at 50; an unknown category
// yields misc at 30. Confidence is clamped to 0..100.
func ParseResponse(response string) (category string, confidence int) {
	parts := strings.Split(strings.TrimSpace(response), ": ")
	if len(parts) < 2 {
		return types.CategoryMisc, unparsedConfidence
	}

	category = strings.ToLower(strings.TrimSpace(parts[0]))
	category = strings.TrimLeftFunc(category, func(r rune) bool {
		return r == '-' || r == '*' || unicode.IsSpace(r)
	})
	confidence = unparsedConfidence
	if fields := strings.Fields(parts[1]); len(fields) > 0 {
		if n, err := strconv.Atoi(strings.TrimRight(fields[0], "%.,")); err == nil {
			confidence = n
		}
	}

	if !types.IsCategory(category) {
		return types.CategoryMisc, invalidConfidence
	}
	return category, clamp(confidence, 0, 100)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// subcategoryRules are checked in order for each category; the first rule
// with a keyword present in the lower-cased content wins.
var subcategoryRules = map[string][]struct {
	name     string
	keywords []string
}{
	types.CategoryMedical: {
		{"orthopedics", []string{"orthopedic", "bone", "joint", "fracture", "muscle", "surgery"}},
	},
	types.CategoryTechnical: {
		{"linux", []string{"linux", "manjaro", "ubuntu", "server", "sysadmin"}},
		{"programming", []string{"python", "javascript", "programming", "code", "script"}},
		{"devops", []string{"docker", "kubernetes", "devops", "ci/cd"}},
	},
	types.CategoryTranslation: {
		{"bilingual", []string{"arabic", "english", "french", "spanish", "translate"}},
	},
	types.CategoryReference: {
		{"manuals", []string{"manual", "guide", "tutorial", "documentation"}},
	},
}

// Subcategory refines a category by keyword. It returns "general" when no
// keyword matches.
func Subcategory(category, content string) string {
	lower := strings.ToLower(content)
	for _, rule := range subcategoryRules[category] {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.name
			}
		}
	}
	return "general"
}
