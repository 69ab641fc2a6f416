package types

import (
	"strings"
	"time"
)

// Categories a document can be labelled with.
const (
	CategoryMedical     = "medical"
	CategoryTechnical   = "technical"
	CategoryTranslation = "translation"
	CategoryReference   = "reference"
	CategoryMisc        = "misc"
)

// Categories lists the valid categories in report order.
var Categories = []string{
	CategoryMedical,
	CategoryTechnical,
	CategoryTranslation,
	CategoryReference,
	CategoryMisc,
}

// Languages detected by the catalog.
const (
	LanguageArabic  = "arabic"
	LanguageEnglish = "english"
)

// Label is the category assigned to one piece of content.
// Labels are keyed by ContentID so identical content is classified once.
type Label struct {
	ContentID    ContentID `json:"content_id"`
	Category     string    `json:"category"`
	Subcategory  string    `json:"subcategory,omitempty"`
	Confidence   int       `json:"confidence"`
	Language     string    `json:"language"`
	Model        string    `json:"model"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// IsCategory reports whether name is one of Categories.
func IsCategory(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
