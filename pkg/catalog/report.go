package catalog

import (
	"sort"
	"time"
)

// Count is a named tally with its share of the total, in percent.
type Count struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Failure records a document that could not be classified.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Report summarizes a catalog run.
type Report struct {
	Generated     time.Time `json:"generated"`
	Files         int       `json:"files"`
	Cached        int       `json:"cached"`
	Words         int       `json:"words"`
	Chars         int       `json:"chars"`
	AvgConfidence float64   `json:"average_confidence"`
	Categories    []Count   `json:"categories"`
	Languages     []Count   `json:"languages"`
	Results       []*Result `json:"results"`
	Failures      []Failure `json:"failures,omitempty"`
}

// NewReport aggregates results. Categories and languages are sorted by name.
func NewReport(generated time.Time, results []*Result, failures []Failure) *Report {
	r := &Report{
		Generated: generated,
		Files:     len(results),
		Results:   results,
		Failures:  failures,
	}

	categories := make(map[string]int)
	languages := make(map[string]int)
	confidence := 0
	for _, res := range results {
		if res.Cached {
			r.Cached++
		}
		r.Words += res.Words
		r.Chars += res.Chars
		confidence += res.Label.Confidence
		categories[res.Label.Category]++
		languages[res.Label.Language]++
	}
	if len(results) > 0 {
		r.AvgConfidence = float64(confidence) / float64(len(results))
	}
	r.Categories = counts(categories, len(results))
	r.Languages = counts(languages, len(results))
	return r
}

func counts(m map[string]int, total int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{
			Name:    name,
			Count:   n,
			Percent: float64(n) / float64(total) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CategoryCount returns the number of results labelled category.
func (r *Report) CategoryCount(category string) int {
	for _, c := range r.Categories {
		if c.Name == category {
			return c.Count
		}
	}
	return 0
}
