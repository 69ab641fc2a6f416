package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// HTML strips markup and returns the visible text.
type HTML struct{}

func (*HTML) Name() string         { return "html" }
func (*HTML) Extensions() []string { return []string{".html", ".htm"} }
func (*HTML) OutputSuffix() string { return "_html_text" }

// Extract returns a single "html_text.txt" part.
func (*HTML) Extract(ctx context.Context, p string) ([]Content, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := HTMLText(doc)
	if text == "" {
		return nil, nil
	}
	return []Content{{Name: "html_text.txt", Text: text}}, nil
}

var invisibleElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"title":  true,
	"meta":   true,
}

// HTMLText collects the visible text of a parsed document. Each line is
// trimmed, runs separated by two spaces become separate lines, and empty
// lines are dropped.
func HTMLText(doc *html.Node) string {
	var raw strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && invisibleElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			raw.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElement(n.Data) {
			raw.WriteByte('\n')
		}
	}
	walk(doc)

	var lines []string
	for _, line := range strings.Split(raw.String(), "\n") {
		for _, chunk := range strings.Split(strings.TrimSpace(line), "  ") {
			if chunk = strings.TrimSpace(chunk); chunk != "" {
				lines = append(lines, chunk)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func blockElement(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6",
		"table", "section", "article", "header", "footer", "ul", "ol", "pre", "blockquote":
		return true
	}
	return false
}
