package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the text layer of each page. Pages without text fall back
// to OCR when an engine is configured.
type PDF struct {
	Logger *slog.Logger
	OCR    OCREngine
}

func (*PDF) Name() string         { return "pdf" }
func (*PDF) Extensions() []string { return []string{".pdf"} }
func (*PDF) OutputSuffix() string { return "_pdf_contents" }

// Extract returns one "page_NNNN.txt" part per page that yields text.
func (x *PDF) Extract(ctx context.Context, p string) (contents []Content, err error) {
	logger := x.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			contents = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var text string
		page := r.Page(n)
		if !page.V.IsNull() {
			text, err = page.GetPlainText(nil)
			if err != nil {
				logger.Debug("page text failed", "path", p, "page", n, "error", err)
				text = ""
			}
		}

		if strings.TrimSpace(text) == "" && x.OCR != nil {
			text, err = x.OCR.PageText(ctx, p, n)
			if err != nil {
				logger.Warn("OCR failed", "path", p, "page", n, "error", err)
				text = ""
			}
		}

		if strings.TrimSpace(text) == "" {
			continue
		}
		contents = append(contents, Content{
			Name: fmt.Sprintf("page_%04d.txt", n),
			Text: text,
		})
	}
	return contents, nil
}
