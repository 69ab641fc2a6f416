package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// OCREngine recognizes the text of a single PDF page (1-based).
type OCREngine interface {
	PageText(ctx context.Context, pdfPath string, page int) (string, error)
}

// DefaultOCRLanguages is the tesseract language set.
const DefaultOCRLanguages = "ara+eng"

// CommandOCR renders a page with pdftoppm and recognizes it with tesseract.
type CommandOCR struct {
	Pdftoppm  string
	Tesseract string
	Languages string
	// DPI of the rendered page image.
	DPI int
}

// NewCommandOCR locates the external tools on PATH. It returns
// ErrUnsupported when either is missing.
func NewCommandOCR() (*CommandOCR, error) {
	pdftoppm, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm not found: %w", ErrUnsupported)
	}
	tesseract, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, fmt.Errorf("tesseract not found: %w", ErrUnsupported)
	}
	return &CommandOCR{
		Pdftoppm:  pdftoppm,
		Tesseract: tesseract,
		Languages: DefaultOCRLanguages,
		DPI:       300,
	}, nil
}

// PageText implements OCREngine.
func (c *CommandOCR) PageText(ctx context.Context, pdfPath string, page int) (string, error) {
	dir, err := os.MkdirTemp("", "corpora-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dpi := c.DPI
	if dpi <= 0 {
		dpi = 300
	}
	pn := strconv.Itoa(page)
	prefix := filepath.Join(dir, "page")
	render := exec.CommandContext(ctx, c.Pdftoppm,
		"-f", pn, "-l", pn, "-r", strconv.Itoa(dpi), "-png", "-singlefile",
		pdfPath, prefix)
	if out, err := render.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}

	langs := c.Languages
	if langs == "" {
		langs = DefaultOCRLanguages
	}
	var stdout, stderr bytes.Buffer
	recognize := exec.CommandContext(ctx, c.Tesseract, prefix+".png", "stdout", "-l", langs)
	recognize.Stdout = &stdout
	recognize.Stderr = &stderr
	if err := recognize.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
