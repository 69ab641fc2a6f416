package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// tablesHeading separates paragraph text from table rows in Word output.
const tablesHeading = "--- جداول ---"

// Office extracts text from Word documents and PowerPoint decks.
type Office struct{}

func (*Office) Name() string         { return "office" }
func (*Office) Extensions() []string { return []string{".docx", ".pptx"} }
func (*Office) OutputSuffix() string { return "_doc_contents" }

// Extract returns "document_text.txt" for a .docx, and one part per slide
// for a .pptx.
func (*Office) Extract(ctx context.Context, p string) ([]Content, error) {
	zr, closer, err := openOOXML(p)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	switch strings.ToLower(filepath.Ext(p)) {
	case ".docx":
		data, err := readZipMember(zr, "word/document.xml")
		if err != nil {
			return nil, err
		}
		text := docxText(data)
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []Content{{Name: "document_text.txt", Text: text}}, nil
	case ".pptx":
		return pptxSlides(ctx, zr)
	default:
		return nil, ErrUnsupported
	}
}

// Spreadsheet extracts every worksheet of an .xlsx workbook as TSV.
type Spreadsheet struct{}

func (*Spreadsheet) Name() string         { return "spreadsheet" }
func (*Spreadsheet) Extensions() []string { return []string{".xlsx"} }
func (*Spreadsheet) OutputSuffix() string { return "_excel_contents" }

// Extract returns one "<sheet>.tsv" part per worksheet, in workbook order.
func (*Spreadsheet) Extract(ctx context.Context, p string) ([]Content, error) {
	zr, closer, err := openOOXML(p)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	wb, err := readWorkbook(ctx, zr)
	if err != nil {
		return nil, err
	}
	return wb.TSV(), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOOXML(p string) (*zip.Reader, io.Closer, error) {
	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, nopCloser{}, fmt.Errorf("opening %s as zip: %w", filepath.Base(p), err)
	}
	return &rc.Reader, rc, nil
}

func readZipMember(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}

// docxText collects paragraphs and, after a heading, table rows with cells
// separated by tabs.
func docxText(data []byte) string {
	var (
		paragraphs []string
		tableRows  []string
		para       strings.Builder
		cell       strings.Builder
		cells      []string
		tableDepth int
		inText     bool
	)

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "t":
				inText = true
			case "tab":
				if tableDepth > 0 {
					cell.WriteByte(' ')
				} else {
					para.WriteByte('\t')
				}
			case "br":
				if tableDepth == 0 {
					para.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tableDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					continue
				}
				if s := para.String(); strings.TrimSpace(s) != "" {
					paragraphs = append(paragraphs, s)
				}
				para.Reset()
			case "tc":
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			case "tr":
				tableRows = append(tableRows, strings.Join(cells, "\t"))
				cells = nil
			case "tbl":
				tableDepth--
			}
		case xml.CharData:
			if !inText {
				continue
			}
			if tableDepth > 0 {
				cell.Write(t)
			} else {
				para.Write(t)
			}
		}
	}

	out := strings.Join(paragraphs, "\n")
	if len(tableRows) > 0 {
		out += "\n\n" + tablesHeading + "\n" + strings.Join(tableRows, "\n")
	}
	return out
}

// pptxSlides returns the text of each slide as "slide_N.txt", one line per
// paragraph, in slide number order.
func pptxSlides(ctx context.Context, zr *zip.Reader) ([]Content, error) {
	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		dir, base := path.Split(f.Name)
		if dir != "ppt/slides/" || !strings.HasPrefix(base, "slide") || !strings.HasSuffix(base, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, "slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var out []Content
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rc, err := s.file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text := paragraphText(data)
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, Content{Name: fmt.Sprintf("slide_%d.txt", s.num), Text: text})
	}
	return out, nil
}

// paragraphText joins the text runs of each <p> element into one line.
func paragraphText(data []byte) string {
	var (
		lines []string
		line  strings.Builder
	)
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			line.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				if s := cleanText(line.String()); s != "" {
					lines = append(lines, s)
				}
				line.Reset()
			}
		}
	}
	if s := cleanText(line.String()); s != "" {
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n")
}

// cleanText removes extra whitespace and non-printable characters.
func cleanText(s string) string {
	var result strings.Builder
	lastSpace := false

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				result.WriteRune(' ')
				lastSpace = true
			}
		} else if unicode.IsPrint(r) {
			result.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(result.String())
}
