package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxSheetNameLength is the spreadsheet limit on worksheet names.
const MaxSheetNameLength = 31

// Sheet is one named table of string cells. The first row is the header.
type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is an in-memory spreadsheet: an ordered list of sheets.
type Workbook struct {
	Sheets []*Sheet
}

// AddSheet appends a sheet. The name is cut to MaxSheetNameLength
// characters and made unique within the workbook.
func (wb *Workbook) AddSheet(name string) *Sheet {
	name = truncateRunes(name, MaxSheetNameLength)
	if name == "" {
		name = "Sheet"
	}
	unique := name
	for i := 2; wb.hasSheet(unique); i++ {
		suffix := fmt.Sprintf("~%d", i)
		unique = truncateRunes(name, MaxSheetNameLength-len(suffix)) + suffix
	}
	s := &Sheet{Name: unique}
	wb.Sheets = append(wb.Sheets, s)
	return s
}

func (wb *Workbook) hasSheet(name string) bool {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return true
		}
	}
	return false
}

// TSV renders every sheet as "<sheet>.tsv". Cells keep their text; tabs
// and newlines inside cells become spaces.
func (wb *Workbook) TSV() []Content {
	out := make([]Content, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		var b strings.Builder
		for _, row := range s.Rows {
			for i, cell := range row {
				if i > 0 {
					b.WriteByte('\t')
				}
				b.WriteString(tsvCell(cell))
			}
			b.WriteByte('\n')
		}
		out = append(out, Content{Name: SafePartName(s.Name) + ".tsv", Text: b.String()})
	}
	return out
}

var tsvReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func tsvCell(s string) string {
	return tsvReplacer.Replace(s)
}

var partNameReplacer = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// SafePartName replaces characters that are illegal in file names.
func SafePartName(name string) string {
	return partNameReplacer.Replace(name)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// xlsx parts

type xlsxWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxSST struct {
	Items []struct {
		T string `xml:"t"`
		R []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxSheetData struct {
	Rows []struct {
		Cells []struct {
			Ref       string `xml:"r,attr"`
			Type      string `xml:"t,attr"`
			Value     string `xml:"v"`
			InlineStr struct {
				T string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// readWorkbook loads the sheets of an .xlsx archive as strings.
func readWorkbook(ctx context.Context, zr *zip.Reader) (*Workbook, error) {
	wbData, err := readZipMember(zr, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	var wbXML xlsxWorkbook
	if err := xml.Unmarshal(wbData, &wbXML); err != nil {
		return nil, fmt.Errorf("parsing workbook: %w", err)
	}

	targets := make(map[string]string)
	if relData, err := readZipMember(zr, "xl/_rels/workbook.xml.rels"); err == nil {
		var rels xlsxRelationships
		if err := xml.Unmarshal(relData, &rels); err == nil {
			for _, r := range rels.Relationships {
				target := strings.TrimPrefix(r.Target, "/")
				if !strings.HasPrefix(target, "xl/") {
					target = path.Join("xl", target)
				}
				targets[r.ID] = target
			}
		}
	}

	var shared []string
	if sstData, err := readZipMember(zr, "xl/sharedStrings.xml"); err == nil {
		var sst xlsxSST
		if err := xml.Unmarshal(sstData, &sst); err == nil {
			for _, si := range sst.Items {
				if len(si.R) == 0 {
					shared = append(shared, si.T)
					continue
				}
				var b strings.Builder
				for _, r := range si.R {
					b.WriteString(r.T)
				}
				shared = append(shared, b.String())
			}
		}
	}

	wb := &Workbook{}
	for i, s := range wbXML.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target, ok := targets[s.RID]
		if !ok {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		}
		data, err := readZipMember(zr, target)
		if err != nil {
			continue
		}
		var sd xlsxSheetData
		if err := xml.Unmarshal(data, &sd); err != nil {
			return nil, fmt.Errorf("parsing sheet %s: %w", s.Name, err)
		}

		sheet := wb.AddSheet(s.Name)
		for _, row := range sd.Rows {
			var cells []string
			for j, c := range row.Cells {
				col := j
				if c.Ref != "" {
					col = columnIndex(c.Ref)
				}
				for len(cells) < col {
					cells = append(cells, "")
				}
				cells = append(cells, cellValue(c.Type, c.Value, c.InlineStr.T, shared))
			}
			sheet.Rows = append(sheet.Rows, cells)
		}
	}
	return wb, nil
}

func cellValue(typ, value, inline string, shared []string) string {
	switch typ {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return inline
	case "b":
		if value == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return value
	}
}

// columnIndex converts the letters of a cell reference ("C7") to a zero
// based column index.
func columnIndex(ref string) int {
	idx := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		idx = idx*26 + int(r-'A'+1)
	}
	if idx == 0 {
		return 0
	}
	return idx - 1
}
