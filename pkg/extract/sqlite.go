package extract

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite exports every user table of a database as TSV. With
// ViaTableExport the rows pass through an in-memory Workbook first, which
// cuts sheet names to the spreadsheet limit and reformats date columns.
type SQLite struct {
	ViaTableExport bool
}

func (*SQLite) Name() string         { return "sqlite" }
func (*SQLite) Extensions() []string { return []string{".db", ".sqlite", ".sqlite3"} }

// OutputSuffix depends on the export route.
func (s *SQLite) OutputSuffix() string {
	if s.ViaTableExport {
		return "_db_via_table"
	}
	return "_db_direct"
}

// Extract returns one "<table>.tsv" part per table, ordered by name.
func (s *SQLite) Extract(ctx context.Context, p string) ([]Content, error) {
	db, err := openReadOnly(p)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tables, err := listTables(ctx, db)
	if err != nil {
		return nil, err
	}

	wb := &Workbook{}
	var direct []Content
	for _, table := range tables {
		t, err := readTable(ctx, db, table)
		if err != nil {
			return nil, fmt.Errorf("reading table %s: %w", table, err)
		}
		if s.ViaTableExport {
			sheet := wb.AddSheet(table)
			sheet.Rows = t.sheetRows()
			continue
		}
		direct = append(direct, Content{
			Name: SafePartName(table) + ".tsv",
			Text: t.tsv(),
		})
	}
	if s.ViaTableExport {
		return wb.TSV(), nil
	}
	return direct, nil
}

func openReadOnly(p string) (*sql.DB, error) {
	dsn := "file:" + (&url.URL{Path: p}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

type table struct {
	columns  []string
	dateCols []bool
	rows     [][]any
}

func readTable(ctx context.Context, db *sql.DB, name string) (*table, error) {
	query := `SELECT * FROM "` + strings.ReplaceAll(name, `"`, `""`) + `"`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := &table{columns: cols, dateCols: make([]bool, len(cols))}
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			decl := strings.ToUpper(ct.DatabaseTypeName())
			t.dateCols[i] = strings.Contains(decl, "DATE") || strings.Contains(decl, "TIME")
		}
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		t.rows = append(t.rows, vals)
	}
	return t, rows.Err()
}

func (t *table) tsv() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.columns, "\t"))
	b.WriteByte('\n')
	for _, row := range t.rows {
		for i, v := range row {
			if i > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(tsvCell(cellText(v)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (t *table) sheetRows() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, append([]string(nil), t.columns...))
	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if t.dateCols[i] {
				cells[i] = ConvertTimestamp(v)
			} else {
				cells[i] = cellText(v)
			}
		}
		out = append(out, cells)
	}
	return out
}
