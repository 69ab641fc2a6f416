package extract

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDatabase(t *testing.T, stmts ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "app data.db")
	db, err := sql.Open("sqlite", p)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return p
}

func TestSQLite_Direct(t *testing.T) {
	p := buildDatabase(t,
		`CREATE TABLE users (id INTEGER, name TEXT, score REAL, avatar BLOB, note TEXT)`,
		`INSERT INTO users VALUES (1, 'Ali', 2.0, x'00ff', NULL)`,
		`INSERT INTO users VALUES (2, 'سارة', 0.5, NULL, 'a	b')`,
		`CREATE TABLE events (kind TEXT)`,
		`INSERT INTO events VALUES ('login')`,
	)

	contents, err := (&SQLite{}).Extract(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, contents, 2)

	assert.Equal(t, Content{Name: "events.tsv", Text: "kind\nlogin\n"}, contents[0])
	assert.Equal(t, "users.tsv", contents[1].Name)
	assert.Equal(t,
		"id\tname\tscore\tavatar\tnote\n"+
			"1\tAli\t2.0\t<binary data>\tNULL\n"+
			"2\tسارة\t0.5\tNULL\ta b\n",
		contents[1].Text)
}

func TestSQLite_ViaTableExport(t *testing.T) {
	longName := "a_table_name_longer_than_thirty_one_characters"
	p := buildDatabase(t,
		`CREATE TABLE `+longName+` (created DATETIME, stamp TIMESTAMP, label TEXT)`,
		`INSERT INTO `+longName+` VALUES ('2024-03-09 14:05:07', 0, 'x')`,
		`INSERT INTO `+longName+` VALUES ('not a date', NULL, 'y')`,
	)

	producer := &SQLite{ViaTableExport: true}
	assert.Equal(t, "_db_via_table", producer.OutputSuffix())

	contents, err := producer.Extract(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	assert.Equal(t, longName[:MaxSheetNameLength]+".tsv", contents[0].Name)
	lines := strings.Split(strings.TrimSuffix(contents[0].Text, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "created\tstamp\tlabel", lines[0])
	assert.Equal(t, "09/03/2024 2:05:07 م\t01/01/1970 12:00:00 ص\tx", lines[1])
	assert.Equal(t, "not a date\tNULL\ty", lines[2])
}

func TestSQLite_NoTables(t *testing.T) {
	p := buildDatabase(t, `PRAGMA user_version = 1`)

	contents, err := (&SQLite{}).Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, contents)
}
