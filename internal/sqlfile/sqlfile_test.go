package sqlfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

var stmts = []core.Statement{
	{Name: "users", SourceFile: "users.sql", RawContent: "CREATE TABLE users (id int)"},
	{Name: "active", SourceFile: "users.sql", RawContent: "-- active users only\nCREATE VIEW active AS SELECT * FROM users"},
	{Name: "posts", SourceFile: "posts.sql", RawContent: "  CREATE TABLE posts (user_id int REFERENCES users);  "},
}

func TestFormat_Plain(t *testing.T) {
	got := Format(stmts, Options{})
	want := `CREATE TABLE users (id int);

-- active users only
CREATE VIEW active AS SELECT * FROM users;

CREATE TABLE posts (user_id int REFERENCES users);
`
	assert.Equal(t, want, got)
}

func TestFormat_TrailingLineComment(t *testing.T) {
	got := Format([]core.Statement{
		{Name: "a", SourceFile: "a.sql", RawContent: "CREATE TABLE a (id int) -- parent table"},
		{Name: "b", SourceFile: "a.sql", RawContent: "CREATE TABLE b (note text DEFAULT 'x--y')"},
	}, Options{})
	want := `CREATE TABLE a (id int) -- parent table
;

CREATE TABLE b (note text DEFAULT 'x--y')
;
`
	assert.Equal(t, want, got)
}

func TestFormat_HeaderAndFileComments(t *testing.T) {
	got := Format(stmts, Options{
		Header:       true,
		FileComments: true,
		Source:       "schema",
		Dialect:      core.DialectPostgres,
	})
	want := `-- Generated by schemamerge
-- Source: schema
-- Dialect: postgresql
-- Statements: 3

-- File: users.sql
CREATE TABLE users (id int);

-- active users only
CREATE VIEW active AS SELECT * FROM users;

-- File: posts.sql
CREATE TABLE posts (user_id int REFERENCES users);
`
	assert.Equal(t, want, got)
}

func TestFormat_FileCommentOnReturn(t *testing.T) {
	interleaved := []core.Statement{stmts[0], stmts[2], stmts[1]}
	got := Format(interleaved, Options{FileComments: true})
	assert.Equal(t, 2, bytes.Count([]byte(got), []byte("-- File: users.sql")))
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(nil, Options{}))
	assert.Equal(t, "-- Generated by schemamerge\n-- Statements: 0\n", Format(nil, Options{Header: true}))
}

func TestWrite_Stdout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Stdout, "x;\n"))
	require.NoError(t, Write(&buf, "", "y;\n"))
	assert.Equal(t, "x;\ny;\n", buf.String())
}

func TestWrite_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "schema.sql")

	require.NoError(t, Write(nil, path, "first;\n"))
	require.NoError(t, Write(nil, path, "second;\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second;\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}
