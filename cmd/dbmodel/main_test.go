package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaguya154/dbmodel"
	"github.com/Kaguya154/dbmodel/types"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseWhere(t *testing.T) {
	cond, err := parseWhere(`{"status":"active","age >=":18,"OR":{"a":1,"b":2}}`)
	require.NoError(t, err)
	require.Len(t, cond.Exprs, 3)
	assert.Equal(t, "status", cond.Exprs[0].Field)
	assert.Equal(t, int64(18), cond.Exprs[1].Value)
	assert.Equal(t, types.Or, cond.Exprs[2].Logic)

	cond, err = parseWhere("  ")
	require.NoError(t, err)
	assert.Nil(t, cond)

	_, err = parseWhere(`{"status":`)
	assert.True(t, types.IsInputError(err))
}

func TestSQLCommand(t *testing.T) {
	out, err := run(t, "sql", "--driver", "mysql", "-t", "users",
		"--where", `{"status":"active","age >=":18}`, "--order", "id DESC", "--limit", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "SELECT * FROM users WHERE status = ? AND age >= ? ORDER BY id DESC LIMIT 5", lines[0])
	assert.JSONEq(t, `["active",18]`, lines[1])

	out, err = run(t, "sql", "--driver", "sqlite", "-t", "users", "--format", "preview", "--count",
		"--where", `{"name LIKE":"a%"}`)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS count FROM users WHERE name LIKE 'a%'", strings.TrimSpace(out))

	out, err = run(t, "sql", "--format", "json", "--where", `{"status":"active"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "$eq")

	_, err = run(t, "sql", "--driver", "oracle", "-t", "users")
	assert.True(t, types.IsConfigurationError(err))
}

func TestCommandsAgainstSQLite(t *testing.T) {
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "app.db")

	conn, err := dbmodel.Open(types.DBConfig{Driver: "sqlite3", DSN: dsn})
	require.NoError(t, err)
	ctx := context.Background()
	_, err = conn.Execute(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)")
	require.NoError(t, err)
	_, err = conn.Execute(ctx, "INSERT INTO users (name) VALUES (?), (?)", "a", "b")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	cfgPath := filepath.Join(dir, "dbmodel.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
default: main
datasources:
  main:
    driver: sqlite3
    dsn: "`+dsn+`"
    cache: true
    columns: false
logging:
  level: error
`), 0o600))

	out, err := run(t, "query", "-c", cfgPath, "-t", "users", "--where", `{"name":"b"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"name":"b"}`, strings.TrimSpace(out))

	out, err = run(t, "query", "-c", cfgPath, "-t", "users", "--mode", "list", "--fields", "id,name")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Contains(t, out, `"value":"a"`)

	out, err = run(t, "get", "1", "-c", cfgPath, "-t", "users")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"a"}`, strings.TrimSpace(out))

	_, err = run(t, "get", "9", "-c", cfgPath, "-t", "users")
	assert.Error(t, err)

	out, err = run(t, "count", "-c", cfgPath, "-t", "users")
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(out))

	out, err = run(t, "explain", "-c", cfgPath, "-t", "users", "--where", `{"id":1}`)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = run(t, "query", "-c", cfgPath)
	assert.True(t, types.IsConfigurationError(err))
}
