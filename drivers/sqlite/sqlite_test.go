package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaguya154/dbmodel"
	"github.com/Kaguya154/dbmodel/drivers/sqlite"
	"github.com/Kaguya154/dbmodel/model"
	"github.com/Kaguya154/dbmodel/types"
)

func init() {
	// 注册驱动
	_ = dbmodel.RegisterDriver(sqlite.DriverName, sqlite.GetDriver())
}

func openMemory(t *testing.T) types.Conn {
	t.Helper()
	conn, err := dbmodel.Open(types.DBConfig{Driver: sqlite.DriverName, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_, err = conn.Execute(context.Background(), "CREATE TABLE user (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, age INT)")
	require.NoError(t, err)
	return conn
}

func TestSQLiteDriver_CRUD(t *testing.T) {
	ctx := context.Background()
	conn := openMemory(t)
	assert.Equal(t, types.DriverSQLite, conn.Kind())

	id, err := conn.Execute(ctx, "INSERT INTO user (name, age) VALUES (?, ?)", "Tom", 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	rows, err := conn.Fetch(ctx, "SELECT * FROM user WHERE name = ?", "Tom")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(20), rows[0].Int("age"))

	n, err := conn.Execute(ctx, "UPDATE user SET age = ? WHERE name = ?", 21, "Tom")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = conn.Execute(ctx, "DELETE FROM user WHERE name = ?", "Tom")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// 内存库只允许单连接，否则事务外的查询会看到另一个空库
func TestSQLiteDriver_Tx(t *testing.T) {
	ctx := context.Background()
	conn := openMemory(t)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	id, err := tx.Execute(ctx, "INSERT INTO user (name, age) VALUES (?, ?)", "Alice", 25)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	rows, err := tx.Fetch(ctx, "SELECT name FROM user WHERE id = ?", id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].Get("name"))
	require.NoError(t, tx.Commit())

	rows, err = conn.Fetch(ctx, "SELECT name FROM user")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSQLiteDriver_Rollback(t *testing.T) {
	ctx := context.Background()
	conn := openMemory(t)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Execute(ctx, "INSERT INTO user (name) VALUES (?)", "Bob")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	rows, err := conn.Fetch(ctx, "SELECT * FROM user")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteDriver_Model(t *testing.T) {
	ctx := context.Background()
	conn := openMemory(t)
	cols := types.IDOnlyColumns()
	m, err := dbmodel.NewModel(conn, "user", model.Definition{Columns: &cols})
	require.NoError(t, err)

	m.Set("name", "Tom").Set("age", 20)
	id, err := m.Commit(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Execute(ctx, types.ModeNone, id))
	assert.Equal(t, "Tom", m.Get("name"))

	q := dbmodel.Cond().Or(dbmodel.Cond().Eq("name", "Tom"), dbmodel.Cond().Gt("age", 30)).Build()
	require.NoError(t, m.Execute(ctx, types.ModeAll, q))
	assert.Equal(t, 1, m.Len())
}
