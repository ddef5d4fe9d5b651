package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaguya154/dbmodel/types"
)

func compile(t *testing.T, c *types.Condition, inject bool) (string, []any) {
	t.Helper()
	sql, args, err := New(types.DriverSQLite).Conditions(c, inject)
	require.NoError(t, err)
	return sql, args
}

func mockSqlCondition() *types.Condition {
	return types.AllOf(
		types.Leaf("id", types.OpDefault, 123),
		types.Leaf("name", types.OpDefault, "test"),
	)
}

func mockSqlComplexCondition() *types.Condition {
	return types.AnyOf(
		types.AllOf(
			types.Leaf("status", types.OpEq, "active"),
			types.Leaf("age", types.OpGt, 18),
		),
		types.AllOf(
			types.Leaf("status", types.OpEq, "pending"),
			types.Leaf("age", types.OpLt, 18),
		),
		types.Leaf("role", types.OpIn, []any{"admin", "user"}),
		types.Leaf("email", types.OpLike, "%@example.com"),
	)
}

func TestConditionsEqualityLeaves(t *testing.T) {
	sql, args := compile(t, types.AllOf(
		types.Leaf("a", types.OpDefault, 1),
		types.AnyOf(types.Leaf("b", types.OpDefault, "x"), types.Leaf("c", types.OpDefault, 2.5)),
		types.Leaf("d", types.OpDefault, "y"),
	), false)
	assert.Equal(t, "a = ? AND (b = ? OR c = ?) AND d = ?", sql)
	assert.Equal(t, []any{1, "x", 2.5, "y"}, args)
}

func TestConditionsIn(t *testing.T) {
	c := types.Leaf("id", types.OpDefault, []int{1, 2, 3})

	sql, args := compile(t, c, false)
	assert.Equal(t, "id IN (?, ?, ?)", sql)
	assert.Equal(t, []any{1, 2, 3}, args)

	sql, args = compile(t, c, true)
	assert.Equal(t, "id IN (1, 2, 3)", sql)
	assert.Empty(t, args)

	sql, _ = compile(t, types.Leaf("id", types.OpNotIn, []any{4}), false)
	assert.Equal(t, "id NOT IN (?)", sql)

	sql, args = compile(t, types.Leaf("id", types.OpDefault, []int{}), false)
	assert.Equal(t, "1=0", sql)
	assert.Empty(t, args)
}

func TestConditionsBetween(t *testing.T) {
	sql, args := compile(t, types.Leaf("age", types.OpBetween, []int{10, 20}), false)
	assert.Equal(t, "age BETWEEN ? AND ?", sql)
	assert.Equal(t, []any{10, 20}, args)

	sql, _ = compile(t, types.Leaf("age", types.OpBetween, []int{10, 20}), true)
	assert.Equal(t, "age BETWEEN 10 AND 20", sql)

	p := New(types.DriverSQLite)
	for _, v := range []any{[]int{1}, []int{1, 2, 3}, 5} {
		_, _, err := p.Conditions(types.Leaf("age", types.OpBetween, v), false)
		require.Error(t, err)
		assert.True(t, types.IsInputError(err))
	}
}

func TestConditionsBoolAndNull(t *testing.T) {
	cases := []struct {
		key  string
		val  any
		want string
	}{
		{"status", false, "status IS FALSE"},
		{"status", true, "status IS TRUE"},
		{"status", nil, "status IS NULL"},
		{"status !=", nil, "status IS NOT NULL"},
		{"status !", true, "status IS NOT TRUE"},
		{"status <>", false, "status IS NOT FALSE"},
		{"status >=", nil, "status IS NULL"},
		{"status LIKE", true, "status IS TRUE"},
		{"status IS NOT", nil, "status IS NOT NULL"},
	}
	for _, tc := range cases {
		c, err := types.ParseConditions(types.W(tc.key, tc.val), "id")
		require.NoError(t, err)
		sql, args := compile(t, c, false)
		assert.Equal(t, tc.want, sql, tc.key)
		assert.Empty(t, args, tc.key)
	}
}

func TestConditionsOperatorKeys(t *testing.T) {
	c, err := types.ParseConditions(types.W(
		"age >=", 18,
		"name LIKE", "J%",
		"role !", "guest",
		"email NOT LIKE", "%@spam.com",
	), "id")
	require.NoError(t, err)
	sql, args := compile(t, c, false)
	assert.Equal(t, "age >= ? AND name LIKE ? AND role != ? AND email NOT LIKE ?", sql)
	assert.Equal(t, []any{18, "J%", "guest", "%@spam.com"}, args)
}

func TestConditionsGroupKeys(t *testing.T) {
	c, err := types.ParseConditions(types.W(
		"a", 1,
		"OR", types.W("b", 2, "c", 3),
		"NOT", types.W("d", 4),
		"AND NOT", types.W("e", 5, "f", 6),
	), "id")
	require.NoError(t, err)
	sql, args := compile(t, c, false)
	assert.Equal(t, "a = ? OR (b = ? OR c = ?) AND NOT d = ? AND NOT (e = ? AND f = ?)", sql)
	assert.Equal(t, []any{1, 2, 3, 4, 5, 6}, args)
}

func TestConditionsRaw(t *testing.T) {
	c, err := types.ParseConditions(types.W(
		"0", "created_at > NOW() - INTERVAL 1 DAY",
		"status", "active",
		"OR", "legacy = 1",
	), "id")
	require.NoError(t, err)
	sql, args := compile(t, c, false)
	assert.Equal(t, "created_at > NOW() - INTERVAL 1 DAY AND status = ? OR legacy = 1", sql)
	assert.Equal(t, []any{"active"}, args)
}

func TestConditionsInject(t *testing.T) {
	c, err := types.ParseConditions(types.W("users.id", "posts.user_id", "posts.flag", true), "")
	require.NoError(t, err)
	sql, args := compile(t, c, true)
	assert.Equal(t, "users.id = posts.user_id AND posts.flag IS TRUE", sql)
	assert.Empty(t, args)
}

func TestSelect(t *testing.T) {
	spec := types.QuerySpec{
		Fields: []string{"users.id", "users.name", "COUNT(posts.id) AS posts"},
		Table:  "users",
		Joins: []types.Join{{
			Type:  "left",
			Table: "posts",
			On:    types.Leaf("posts.user_id", types.OpDefault, "users.id"),
		}},
		Hints:      []types.Hint{{Columns: []string{"idx_name"}}},
		Conditions: types.Leaf("users.status", types.OpDefault, "active"),
		Group:      []string{"users.id"},
		Having:     types.Leaf("posts", types.OpGt, 1),
		Order:      []string{"users.name DESC"},
		Limit:      10,
		Offset:     20,
	}

	stmt, err := New(types.DriverMySQL).Select(spec, false)
	require.NoError(t, err)
	assert.Equal(t, "SELECT users.id, users.name, COUNT(posts.id) AS posts FROM users USE INDEX (idx_name) "+
		"LEFT JOIN posts ON posts.user_id = users.id WHERE users.status = ? GROUP BY users.id HAVING posts > ? "+
		"ORDER BY users.name DESC LIMIT 10 OFFSET 20", stmt.SQL)
	assert.Equal(t, []any{"active", 1}, stmt.Args)

	stmt, err = New(types.DriverSQLite).Select(spec, false)
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, "USE INDEX")

	stmt, err = New(types.DriverPostgreSQL).Select(spec, true)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS count FROM users LEFT JOIN posts ON posts.user_id = users.id "+
		"WHERE users.status = ? GROUP BY users.id HAVING posts > ? LIMIT 10 OFFSET 20", stmt.SQL)
}

func TestSelectRequiresTable(t *testing.T) {
	_, err := New(types.DriverSQLite).Select(types.QuerySpec{}, false)
	require.Error(t, err)
	assert.True(t, types.IsConfigurationError(err))
}

func TestSelectOffsetOnly(t *testing.T) {
	spec := types.QuerySpec{Table: "t", Offset: 5}
	stmt, _ := New(types.DriverSQLite).Select(spec, false)
	assert.Equal(t, "SELECT * FROM t LIMIT -1 OFFSET 5", stmt.SQL)
	stmt, _ = New(types.DriverPostgreSQL).Select(spec, false)
	assert.Equal(t, "SELECT * FROM t OFFSET 5", stmt.SQL)
}

func TestInsert(t *testing.T) {
	rows := [][]any{{"a", 1}, {"b", 2}}
	stmt, err := New(types.DriverSQLite).Insert("users", []string{"name", "age"}, rows, InsertOptions{})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (name, age) VALUES (?, ?), (?, ?)", stmt.SQL)
	assert.Equal(t, []any{"a", 1, "b", 2}, stmt.Args)

	stmt, err = New(types.DriverMySQL).Insert("users", []string{"name"}, [][]any{{"a"}}, InsertOptions{Priority: "low", Ignore: true})
	require.NoError(t, err)
	assert.Equal(t, "INSERT LOW_PRIORITY IGNORE INTO users (name) VALUES (?)", stmt.SQL)

	stmt, err = New(types.DriverPostgreSQL).Insert("users", []string{"name"}, [][]any{{"a"}}, InsertOptions{Returning: "id", Delayed: true})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (name) VALUES (?) RETURNING id", stmt.SQL)

	_, err = New(types.DriverSQLite).Insert("users", []string{"name", "age"}, [][]any{{"a"}}, InsertOptions{})
	assert.True(t, types.IsInputError(err))
}

func TestReplace(t *testing.T) {
	stmt, err := New(types.DriverMySQL).Replace("users", []string{"id", "name"}, []any{1, "a"}, InsertOptions{Delayed: true})
	require.NoError(t, err)
	assert.Equal(t, "REPLACE DELAYED INTO users (id, name) VALUES (?, ?)", stmt.SQL)

	_, err = New(types.DriverPostgreSQL).Replace("users", []string{"id"}, []any{1}, InsertOptions{})
	assert.True(t, types.IsConfigurationError(err))
}

func TestUpdateAndDelete(t *testing.T) {
	set := types.NewRecord().Set("name", "b").Set("updated_at", "2024-01-02 03:04:05")

	stmt, err := New(types.DriverSQLite).Update("users", set, "id", 7)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = ?, updated_at = ? WHERE id = ?", stmt.SQL)
	assert.Equal(t, []any{"b", "2024-01-02 03:04:05", 7}, stmt.Args)

	stmt, err = New(types.DriverMySQL).Update("users", set, "id", 7)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = ?, updated_at = ? WHERE id = ? LIMIT 1", stmt.SQL)

	_, err = New(types.DriverMySQL).Update("users", types.NewRecord(), "id", 7)
	assert.True(t, types.IsInputError(err))

	stmt, err = New(types.DriverMySQL).Delete("users", "id", 7)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users WHERE id = ? LIMIT 1", stmt.SQL)
	stmt, _ = New(types.DriverPostgreSQL).Delete("users", "id", 7)
	assert.Equal(t, "DELETE FROM users WHERE id = ?", stmt.SQL)
}

func TestExplainAndPreview(t *testing.T) {
	spec := types.QuerySpec{Table: "users", Conditions: types.AllOf(
		types.Leaf("name", types.OpDefault, "O'Neil"),
		types.Leaf("age", types.OpGt, 30),
		types.Leaf("active", types.OpDefault, true),
	)}
	stmt, err := New(types.DriverSQLite).Explain(spec)
	require.NoError(t, err)
	assert.Equal(t, "EXPLAIN QUERY PLAN SELECT * FROM users WHERE name = ? AND age > ? AND active IS TRUE", stmt.SQL)

	stmt, _ = New(types.DriverMySQL).Select(spec, false)
	assert.Equal(t, "SELECT * FROM users WHERE name = 'O''Neil' AND age > 30 AND active IS TRUE", Preview(stmt))
}

func TestPreviewSkipsQuotedPlaceholders(t *testing.T) {
	spec := types.QuerySpec{Table: "users", Conditions: types.AllOf(
		types.RawCondition("note <> 'why?'"),
		types.Leaf("id", types.OpDefault, int64(3)),
	)}
	stmt, err := New(types.DriverMySQL).Select(spec, false)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE note <> 'why?' AND id = ?", stmt.SQL)
	assert.Equal(t, "SELECT * FROM users WHERE note <> 'why?' AND id = 3", Preview(stmt))

	stmt = types.Statement{SQL: "SELECT 'it''s ?' AS a, ? AS b", Args: []any{"x"}}
	assert.Equal(t, "SELECT 'it''s ?' AS a, 'x' AS b", Preview(stmt))
}

func BenchmarkSqlParseCond(b *testing.B) {
	p := New(types.DriverMySQL)
	where := mockSqlCondition()

	b.Run("Conditions", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := p.Conditions(where, false); err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
		}
	})

	b.Run("Select", func(b *testing.B) {
		spec := types.QuerySpec{Table: "users", Conditions: where}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := p.Select(spec, false); err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
		}
	})
}

func BenchmarkSqlParseComplexCond(b *testing.B) {
	p := New(types.DriverMySQL)
	where := mockSqlComplexCondition()

	b.Run("Conditions", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := p.Conditions(where, false); err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
		}
	})

	b.Run("Inject", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := p.Conditions(where, true); err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
		}
	})
}
