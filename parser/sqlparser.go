package parser

import (
	"strconv"
	"strings"

	"github.com/Kaguya154/dbmodel/types"
)

// SQLParser 将条件树和 QuerySpec 组装为带 "?" 占位符的 SQL，方言差异由 Kind 决定。
// 标识符不做引用，调用方只能传入可信的列名和表名。
type SQLParser struct {
	Kind types.DriverKind
}

// New 创建指定方言的解析器
func New(kind types.DriverKind) *SQLParser {
	return &SQLParser{Kind: kind}
}

func (p *SQLParser) mysql() bool { return p.Kind == types.DriverMySQL }

// Conditions 编译条件树，返回片段与按出现顺序排列的绑定值。
// inject 为 true 时值以字面量内联（用于 JOIN ON 与预览），不做任何转义。
func (p *SQLParser) Conditions(c *types.Condition, inject bool) (string, []any, error) {
	var sb strings.Builder
	var args []any
	if err := buildWhere(&sb, c, inject, &args, false); err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

// buildWhere 递归构建条件片段
func buildWhere(sb *strings.Builder, c *types.Condition, inject bool, args *[]any, nested bool) error {
	if c.Empty() {
		return nil
	}
	if c.Not {
		sb.WriteString("NOT ")
	}
	switch c.Kind {
	case types.CondRaw:
		sb.WriteString(strings.TrimSpace(c.Raw))
		if !inject {
			*args = append(*args, c.Args...)
		}
		return nil
	case types.CondLeaf:
		return buildLeaf(sb, c, inject, args)
	}

	children := make([]*types.Condition, 0, len(c.Exprs))
	for _, e := range c.Exprs {
		if !e.Empty() {
			children = append(children, e)
		}
	}
	// 多个子节点且处于嵌套或否定位置时才加括号
	paren := len(children) > 1 && (nested || c.Not)
	if paren {
		sb.WriteByte('(')
	}
	logic := c.Logic
	if logic == "" {
		logic = types.And
	}
	for i, e := range children {
		if i > 0 {
			link := e.Link
			if link == "" {
				link = logic
			}
			sb.WriteByte(' ')
			sb.WriteString(string(link))
			sb.WriteByte(' ')
		}
		if err := buildWhere(sb, e, inject, args, true); err != nil {
			return err
		}
	}
	if paren {
		sb.WriteByte(')')
	}
	return nil
}

func buildLeaf(sb *strings.Builder, c *types.Condition, inject bool, args *[]any) error {
	if c.Field == "" {
		return types.NewInputError("conditions", "condition is missing a column")
	}
	if !c.Op.Valid() {
		return types.NewInputError("conditions", "unsupported operator %q", c.Op)
	}
	if c.Op == types.OpBetween {
		list, ok := types.ValueList(c.Value)
		if !ok || len(list) != 2 {
			return types.NewInputError("between", "Between expects 2 values")
		}
		sb.WriteString(c.Field)
		sb.WriteString(" BETWEEN ")
		writeValue(sb, list[0], inject, args)
		sb.WriteString(" AND ")
		writeValue(sb, list[1], inject, args)
		return nil
	}

	if list, ok := types.ValueList(c.Value); ok {
		if len(list) == 0 {
			// 空列表恒为假
			sb.WriteString("1=0")
			return nil
		}
		sb.WriteString(c.Field)
		if c.Op.Negated() && c.Op != types.OpIsNot {
			sb.WriteString(" NOT IN (")
		} else {
			sb.WriteString(" IN (")
		}
		for i, v := range list {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, v, inject, args)
		}
		sb.WriteByte(')')
		return nil
	}

	if lit, ok := boolLiteral(c.Value); ok {
		sb.WriteString(c.Field)
		if c.Op != types.OpDefault && c.Op.Negated() {
			sb.WriteString(" IS NOT ")
		} else {
			sb.WriteString(" IS ")
		}
		sb.WriteString(lit)
		return nil
	}

	op := c.Op
	switch op {
	case types.OpDefault:
		op = types.OpEq
	case types.OpBang:
		op = types.OpNe
	case types.OpIn:
		op = types.OpEq
	case types.OpNotIn:
		op = types.OpNe
	}
	sb.WriteString(c.Field)
	sb.WriteByte(' ')
	sb.WriteString(string(op))
	sb.WriteByte(' ')
	writeValue(sb, c.Value, inject, args)
	return nil
}

func boolLiteral(v any) (string, bool) {
	switch b := v.(type) {
	case nil:
		return "NULL", true
	case bool:
		if b {
			return "TRUE", true
		}
		return "FALSE", true
	}
	return "", false
}

func writeValue(sb *strings.Builder, v any, inject bool, args *[]any) {
	if !inject {
		sb.WriteByte('?')
		*args = append(*args, v)
		return
	}
	if lit, ok := boolLiteral(v); ok {
		sb.WriteString(lit)
		return
	}
	sb.WriteString(types.ScalarString(v))
}

// Select 组装 SELECT；count 为 true 时投影固定为 COUNT(*) AS count。
func (p *SQLParser) Select(spec types.QuerySpec, count bool) (types.Statement, error) {
	if strings.TrimSpace(spec.Table) == "" {
		return types.Statement{}, types.NewConfigurationError("select", "you must set the table")
	}
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	switch {
	case count:
		sb.WriteString("COUNT(*) AS count")
	case len(spec.Fields) == 0:
		sb.WriteByte('*')
	default:
		sb.WriteString(strings.Join(spec.Fields, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(spec.Table)

	if p.mysql() {
		for _, h := range spec.Hints {
			if hint := hintClause(h); hint != "" {
				sb.WriteByte(' ')
				sb.WriteString(hint)
			}
		}
	}

	for _, j := range spec.Joins {
		if raw := strings.TrimSpace(j.Raw); raw != "" {
			sb.WriteByte(' ')
			sb.WriteString(raw)
			continue
		}
		if j.Table == "" {
			return types.Statement{}, types.NewConfigurationError("select", "join is missing a table")
		}
		sb.WriteByte(' ')
		sb.WriteString(j.Keyword())
		sb.WriteByte(' ')
		sb.WriteString(j.Table)
		if !j.On.Empty() {
			on, _, err := p.Conditions(j.On, true)
			if err != nil {
				return types.Statement{}, err
			}
			sb.WriteString(" ON ")
			sb.WriteString(on)
		}
	}

	if !spec.Conditions.Empty() {
		where, whereArgs, err := p.Conditions(spec.Conditions, false)
		if err != nil {
			return types.Statement{}, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = append(args, whereArgs...)
	}
	if len(spec.Group) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(spec.Group, ", "))
	}
	if !spec.Having.Empty() {
		having, havingArgs, err := p.Conditions(spec.Having, false)
		if err != nil {
			return types.Statement{}, err
		}
		sb.WriteString(" HAVING ")
		sb.WriteString(having)
		args = append(args, havingArgs...)
	}
	if len(spec.Order) > 0 && !count {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(spec.Order, ", "))
	}
	p.writeLimit(&sb, spec.Limit, spec.Offset)
	return types.Statement{SQL: sb.String(), Args: args}, nil
}

func (p *SQLParser) writeLimit(sb *strings.Builder, limit, offset int) {
	if limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(limit))
	} else if offset > 0 {
		// MySQL 与 SQLite 的 OFFSET 必须跟在 LIMIT 之后
		switch p.Kind {
		case types.DriverMySQL:
			sb.WriteString(" LIMIT 18446744073709551615")
		case types.DriverSQLite:
			sb.WriteString(" LIMIT -1")
		}
	}
	if offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(offset))
	}
}

func hintClause(h types.Hint) string {
	if len(h.Columns) > 0 {
		return h.Keyword() + " (" + strings.Join(h.Columns, ", ") + ")"
	}
	t := strings.TrimSpace(h.Type)
	if t == "" {
		return ""
	}
	if strings.Contains(strings.ToUpper(t), " INDEX") {
		return t
	}
	return "USE INDEX (" + t + ")"
}

// Explain 返回查询计划语句
func (p *SQLParser) Explain(spec types.QuerySpec) (types.Statement, error) {
	stmt, err := p.Select(spec, false)
	if err != nil {
		return stmt, err
	}
	if p.Kind == types.DriverSQLite {
		stmt.SQL = "EXPLAIN QUERY PLAN " + stmt.SQL
	} else {
		stmt.SQL = "EXPLAIN " + stmt.SQL
	}
	return stmt, nil
}

// InsertOptions 是 INSERT/REPLACE 的方言修饰
type InsertOptions struct {
	// Priority 为 LOW 或 HIGH，仅 MySQL
	Priority string
	// Delayed 仅 MySQL
	Delayed bool
	Ignore  bool
	// Returning 非空时 PostgreSQL 追加 RETURNING 列
	Returning string
}

func (o InsertOptions) modifier() string {
	switch strings.ToUpper(strings.TrimSpace(o.Priority)) {
	case "LOW":
		return "LOW_PRIORITY"
	case "HIGH":
		return "HIGH_PRIORITY"
	}
	if o.Delayed {
		return "DELAYED"
	}
	return ""
}

// Insert 组装单行或多行 INSERT，每行的值数量必须与列数一致。
func (p *SQLParser) Insert(table string, cols []string, rows [][]any, opts InsertOptions) (types.Statement, error) {
	if strings.TrimSpace(table) == "" {
		return types.Statement{}, types.NewConfigurationError("insert", "you must set the table")
	}
	if len(rows) == 0 {
		return types.Statement{}, types.NewInputError("insert", "no rows to insert")
	}
	var sb strings.Builder
	sb.WriteString("INSERT ")
	if p.mysql() {
		if m := opts.modifier(); m != "" {
			sb.WriteString(m)
			sb.WriteByte(' ')
		}
		if opts.Ignore {
			sb.WriteString("IGNORE ")
		}
	} else if p.Kind == types.DriverSQLite && opts.Ignore {
		sb.WriteString("OR IGNORE ")
	}
	sb.WriteString("INTO ")
	sb.WriteString(table)

	args, err := p.writeValues(&sb, "insert", cols, rows)
	if err != nil {
		return types.Statement{}, err
	}
	if p.Kind == types.DriverPostgreSQL {
		if opts.Ignore {
			sb.WriteString(" ON CONFLICT DO NOTHING")
		}
		if opts.Returning != "" {
			sb.WriteString(" RETURNING ")
			sb.WriteString(opts.Returning)
		}
	}
	return types.Statement{SQL: sb.String(), Args: args}, nil
}

// Replace 组装 REPLACE，PostgreSQL 不支持。
func (p *SQLParser) Replace(table string, cols []string, row []any, opts InsertOptions) (types.Statement, error) {
	if p.Kind == types.DriverPostgreSQL {
		return types.Statement{}, types.NewConfigurationError("replace", "REPLACE is not supported by %s", p.Kind)
	}
	if strings.TrimSpace(table) == "" {
		return types.Statement{}, types.NewConfigurationError("replace", "you must set the table")
	}
	var sb strings.Builder
	sb.WriteString("REPLACE ")
	if p.mysql() {
		// REPLACE 只接受 LOW_PRIORITY 或 DELAYED
		if m := opts.modifier(); m != "" && m != "HIGH_PRIORITY" {
			sb.WriteString(m)
			sb.WriteByte(' ')
		}
	}
	sb.WriteString("INTO ")
	sb.WriteString(table)
	args, err := p.writeValues(&sb, "replace", cols, [][]any{row})
	if err != nil {
		return types.Statement{}, err
	}
	return types.Statement{SQL: sb.String(), Args: args}, nil
}

func (p *SQLParser) writeValues(sb *strings.Builder, op string, cols []string, rows [][]any) ([]any, error) {
	if len(cols) == 0 {
		if len(rows) > 1 {
			return nil, types.NewInputError(op, "cannot insert multiple rows without columns")
		}
		if p.mysql() {
			sb.WriteString(" () VALUES ()")
		} else {
			sb.WriteString(" DEFAULT VALUES")
		}
		return nil, nil
	}
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")
	args := make([]any, 0, len(cols)*len(rows))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, types.NewInputError(op, "row %d has %d values, expected %d", i, len(row), len(cols))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('?')
			args = append(args, v)
		}
		sb.WriteByte(')')
	}
	return args, nil
}

// Update 组装按主键更新单行的 UPDATE，SET 顺序与 set 的列顺序一致。
func (p *SQLParser) Update(table string, set *types.Record, idColumn string, id any) (types.Statement, error) {
	if strings.TrimSpace(table) == "" {
		return types.Statement{}, types.NewConfigurationError("update", "you must set the table")
	}
	if set.Len() == 0 {
		return types.Statement{}, types.NewInputError("update", "nothing to update")
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	args := make([]any, 0, set.Len()+1)
	for i, col := range set.Columns() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" = ?")
		args = append(args, set.Get(col))
	}
	p.writeByID(&sb, idColumn)
	args = append(args, id)
	return types.Statement{SQL: sb.String(), Args: args}, nil
}

// Delete 组装按主键删除单行的 DELETE
func (p *SQLParser) Delete(table string, idColumn string, id any) (types.Statement, error) {
	if strings.TrimSpace(table) == "" {
		return types.Statement{}, types.NewConfigurationError("delete", "you must set the table")
	}
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)
	p.writeByID(&sb, idColumn)
	return types.Statement{SQL: sb.String(), Args: []any{id}}, nil
}

func (p *SQLParser) writeByID(sb *strings.Builder, idColumn string) {
	sb.WriteString(" WHERE ")
	sb.WriteString(idColumn)
	sb.WriteString(" = ?")
	if p.mysql() {
		sb.WriteString(" LIMIT 1")
	}
}

// Preview 将语句中的占位符替换为字面量，仅用于日志与调试输出。
func Preview(stmt types.Statement) string {
	if len(stmt.Args) == 0 {
		return stmt.SQL
	}
	var sb strings.Builder
	n := 0
	quoted := false
	for i := 0; i < len(stmt.SQL); i++ {
		ch := stmt.SQL[i]
		// 单引号内的 ? 属于字面量；'' 转义会连续切换两次
		if ch == '\'' {
			quoted = !quoted
		}
		if ch != '?' || quoted || n >= len(stmt.Args) {
			sb.WriteByte(ch)
			continue
		}
		v := stmt.Args[n]
		n++
		if lit, ok := boolLiteral(v); ok {
			sb.WriteString(lit)
			continue
		}
		switch v.(type) {
		case string, []byte:
			sb.WriteByte('\'')
			sb.WriteString(strings.ReplaceAll(types.ScalarString(v), "'", "''"))
			sb.WriteByte('\'')
		default:
			sb.WriteString(types.ScalarString(v))
		}
	}
	return sb.String()
}
