package model

import (
	"context"
	"strconv"
	"strings"

	"github.com/Kaguya154/dbmodel/metrics"
	"github.com/Kaguya154/dbmodel/parser"
	"github.com/Kaguya154/dbmodel/types"
)

// query 是一次 Execute 解析参数后的结果
type query struct {
	spec     types.QuerySpec
	cacheKey string
	none     bool
}

// Execute 恢复构造时的查询状态，应用参数并加载结果集。
//
// args 最多一个：主键值（整数或纯数字字符串）、QuerySpec、Params、Where、
// *Condition 或 *CondBuilder。没有参数时 ModeNone 不执行查询，其他模式查询全部行。
func (m *Model) Execute(ctx context.Context, mode types.QueryMode, args ...any) error {
	m.reset(mode)
	q, err := m.prepare(mode, args)
	if err != nil || q.none {
		return err
	}
	stmt, err := m.parser.Select(q.spec, mode == types.ModeCount)
	if err != nil {
		return err
	}
	m.last = stmt

	records, hit := m.cached(ctx, q.cacheKey)
	if !hit {
		records, err = m.conn.Fetch(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		m.store(ctx, q.cacheKey, records)
	}
	return m.load(records)
}

// prepare 将参数合并到构造时的 spec 上，并追加软删除过滤。
func (m *Model) prepare(mode types.QueryMode, args []any) (query, error) {
	q := query{spec: m.snapshot.Clone()}
	if len(args) > 1 {
		return q, types.NewInputError("execute", "cannot pass 2 query parameter sets")
	}
	var arg any
	if len(args) == 1 {
		arg = args[0]
	}
	if arg == nil && mode == types.ModeNone {
		q.none = true
		return q, nil
	}

	idColumn := m.columns.ID
	switch a := arg.(type) {
	case nil:
	case types.QuerySpec:
		q.spec = q.spec.Merge(a)
	case *types.QuerySpec:
		if a != nil {
			q.spec = q.spec.Merge(*a)
		}
	case types.Params:
		spec, err := a.Spec(q.spec, idColumn)
		if err != nil {
			return q, err
		}
		q.spec = spec
	case map[string]any:
		spec, err := types.Params(a).Spec(q.spec, idColumn)
		if err != nil {
			return q, err
		}
		q.spec = spec
	case types.Where, []types.Pair, *types.Condition, *types.CondBuilder:
		cond, err := types.ParseConditions(a, idColumn)
		if err != nil {
			return q, err
		}
		q.spec.Conditions = cond
	default:
		key, value, ok, err := identity(arg)
		if err != nil {
			return q, err
		}
		if !ok {
			return q, types.NewInputError("execute", "unsupported query parameter of type %T", arg)
		}
		q.spec.Conditions = types.Leaf(idColumn, types.OpDefault, value)
		if m.cache != nil && mode != types.ModeCount {
			q.cacheKey = m.name + "-" + key
		}
	}

	if m.columns.SoftDelete() {
		q.spec.Conditions = q.spec.Conditions.AndWith(types.Leaf(m.columns.IsDeleted, types.OpDefault, 0))
	}
	m.spec = q.spec
	return q, nil
}

// identity 识别主键简写，返回缓存键片段与绑定值。
func identity(v any) (string, any, bool, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		return strconv.FormatUint(uint64(x), 10), x, true, nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), x, true, nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), x, true, nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), x, true, nil
	case uint64:
		return strconv.FormatUint(x, 10), x, true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.Trim(s, "0123456789") != "" {
			return "", nil, false, types.NewInputError("execute", "%q is not a valid id", x)
		}
		// 键与失效时使用的 ScalarString(id) 保持一致，"01" 与 1 命中同一条目
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(i, 10), i, true, nil
		}
		s = strings.TrimLeft(s, "0")
		return s, s, true, nil
	default:
		return "", nil, false, nil
	}
	if n < 0 {
		return "", nil, false, types.NewInputError("execute", "id %d must not be negative", n)
	}
	return strconv.FormatInt(n, 10), n, true, nil
}

func (m *Model) cached(ctx context.Context, key string) ([]*types.Record, bool) {
	if key == "" || m.cache == nil {
		return nil, false
	}
	records, ok, err := m.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues(m.name, "error").Inc()
		m.logger.WarnContext(ctx, "cache get failed", "model", m.name, "key", key, "error", err)
		return nil, false
	case ok:
		metrics.CacheLookupsTotal.WithLabelValues(m.name, "hit").Inc()
		return records, true
	}
	metrics.CacheLookupsTotal.WithLabelValues(m.name, "miss").Inc()
	return nil, false
}

func (m *Model) store(ctx context.Context, key string, records []*types.Record) {
	if key == "" || m.cache == nil {
		return
	}
	if err := m.cache.Set(ctx, key, records); err != nil {
		m.logger.WarnContext(ctx, "cache set failed", "model", m.name, "key", key, "error", err)
	}
}

func (m *Model) invalidate(ctx context.Context, ids ...any) {
	if m.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = m.name + "-" + types.ScalarString(id)
	}
	if err := m.cache.Delete(ctx, keys...); err != nil {
		m.logger.WarnContext(ctx, "cache delete failed", "model", m.name, "keys", keys, "error", err)
	}
}

// load 按模式折叠结果并将游标置于第一行
func (m *Model) load(records []*types.Record) error {
	switch m.mode {
	case types.ModeList, types.ModeIndexed:
		entries, rows, err := fold(m.mode, records)
		if err != nil {
			return err
		}
		m.entries = entries
		records = rows
	}
	m.rows = types.NewRows(records)
	m.original = make([]*types.Record, len(records))
	for i, r := range records {
		m.original[i] = r.Clone()
	}
	if m.First() == nil {
		m.record = types.NewRecord()
	}
	return nil
}

// fold 以第一列为键折叠结果；重复键保留首次出现的位置，值取最后一次。
func fold(mode types.QueryMode, records []*types.Record) ([]types.Entry, []*types.Record, error) {
	entries := make([]types.Entry, 0, len(records))
	rows := make([]*types.Record, 0, len(records))
	index := make(map[string]int, len(records))
	for _, r := range records {
		cols := r.Columns()
		if len(cols) == 0 {
			continue
		}
		if mode == types.ModeList && len(cols) < 2 {
			return nil, nil, types.NewInputError("list", "list mode needs at least 2 columns, got %d", len(cols))
		}
		e := types.Entry{Key: r.Get(cols[0]), Value: r}
		if mode == types.ModeList {
			e.Value = r.Get(cols[1])
		}
		k := types.ScalarString(e.Key)
		if i, ok := index[k]; ok {
			entries[i] = e
			rows[i] = r
			continue
		}
		index[k] = len(entries)
		entries = append(entries, e)
		rows = append(rows, r)
	}
	return entries, rows, nil
}

// Count 以 count 模式执行并返回 COUNT(*) 的值
func (m *Model) Count(ctx context.Context, args ...any) (int64, error) {
	if err := m.Execute(ctx, types.ModeCount, args...); err != nil {
		return 0, err
	}
	return m.record.Int("count"), nil
}

// Explain 返回按参数构建的 SELECT 的执行计划，不改变结果集。
func (m *Model) Explain(ctx context.Context, args ...any) ([]*types.Record, error) {
	saved := m.spec
	defer func() { m.spec = saved }()
	q, err := m.prepare(types.ModeAll, args)
	if err != nil {
		return nil, err
	}
	stmt, err := m.parser.Explain(q.spec)
	if err != nil {
		return nil, err
	}
	m.last = stmt
	return m.conn.Fetch(ctx, stmt.SQL, stmt.Args...)
}

// Statement 返回最近一次构建的语句
func (m *Model) Statement() types.Statement { return m.last }

// Preview 返回最近一次构建的语句，绑定值以字面量内联，仅用于调试。
func (m *Model) Preview() string { return parser.Preview(m.last) }
