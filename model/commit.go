package model

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/Kaguya154/dbmodel/metrics"
	"github.com/Kaguya154/dbmodel/types"
)

// Queue 将当前记录加入批量队列并开始一条新记录。
// 调用后模型永久处于批量模式，Commit 只提交队列。
func (m *Model) Queue() {
	m.queued = true
	if m.record != nil && m.record.Len() > 0 {
		m.queue = append(m.queue, m.record.Clone())
	}
	m.record = types.NewRecord()
	m.base = nil
}

// Commit 写入当前记录（或批量模式下的整个队列）。
// 单行模式下主键非空为 UPDATE（只写入变化的列），否则为 INSERT；
// 没有需要写入的内容时不发送 SQL 并返回 0。
func (m *Model) Commit(ctx context.Context) (int64, error) {
	if m.queued {
		return m.commitQueue(ctx)
	}
	r := m.record
	if r == nil || r.Len() == 0 {
		return 0, nil
	}
	switch {
	case m.replace:
		return m.commitReplace(ctx, r)
	case m.isExisting(r):
		return m.commitUpdate(ctx, r)
	}
	return m.commitInsert(ctx, r)
}

func (m *Model) isExisting(r *types.Record) bool {
	return !r.Blank(m.columns.ID)
}

func (m *Model) commitReplace(ctx context.Context, r *types.Record) (int64, error) {
	cols := r.Columns()
	row, err := encodeValues(r, cols)
	if err != nil {
		return 0, err
	}
	stmt, err := m.parser.Replace(m.spec.Table, cols, row, m.insert)
	if err != nil {
		return 0, err
	}
	m.last = stmt
	n, err := m.conn.Execute(ctx, stmt.SQL, stmt.Args...)
	metrics.CommitsTotal.WithLabelValues(m.name, "replace", metrics.Status(err)).Inc()
	if err != nil {
		return 0, err
	}
	if m.isExisting(r) {
		m.invalidate(ctx, r.Get(m.columns.ID))
	} else if n > 0 {
		r.Set(m.columns.ID, n)
	}
	m.committed(r)
	return n, nil
}

func (m *Model) commitUpdate(ctx context.Context, r *types.Record) (int64, error) {
	id := r.Get(m.columns.ID)
	set := r.Diff(m.base)
	set.Unset(m.columns.ID)
	if set.Len() == 0 {
		return 0, nil
	}
	m.auditUpdate(ctx, set)
	stmt, err := m.updateStatement(set, id)
	if err != nil {
		return 0, err
	}
	m.last = stmt
	n, err := m.conn.Execute(ctx, stmt.SQL, stmt.Args...)
	metrics.CommitsTotal.WithLabelValues(m.name, "update", metrics.Status(err)).Inc()
	if err != nil {
		return 0, err
	}
	for _, col := range set.Columns() {
		r.Set(col, set.Get(col))
	}
	m.invalidate(ctx, id)
	m.committed(r)
	return n, nil
}

func (m *Model) commitInsert(ctx context.Context, r *types.Record) (int64, error) {
	data := m.insertColumns(r)
	m.auditInsert(ctx, data)
	cols := data.Columns()
	row, err := encodeValues(data, cols)
	if err != nil {
		return 0, err
	}
	opts := m.insert
	if m.conn.Kind() == types.DriverPostgreSQL {
		opts.Returning = m.columns.ID
	}
	stmt, err := m.parser.Insert(m.spec.Table, cols, [][]any{row}, opts)
	if err != nil {
		return 0, err
	}
	m.last = stmt

	var id int64
	if opts.Returning != "" {
		var rows []*types.Record
		rows, err = m.conn.Fetch(ctx, stmt.SQL, stmt.Args...)
		if err == nil && len(rows) > 0 {
			id = rows[0].Int(m.columns.ID)
		}
	} else {
		id, err = m.conn.Execute(ctx, stmt.SQL, stmt.Args...)
	}
	metrics.CommitsTotal.WithLabelValues(m.name, "insert", metrics.Status(err)).Inc()
	if err != nil {
		return 0, err
	}
	for _, col := range data.Columns() {
		r.Set(col, data.Get(col))
	}
	if id > 0 {
		r.Set(m.columns.ID, id)
	}
	m.committed(r)
	return id, nil
}

// committed 将写入后的记录作为新的对比基准
func (m *Model) committed(r *types.Record) {
	m.base = r.Clone()
	if i := m.rows.Pos(); i >= 0 && i < len(m.original) && m.rows.At(i) == r {
		m.original[i] = m.base
	}
}

// insertColumns 返回去掉主键列后的记录副本
func (m *Model) insertColumns(r *types.Record) *types.Record {
	data := r.Clone()
	data.Unset(m.columns.ID)
	return data
}

func (m *Model) auditInsert(ctx context.Context, data *types.Record) {
	m.audit(ctx, data, m.columns.CreatedAt, m.columns.CreatedID)
}

func (m *Model) auditUpdate(ctx context.Context, data *types.Record) {
	m.audit(ctx, data, m.columns.UpdatedAt, m.columns.UpdatedID)
}

// audit 追加时间与用户审计列，记录中已显式设置的列保持不变。
func (m *Model) audit(ctx context.Context, data *types.Record, atCol, idCol string) {
	if atCol != "" && !data.Has(atCol) {
		data.Set(atCol, types.Timestamp(m.clock))
	}
	if idCol != "" && !data.Has(idCol) {
		if uid, ok := m.users.CurrentUserID(ctx); ok {
			data.Set(idCol, uid)
		}
	}
}

func (m *Model) updateStatement(set *types.Record, id any) (types.Statement, error) {
	encoded := types.NewRecord()
	for _, col := range set.Columns() {
		v, err := encodeValue(set.Get(col))
		if err != nil {
			return types.Statement{}, fmt.Errorf("column %s: %w", col, err)
		}
		encoded.Set(col, v)
	}
	return m.parser.Update(m.spec.Table, encoded, m.columns.ID, id)
}

// commitQueue 提交队列：新记录合并为一条多行 INSERT，已有记录逐条 UPDATE，
// 在同一事务中按 INSERT 在前、UPDATE 按入队顺序执行。
func (m *Model) commitQueue(ctx context.Context) (int64, error) {
	if len(m.queue) == 0 {
		return 0, nil
	}
	var (
		stmts   []types.Statement
		cols    []string
		rows    [][]any
		updated []any
		updates []types.Statement
	)
	now := types.Timestamp(m.clock)
	uid, hasUser := m.users.CurrentUserID(ctx)

	for i, r := range m.queue {
		if m.isExisting(r) {
			id := r.Get(m.columns.ID)
			set := r.Clone()
			set.Unset(m.columns.ID)
			// 载入时带出的审计列不写回，updated_* 总是使用本次提交的时间与用户
			for _, col := range set.Columns() {
				if m.columns.IsAudit(col) {
					set.Unset(col)
				}
			}
			m.stamp(set, m.columns.UpdatedAt, m.columns.UpdatedID, now, uid, hasUser)
			if set.Len() == 0 {
				continue
			}
			stmt, err := m.updateStatement(set, id)
			if err != nil {
				return 0, err
			}
			updates = append(updates, stmt)
			updated = append(updated, id)
			continue
		}

		data := m.insertColumns(r)
		m.stamp(data, m.columns.CreatedAt, m.columns.CreatedID, now, uid, hasUser)
		if cols == nil {
			cols = data.Columns()
		} else if !sameColumns(cols, data) {
			return 0, types.NewInputError("queue", "record %d does not match the expected field count: %d columns, expected %d", i, data.Len(), len(cols))
		}
		row, err := encodeValues(data, cols)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		stmt, err := m.parser.Insert(m.spec.Table, cols, rows, m.insert)
		if err != nil {
			return 0, err
		}
		stmts = append(stmts, stmt)
	}
	stmts = append(stmts, updates...)
	if len(stmts) == 0 {
		m.queue = nil
		return 0, nil
	}
	m.last = stmts[len(stmts)-1]

	n, err := m.conn.ExecuteBatch(ctx, stmts)
	metrics.CommitsTotal.WithLabelValues(m.name, "batch", metrics.Status(err)).Inc()
	if err != nil {
		return 0, err
	}
	m.invalidate(ctx, updated...)
	m.queue = nil
	return n, nil
}

func (m *Model) stamp(data *types.Record, atCol, idCol, now string, uid int64, hasUser bool) {
	if atCol != "" && !data.Has(atCol) {
		data.Set(atCol, now)
	}
	if idCol != "" && hasUser && !data.Has(idCol) {
		data.Set(idCol, uid)
	}
}

func sameColumns(cols []string, r *types.Record) bool {
	if r.Len() != len(cols) {
		return false
	}
	for _, c := range cols {
		if !r.Has(c) {
			return false
		}
	}
	return true
}

// Delete 删除当前记录。启用 is_deleted 时为软删除 UPDATE，否则按主键物理删除一行。
func (m *Model) Delete(ctx context.Context) (int64, error) {
	r := m.record
	if r == nil || !m.isExisting(r) {
		return 0, types.NewInputError("delete", "the current record has no %s", m.columns.ID)
	}
	id := r.Get(m.columns.ID)

	var (
		stmt types.Statement
		err  error
		set  *types.Record
	)
	if m.columns.SoftDelete() {
		set = types.NewRecord().Set(m.columns.IsDeleted, 1)
		m.audit(ctx, set, m.columns.DeletedAt, m.columns.DeletedID)
		stmt, err = m.parser.Update(m.spec.Table, set, m.columns.ID, id)
	} else {
		stmt, err = m.parser.Delete(m.spec.Table, m.columns.ID, id)
	}
	if err != nil {
		return 0, err
	}
	m.last = stmt
	n, err := m.conn.Execute(ctx, stmt.SQL, stmt.Args...)
	metrics.CommitsTotal.WithLabelValues(m.name, "delete", metrics.Status(err)).Inc()
	if err != nil {
		return 0, err
	}
	if set != nil {
		for _, col := range set.Columns() {
			r.Set(col, set.Get(col))
		}
		m.committed(r)
	}
	m.invalidate(ctx, id)
	return n, nil
}

func encodeValues(r *types.Record, cols []string) ([]any, error) {
	out := make([]any, len(cols))
	for i, col := range cols {
		v, err := encodeValue(r.Get(col))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		out[i] = v
	}
	return out, nil
}

// encodeValue 将切片与 map 编码为 JSON 字符串，[]byte 原样保留。
func encodeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.([]byte); ok {
		return v, nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}
