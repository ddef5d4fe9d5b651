package drivers

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Kaguya154/dbmodel/logger"
	"github.com/Kaguya154/dbmodel/metrics"
	"github.com/Kaguya154/dbmodel/types"
)

// SlowQueryThreshold 超过该耗时的语句以 WARN 记录
const SlowQueryThreshold = time.Second

// SQLConn 基于 database/sql 实现 types.Conn
type SQLConn struct {
	db     *sql.DB
	kind   types.DriverKind
	name   string
	logger *slog.Logger
	slow   time.Duration
}

var _ types.Conn = (*SQLConn)(nil)

// queryer 由 *sql.DB 与 *sql.Tx 共同实现
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Open 通过 database/sql 驱动名打开连接
func Open(driverName string, kind types.DriverKind, cfg types.DBConfig) (*SQLConn, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return New(db, driverName, kind, cfg), nil
}

// New 包装已打开的 *sql.DB 并应用连接池配置
func New(db *sql.DB, name string, kind types.DriverKind, cfg types.DBConfig) *SQLConn {
	if cfg.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return &SQLConn{db: db, kind: kind, name: name, logger: logger.Default(), slow: SlowQueryThreshold}
}

// WithLogger 替换语句日志使用的 logger
func (c *SQLConn) WithLogger(l *slog.Logger) *SQLConn {
	if l != nil {
		c.logger = l
	}
	return c
}

// WithSlowThreshold 设置慢查询阈值
func (c *SQLConn) WithSlowThreshold(d time.Duration) *SQLConn {
	if d > 0 {
		c.slow = d
	}
	return c
}

// DB 返回底层连接池
func (c *SQLConn) DB() *sql.DB { return c.db }

func (c *SQLConn) Kind() types.DriverKind { return c.kind }

func (c *SQLConn) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	return c.exec(ctx, c.db, query, args)
}

func (c *SQLConn) Fetch(ctx context.Context, query string, args ...any) ([]*types.Record, error) {
	return c.fetch(ctx, c.db, query, args)
}

// ExecuteBatch 在一个事务中依次执行语句，任一失败则回滚。
func (c *SQLConn) ExecuteBatch(ctx context.Context, stmts []types.Statement) (total int64, err error) {
	if len(stmts) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer func() {
		op := types.OpBatch.String()
		metrics.StatementsTotal.WithLabelValues(c.name, op, metrics.Status(err)).Inc()
		metrics.StatementDuration.WithLabelValues(c.name, op).Observe(time.Since(start).Seconds())
	}()

	tx, err := c.begin(ctx)
	if err != nil {
		return 0, err
	}
	for _, stmt := range stmts {
		n, err := tx.affected(ctx, stmt)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	c.logger.DebugContext(ctx, "batch committed", "driver", c.name, "statements", len(stmts), "rows", total)
	return total, nil
}

func (c *SQLConn) Begin(ctx context.Context) (types.Tx, error) {
	tx, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *SQLConn) begin(ctx context.Context) (*SQLTx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SQLTx{tx: tx, conn: c}, nil
}

func (c *SQLConn) Close() error {
	return c.db.Close()
}

// rebind 将 "?" 改写为方言占位符
func (c *SQLConn) rebind(query string) string {
	if c.kind != types.DriverPostgreSQL {
		return query
	}
	q, err := squirrel.Dollar.ReplacePlaceholders(query)
	if err != nil {
		return query
	}
	return q
}

func (c *SQLConn) exec(ctx context.Context, q queryer, query string, args []any) (int64, error) {
	start := time.Now()
	res, err := q.ExecContext(ctx, c.rebind(query), args...)
	c.observe(ctx, query, args, start, err)
	if err != nil {
		return 0, err
	}
	// 只有 INSERT/REPLACE 返回自增 id，其他语句返回影响行数
	switch StatementOp(query) {
	case types.OpInsert, types.OpReplace:
		if id, err := res.LastInsertId(); err == nil && id > 0 {
			return id, nil
		}
	}
	return res.RowsAffected()
}

func (c *SQLConn) fetch(ctx context.Context, q queryer, query string, args []any) ([]*types.Record, error) {
	start := time.Now()
	rows, err := q.QueryContext(ctx, c.rebind(query), args...)
	c.observe(ctx, query, args, start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// ScanRows 将结果集读取为保持列顺序的记录，[]byte 转为 string。
func ScanRows(rows *sql.Rows) ([]*types.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := []*types.Record{}
	for rows.Next() {
		row := make([]any, len(columns))
		rowPtrs := make([]any, len(columns))
		for i := range row {
			rowPtrs[i] = &row[i]
		}
		if err := rows.Scan(rowPtrs...); err != nil {
			return nil, err
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			}
		}
		result = append(result, types.RecordOf(columns, row))
	}
	return result, rows.Err()
}

func (c *SQLConn) observe(ctx context.Context, query string, args []any, start time.Time, err error) {
	d := time.Since(start)
	op := StatementOp(query).String()
	metrics.StatementsTotal.WithLabelValues(c.name, op, metrics.Status(err)).Inc()
	metrics.StatementDuration.WithLabelValues(c.name, op).Observe(d.Seconds())

	attrs := []any{"query_id", uuid.NewString(), "driver", c.name, "sql", query, "args", args, "duration", d}
	attrs = append(attrs, logger.ExtractContextValues(ctx)...)
	switch {
	case err != nil:
		c.logger.ErrorContext(ctx, "statement failed", append(attrs, "error", err)...)
	case d >= c.slow:
		metrics.SlowStatementsTotal.WithLabelValues(c.name).Inc()
		c.logger.WarnContext(ctx, "slow query", attrs...)
	default:
		c.logger.DebugContext(ctx, "statement", attrs...)
	}
}

// StatementOp 根据首个关键字判断语句类型
func StatementOp(query string) types.OpType {
	q := strings.TrimSpace(query)
	if i := strings.IndexAny(q, " \t\n("); i > 0 {
		q = q[:i]
	}
	switch strings.ToUpper(q) {
	case "SELECT", "EXPLAIN", "WITH", "PRAGMA":
		return types.OpQuery
	case "INSERT":
		return types.OpInsert
	case "REPLACE":
		return types.OpReplace
	case "UPDATE":
		return types.OpUpdate
	case "DELETE":
		return types.OpDelete
	}
	return types.OpExec
}

// SQLTx 实现 types.Tx
type SQLTx struct {
	tx   *sql.Tx
	conn *SQLConn
}

func (t *SQLTx) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	return t.conn.exec(ctx, t.tx, query, args)
}

func (t *SQLTx) Fetch(ctx context.Context, query string, args ...any) ([]*types.Record, error) {
	return t.conn.fetch(ctx, t.tx, query, args)
}

// affected 执行语句并返回影响行数，供批量提交累计
func (t *SQLTx) affected(ctx context.Context, stmt types.Statement) (int64, error) {
	start := time.Now()
	res, err := t.tx.ExecContext(ctx, t.conn.rebind(stmt.SQL), stmt.Args...)
	t.conn.observe(ctx, stmt.SQL, stmt.Args, start, err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *SQLTx) Commit() error {
	return t.tx.Commit()
}

func (t *SQLTx) Rollback() error {
	return t.tx.Rollback()
}
