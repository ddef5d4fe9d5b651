package types

import (
	"context"
	"time"
)

// Conn 是数据库连接，所有语句使用 "?" 占位符，由实现负责按方言改写。
type Conn interface {
	Kind() DriverKind
	// Execute 执行写语句，返回自增 id（若有）否则返回影响行数。
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	Fetch(ctx context.Context, query string, args ...any) ([]*Record, error)
	// ExecuteBatch 在同一事务中依次执行多条语句，返回累计影响行数。
	ExecuteBatch(ctx context.Context, stmts []Statement) (int64, error)
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

type Tx interface {
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	Fetch(ctx context.Context, query string, args ...any) ([]*Record, error)
	Commit() error
	Rollback() error
}

type Driver interface {
	Open(cfg DBConfig) (Conn, error)
	Kind() DriverKind
}

// Cache 缓存按主键查询的结果集，键由调用方规范化。
type Cache interface {
	Get(ctx context.Context, key string) ([]*Record, bool, error)
	Set(ctx context.Context, key string, records []*Record) error
	Delete(ctx context.Context, keys ...string) error
}

// Clock 提供审计列使用的时间
type Clock interface {
	Now() time.Time
}

// ClockFunc 将函数适配为 Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock 返回当前 UTC 时间
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// TimestampLayout 是审计时间列的格式
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp 以 UTC "YYYY-MM-DD HH:MM:SS" 形式格式化时间。
func Timestamp(c Clock) string {
	if c == nil {
		c = SystemClock
	}
	return c.Now().UTC().Format(TimestampLayout)
}

// UserProvider 提供当前用户 id，仅在启用 *_id 审计列时使用。
type UserProvider interface {
	CurrentUserID(ctx context.Context) (int64, bool)
}

// UserFunc 将函数适配为 UserProvider
type UserFunc func(ctx context.Context) (int64, bool)

func (f UserFunc) CurrentUserID(ctx context.Context) (int64, bool) { return f(ctx) }

// NoUser 总是返回“无用户”
var NoUser UserProvider = UserFunc(func(context.Context) (int64, bool) { return 0, false })
