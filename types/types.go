package types

import (
	"fmt"
	"strings"
	"time"
)

// DriverKind 是受支持数据库方言的封闭枚举，在配置阶段确定一次。
type DriverKind uint8

const (
	DriverSQLite DriverKind = iota
	DriverMySQL
	DriverPostgreSQL
)

func (k DriverKind) String() string {
	switch k {
	case DriverSQLite:
		return "sqlite"
	case DriverMySQL:
		return "mysql"
	case DriverPostgreSQL:
		return "postgresql"
	}
	return fmt.Sprintf("DriverKind(%d)", uint8(k))
}

// ParseDriverKind 将驱动名映射到方言，未知驱动返回 ConfigurationError。
func ParseDriverKind(name string) (DriverKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3", "pdo_sqlite":
		return DriverSQLite, nil
	case "mysql", "pdo_mysql":
		return DriverMySQL, nil
	case "postgres", "postgresql", "pgsql", "pgx", "pdo_pgsql":
		return DriverPostgreSQL, nil
	case "":
		return 0, NewConfigurationError("driver", "driver name is not set")
	}
	return 0, NewConfigurationError("driver", "datasource driver %q is invalid", name)
}

// DBConfig 数据源配置
type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	// Cache 控制按主键查询是否使用缓存
	Cache bool
}

// Statement 是一条带绑定参数的 SQL。
type Statement struct {
	SQL  string
	Args []any
}

func (s Statement) String() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	return fmt.Sprintf("%s -- %v", s.SQL, s.Args)
}

// QueryMode 决定 Execute 的查询形态以及结果的折叠方式。
type QueryMode string

const (
	ModeNone    QueryMode = ""
	ModeAll     QueryMode = "all"
	ModeList    QueryMode = "list"
	ModeIndexed QueryMode = "indexed"
	ModeCount   QueryMode = "count"
)

// ParseQueryMode 解析命令行或配置中的模式名。
func ParseQueryMode(s string) (QueryMode, error) {
	switch m := QueryMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeNone, ModeAll, ModeList, ModeIndexed, ModeCount:
		return m, nil
	}
	return "", NewInputError("mode", "unknown query mode %q", s)
}

// Entry 是 list / indexed 模式下折叠后的键值对。
// list 模式 Value 为第二列的值，indexed 模式 Value 为整行 *Record。
type Entry struct {
	Key   any
	Value any
}

type OpType string

const (
	OpInsert  OpType = "Insert"
	OpQuery   OpType = "Query"
	OpUpdate  OpType = "Update"
	OpDelete  OpType = "Delete"
	OpReplace OpType = "Replace"
	OpBatch   OpType = "Batch"
	OpExec    OpType = "Exec"
)

func (op OpType) String() string {
	return string(op)
}
