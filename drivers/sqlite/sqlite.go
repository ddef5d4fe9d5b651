package sqlite

import (
	"strings"

	"github.com/Kaguya154/dbmodel/drivers"
	"github.com/Kaguya154/dbmodel/types"

	_ "github.com/mattn/go-sqlite3"
)

const DriverName = "sqlite3"

// SQLiteDriver 实现 types.Driver
type SQLiteDriver struct{}

func GetDriver() *SQLiteDriver {
	return &SQLiteDriver{}
}

func (d *SQLiteDriver) Kind() types.DriverKind { return types.DriverSQLite }

func (d *SQLiteDriver) Open(cfg types.DBConfig) (types.Conn, error) {
	conn, err := drivers.Open(DriverName, types.DriverSQLite, cfg)
	if err != nil {
		return nil, err
	}
	// :memory: 数据库每个连接都是独立的库，只能使用单连接
	if isMemory(cfg.DSN) {
		conn.DB().SetMaxOpenConns(1)
	}
	return conn, nil
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
