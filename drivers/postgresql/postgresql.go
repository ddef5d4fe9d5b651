package postgresql

import (
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/Kaguya154/dbmodel/drivers"
	"github.com/Kaguya154/dbmodel/types"
)

const (
	// DriverName 使用 lib/pq
	DriverName = "postgres"
	// PgxDriverName 使用 pgx 的 database/sql 适配
	PgxDriverName = "pgx"
)

// PostgreSQLDriver 实现 types.Driver
type PostgreSQLDriver struct {
	pgx bool
}

// GetDriver 返回基于 lib/pq 的驱动
func GetDriver() *PostgreSQLDriver {
	return &PostgreSQLDriver{}
}

// GetPgxDriver 返回基于 pgx 的驱动
func GetPgxDriver() *PostgreSQLDriver {
	return &PostgreSQLDriver{pgx: true}
}

func (d *PostgreSQLDriver) Kind() types.DriverKind { return types.DriverPostgreSQL }

// Name 返回 database/sql 驱动名
func (d *PostgreSQLDriver) Name() string {
	if d.pgx {
		return PgxDriverName
	}
	return DriverName
}

func (d *PostgreSQLDriver) Open(cfg types.DBConfig) (types.Conn, error) {
	if d.pgx {
		pc, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, types.WrapConfigurationError("pgx", err, "invalid dsn")
		}
		return drivers.New(stdlib.OpenDB(*pc), PgxDriverName, types.DriverPostgreSQL, cfg), nil
	}
	connector, err := pq.NewConnector(cfg.DSN)
	if err != nil {
		return nil, types.WrapConfigurationError("postgres", err, "invalid dsn")
	}
	return drivers.New(sql.OpenDB(connector), DriverName, types.DriverPostgreSQL, cfg), nil
}
