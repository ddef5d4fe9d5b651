package mysql

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"

	"github.com/Kaguya154/dbmodel/drivers"
	"github.com/Kaguya154/dbmodel/types"
)

const DriverName = "mysql"

// MySQLDriver 实现 types.Driver
type MySQLDriver struct{}

func GetDriver() *MySQLDriver {
	return &MySQLDriver{}
}

func (d *MySQLDriver) Kind() types.DriverKind { return types.DriverMySQL }

// Open 解析 DSN 后通过 connector 打开连接，DSN 无效时返回 ConfigurationError。
func (d *MySQLDriver) Open(cfg types.DBConfig) (types.Conn, error) {
	mc, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, err
	}
	return drivers.New(sql.OpenDB(connector), DriverName, types.DriverMySQL, cfg), nil
}

// ParseDSN 解析 DSN；时间列保持字符串，与审计时间戳格式一致。
func ParseDSN(dsn string) (*mysql.Config, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, types.WrapConfigurationError("mysql", err, "invalid dsn")
	}
	mc.InterpolateParams = true
	mc.ParseTime = false
	return mc, nil
}
