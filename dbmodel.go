package dbmodel

import (
	"sort"
	"sync"

	"github.com/Kaguya154/dbmodel/model"
	"github.com/Kaguya154/dbmodel/types"
)

// 驱动注册表
var (
	registeredDriversMu sync.RWMutex
	registeredDrivers   = make(map[string]types.Driver)
)

// RegisterDriver 注册数据库驱动，name 是配置中 driver 字段使用的名称。
func RegisterDriver(name string, drv types.Driver) error {
	registeredDriversMu.Lock()
	defer registeredDriversMu.Unlock()

	switch {
	case name == "":
		return types.NewConfigurationError("driver", "driver name cannot be empty")
	case drv == nil:
		return types.NewConfigurationError("driver", "driver %s cannot be nil", name)
	}
	if _, exists := registeredDrivers[name]; exists {
		return types.NewConfigurationError("driver", "driver %s already registered", name)
	}

	registeredDrivers[name] = drv
	return nil
}

// GetDriver 获取注册的驱动；未注册时返回 ConfigurationError
func GetDriver(name string) (types.Driver, error) {
	registeredDriversMu.RLock()
	defer registeredDriversMu.RUnlock()

	drv, ok := registeredDrivers[name]
	if !ok {
		if _, err := types.ParseDriverKind(name); err != nil {
			return nil, err
		}
		return nil, types.NewConfigurationError("driver", "driver %s not registered", name)
	}
	return drv, nil
}

// Drivers 返回排序后的已注册驱动名
func Drivers() []string {
	registeredDriversMu.RLock()
	defer registeredDriversMu.RUnlock()

	names := make([]string, 0, len(registeredDrivers))
	for name := range registeredDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open 通过注册的驱动创建数据库连接
func Open(cfg types.DBConfig) (types.Conn, error) {
	drv, err := GetDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return drv.Open(cfg)
}

// Cond 创建条件构建器
func Cond() *types.CondBuilder {
	return types.NewCondition()
}

// NewModel 创建绑定到 table 的模型，def 中的其他字段可选。
func NewModel(conn types.Conn, table string, def model.Definition, opts ...model.Option) (*model.Model, error) {
	if table != "" {
		def.Spec.Table = table
	}
	return model.New(conn, def, opts...)
}
