package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"gopkg.in/yaml.v3"

	"github.com/Kaguya154/dbmodel/cache"
	"github.com/Kaguya154/dbmodel/logger"
	"github.com/Kaguya154/dbmodel/types"
)

// 环境变量
const (
	EnvDatasource = "DBMODEL_DATASOURCE"
	EnvDSN        = "DBMODEL_DSN"
)

// Config 是 YAML 配置文件的根
type Config struct {
	Default     string                `yaml:"default"`
	Datasources map[string]Datasource `yaml:"datasources"`
	Cache       CacheConfig           `yaml:"cache"`
	Logging     LoggingConfig         `yaml:"logging"`

	dsn string
}

// Datasource 描述一个数据源及其列映射
type Datasource struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpen         int           `yaml:"max_open"`
	MaxIdle         int           `yaml:"max_idle"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Cache           bool          `yaml:"cache"`
	Columns         ColumnsConfig `yaml:"columns"`
}

type CacheConfig struct {
	// Backend 为 memory（默认）或 pebble
	Backend   string        `yaml:"backend"`
	Path      string        `yaml:"path"`
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// ColumnsConfig 是列映射的覆盖：false 禁用槽位，字符串重命名。
// 整个 columns 为 false 时只保留 id。
type ColumnsConfig struct {
	idOnly    bool
	overrides map[string]string
}

func (c *ColumnsConfig) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var enabled bool
		if err := value.Decode(&enabled); err != nil {
			return fmt.Errorf("columns: expected a boolean or a mapping: %w", err)
		}
		c.idOnly = !enabled
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("columns: expected a boolean or a mapping")
	}

	c.overrides = make(map[string]string, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		slot := strings.ToLower(strings.TrimSpace(value.Content[i].Value))
		v := value.Content[i+1]
		if (&types.ColumnMap{}).Slot(slot) == nil {
			return fmt.Errorf("columns: unknown slot %q (line %d)", slot, value.Content[i].Line)
		}
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("columns.%s: expected a boolean or a column name", slot)
		}
		if v.ShortTag() == "!!bool" {
			var enabled bool
			if err := v.Decode(&enabled); err != nil {
				return err
			}
			if !enabled {
				c.overrides[slot] = ""
			}
			continue
		}
		c.overrides[slot] = strings.TrimSpace(v.Value)
	}
	return nil
}

// ColumnMap 返回应用覆盖后的列映射并校验
func (c ColumnsConfig) ColumnMap() (types.ColumnMap, error) {
	m := types.DefaultColumns()
	if c.idOnly {
		m = types.IDOnlyColumns()
	}
	for slot, col := range c.overrides {
		*m.Slot(slot) = col
	}
	return m, m.Validate()
}

// Load 读取 YAML 配置文件并应用环境变量
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapConfigurationError("config", err, "read %s", path)
	}
	return Parse(data)
}

// Parse 解析 YAML 配置并应用环境变量
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, types.WrapConfigurationError("config", err, "invalid yaml")
	}
	cfg.ApplyEnv()
	return &cfg, nil
}

// ApplyEnv 使用 DBMODEL_DATASOURCE 与 DBMODEL_DSN 覆盖配置
func (c *Config) ApplyEnv() {
	if name := strings.TrimSpace(os.Getenv(EnvDatasource)); name != "" {
		c.Default = name
	}
	c.dsn = os.Getenv(EnvDSN)
}

// Names 返回排序后的数据源名称
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Datasources))
	for name := range c.Datasources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve 按名称选择数据源，name 为空时使用 default；只有一个数据源时可省略 default。
// 驱动名不受支持时返回 ConfigurationError。
func (c *Config) Resolve(name string) (string, Datasource, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" && len(c.Datasources) == 1 {
		name = c.Names()[0]
	}
	if name == "" {
		return "", Datasource{}, types.NewConfigurationError("config", "no datasource selected")
	}
	ds, ok := c.Datasources[name]
	if !ok {
		return "", Datasource{}, types.NewConfigurationError("config", "datasource %q is not defined", name)
	}
	if _, err := types.ParseDriverKind(ds.Driver); err != nil {
		return "", Datasource{}, err
	}
	if c.dsn != "" {
		ds.DSN = c.dsn
	}
	return name, ds, nil
}

// DBConfig 转换为驱动使用的连接配置
func (d Datasource) DBConfig() types.DBConfig {
	return types.DBConfig{
		Driver:          d.Driver,
		DSN:             d.DSN,
		MaxOpen:         d.MaxOpen,
		MaxIdle:         d.MaxIdle,
		ConnMaxLifetime: d.ConnMaxLifetime,
		Cache:           d.Cache,
	}
}

// Open 按 backend 创建缓存，返回的 close 函数释放底层存储。
func (c CacheConfig) Open() (types.Cache, func() error, error) {
	opts := []cache.Option{cache.WithNamespace(c.Namespace), cache.WithTTL(c.TTL)}
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", "memory":
		return cache.NewMemoryCache(opts...), func() error { return nil }, nil
	case "pebble":
		if c.Path == "" {
			return nil, nil, types.NewConfigurationError("cache", "pebble cache needs a path")
		}
		pc, err := cache.OpenPebble(c.Path, vfs.Default, opts...)
		if err != nil {
			return nil, nil, types.WrapConfigurationError("cache", err, "open pebble cache at %s", c.Path)
		}
		return pc, pc.Close, nil
	}
	return nil, nil, types.NewConfigurationError("cache", "unknown cache backend %q", c.Backend)
}

// Logger 根据配置创建 logger，LOG_* 环境变量优先。
func (l LoggingConfig) Logger(w io.Writer) *slog.Logger {
	cfg := logger.DefaultConfig()
	if level, ok := logger.ParseLevel(l.Level); ok {
		cfg.Level = level
	}
	if f := strings.ToLower(l.Format); f == "text" || f == "json" {
		cfg.Format = f
	}
	cfg.AddSource = l.AddSource
	if w != nil {
		cfg.Writer = w
	}
	return logger.New(logger.ApplyEnv(cfg))
}
