package model

import (
	"log/slog"

	"github.com/Kaguya154/dbmodel/logger"
	"github.com/Kaguya154/dbmodel/parser"
	"github.com/Kaguya154/dbmodel/types"
)

// Definition 描述一个模型绑定的表及其写入行为。
type Definition struct {
	// Name 用作缓存键前缀，默认为表名
	Name string
	// Spec 是构造时的查询默认值，每次 Execute 前恢复到它
	Spec types.QuerySpec
	// Columns 为 nil 时使用 DefaultColumns
	Columns *types.ColumnMap
	// Replace 使单行提交总是使用 REPLACE 写入完整记录
	Replace bool
	// Priority/Delayed/Ignore 是 MySQL 的 INSERT 修饰
	Priority string
	Delayed  bool
	Ignore   bool
}

// Model 是绑定到单张表的查询/提交引擎，不能并发使用。
type Model struct {
	conn    types.Conn
	parser  *parser.SQLParser
	name    string
	columns types.ColumnMap
	insert  parser.InsertOptions
	replace bool

	cache  types.Cache
	clock  types.Clock
	users  types.UserProvider
	logger *slog.Logger

	snapshot types.QuerySpec
	spec     types.QuerySpec

	mode     types.QueryMode
	rows     *types.Rows
	entries  []types.Entry
	original []*types.Record
	record   *types.Record
	base     *types.Record
	walking  bool

	queued bool
	queue  []*types.Record

	last types.Statement
}

// Option 配置 Model
type Option func(*Model)

// WithCache 启用按主键查询的结果缓存
func WithCache(c types.Cache) Option {
	return func(m *Model) { m.cache = c }
}

// WithClock 替换审计列使用的时间源
func WithClock(c types.Clock) Option {
	return func(m *Model) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithUserProvider 设置审计 *_id 列使用的当前用户
func WithUserProvider(u types.UserProvider) Option {
	return func(m *Model) {
		if u != nil {
			m.users = u
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// New 创建模型。表名缺失、列映射不合法、连接为空或方言不支持 REPLACE 时返回 ConfigurationError。
func New(conn types.Conn, def Definition, opts ...Option) (*Model, error) {
	if conn == nil {
		return nil, types.NewConfigurationError("model", "unset driver")
	}
	if def.Spec.Table == "" {
		return nil, types.NewConfigurationError("model", "you must set the table")
	}
	columns := types.DefaultColumns()
	if def.Columns != nil {
		columns = *def.Columns
	}
	if err := columns.Validate(); err != nil {
		return nil, err
	}
	if def.Replace && conn.Kind() == types.DriverPostgreSQL {
		return nil, types.NewConfigurationError("model", "replace is not supported by %s", conn.Kind())
	}
	name := def.Name
	if name == "" {
		name = def.Spec.Table
	}

	m := &Model{
		conn:    conn,
		parser:  parser.New(conn.Kind()),
		name:    name,
		columns: columns,
		insert: parser.InsertOptions{
			Priority: def.Priority,
			Delayed:  def.Delayed,
			Ignore:   def.Ignore,
		},
		replace:  def.Replace,
		clock:    types.SystemClock,
		users:    types.NoUser,
		logger:   logger.Default(),
		snapshot: def.Spec.Clone(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reset(types.ModeNone)
	return m, nil
}

// reset 恢复查询构建状态并清空结果集，队列保持不变。
func (m *Model) reset(mode types.QueryMode) {
	m.spec = m.snapshot.Clone()
	m.mode = mode
	m.rows = types.NewRows(nil)
	m.entries = nil
	m.original = nil
	m.record = types.NewRecord()
	m.base = nil
	m.walking = false
}

// Name 返回缓存键前缀
func (m *Model) Name() string { return m.name }

// Columns 返回列映射
func (m *Model) Columns() types.ColumnMap { return m.columns }

// Spec 返回最近一次 Execute 使用的 QuerySpec
func (m *Model) Spec() types.QuerySpec { return m.spec.Clone() }

// Mode 返回最近一次 Execute 的模式
func (m *Model) Mode() types.QueryMode { return m.mode }

// Queued 报告是否已进入批量提交模式
func (m *Model) Queued() bool { return m.queued }

// QueueLen 返回待提交的记录数
func (m *Model) QueueLen() int { return len(m.queue) }

// Record 返回当前记录，越界时为 nil。
func (m *Model) Record() *types.Record { return m.record }

// Set 设置当前记录的列值
func (m *Model) Set(col string, value any) *Model {
	if m.record == nil {
		m.record = types.NewRecord()
	}
	m.record.Set(col, value)
	return m
}

// Get 读取当前记录的列值
func (m *Model) Get(col string) any { return m.record.Get(col) }

// Records 返回结果集
func (m *Model) Records() []*types.Record { return m.rows.All() }

// Entries 返回 list / indexed 模式折叠后的键值对
func (m *Model) Entries() []types.Entry { return m.entries }

// Len 返回结果集行数
func (m *Model) Len() int { return m.rows.Count() }

// Index 返回游标位置
func (m *Model) Index() int { return m.rows.Pos() }

// Original 返回加载时的快照（只读）
func (m *Model) Original() []*types.Record { return m.original }

func (m *Model) moved(r *types.Record) *types.Record {
	m.record = r
	m.base = nil
	if r != nil {
		if i := m.rows.Pos(); i >= 0 && i < len(m.original) {
			m.base = m.original[i]
		}
	}
	return r
}

// Next 前进一行，越界返回 nil
func (m *Model) Next() *types.Record { return m.moved(m.rows.Next()) }

// Prev 后退一行，越界返回 nil
func (m *Model) Prev() *types.Record { return m.moved(m.rows.Prev()) }

// First 回到第一行
func (m *Model) First() *types.Record { return m.moved(m.rows.First()) }

// Reset 等同于 First
func (m *Model) Reset() *types.Record { return m.First() }

// Last 移动到最后一行
func (m *Model) Last() *types.Record { return m.moved(m.rows.Last()) }

// End 等同于 Last
func (m *Model) End() *types.Record { return m.Last() }

// Walk 首次调用返回第一行，之后每次前进一行，结束时返回 nil。
//
//	for r := m.Walk(); r != nil; r = m.Walk() { ... }
func (m *Model) Walk() *types.Record {
	if !m.walking {
		m.walking = true
		return m.First()
	}
	return m.Next()
}
