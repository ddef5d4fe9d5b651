package types

import (
	"reflect"
	"strings"
)

// ConditionKind 区分条件树节点类型
type ConditionKind uint8

const (
	CondLeaf ConditionKind = iota
	CondGroup
	CondRaw
)

// ConditionOp 是叶子节点的比较运算符，OpDefault 表示未显式指定。
type ConditionOp string

const (
	OpDefault ConditionOp = ""
	OpEq      ConditionOp = "="
	OpNe      ConditionOp = "!="
	OpBang    ConditionOp = "!"
	OpLtGt    ConditionOp = "<>"
	OpLt      ConditionOp = "<"
	OpLte     ConditionOp = "<="
	OpGt      ConditionOp = ">"
	OpGte     ConditionOp = ">="
	OpLike    ConditionOp = "LIKE"
	OpNotLike ConditionOp = "NOT LIKE"
	OpIs      ConditionOp = "IS"
	OpIsNot   ConditionOp = "IS NOT"
	OpBetween ConditionOp = "BETWEEN"
	OpIn      ConditionOp = "IN"
	OpNotIn   ConditionOp = "NOT IN"
)

// 按长度降序排列，解析键尾部运算符时先匹配长的。
var knownOps = []ConditionOp{
	OpNotLike, OpBetween, OpIsNot, OpNotIn, OpLike,
	OpLte, OpGte, OpNe, OpLtGt, OpIs, OpIn,
	OpEq, OpLt, OpGt, OpBang,
}

// Negated 报告运算符是否为否定形式（布尔/NULL 值时改写为 IS NOT）。
func (op ConditionOp) Negated() bool {
	switch op {
	case OpNe, OpBang, OpLtGt, OpIsNot, OpNotLike, OpNotIn:
		return true
	}
	return false
}

// Valid 报告运算符是否受支持
func (op ConditionOp) Valid() bool {
	if op == OpDefault {
		return true
	}
	for _, k := range knownOps {
		if k == op {
			return true
		}
	}
	return false
}

// Combinator 是组合节点的布尔连接词
type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
	Xor Combinator = "XOR"
)

// ParseCombinator 识别 AND/&&/OR/||/XOR。
func ParseCombinator(s string) (Combinator, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND", "&&":
		return And, true
	case "OR", "||":
		return Or, true
	case "XOR":
		return Xor, true
	}
	return "", false
}

// Condition 是递归条件树：叶子 {Field, Op, Value}、组合 {Logic, Not, Exprs} 或原始 SQL 片段。
// Link 指定节点与前一个兄弟节点之间的连接词，为空时使用父节点的 Logic。
type Condition struct {
	Kind  ConditionKind
	Op    ConditionOp
	Field string
	Value any
	Logic Combinator
	Not   bool
	Exprs []*Condition
	Raw   string
	Args  []any
	Link  Combinator
}

// Leaf 创建叶子条件
func Leaf(field string, op ConditionOp, value any) *Condition {
	return &Condition{Kind: CondLeaf, Field: strings.TrimSpace(field), Op: op, Value: value}
}

// Group 创建组合条件，nil 子节点被忽略。
func Group(logic Combinator, exprs ...*Condition) *Condition {
	g := &Condition{Kind: CondGroup, Logic: logic}
	for _, e := range exprs {
		if e != nil {
			g.Exprs = append(g.Exprs, e)
		}
	}
	return g
}

// AllOf 以 AND 组合
func AllOf(exprs ...*Condition) *Condition { return Group(And, exprs...) }

// AnyOf 以 OR 组合
func AnyOf(exprs ...*Condition) *Condition { return Group(Or, exprs...) }

// NoneOf 创建 AND NOT 组合
func NoneOf(exprs ...*Condition) *Condition {
	g := Group(And, exprs...)
	g.Not = true
	return g
}

// RawCondition 创建原始 SQL 片段（不做任何转义，仅用于可信字符串）。
func RawCondition(sql string, args ...any) *Condition {
	return &Condition{Kind: CondRaw, Raw: sql, Args: args}
}

// Empty 报告条件是否不产生任何 SQL
func (c *Condition) Empty() bool {
	if c == nil {
		return true
	}
	switch c.Kind {
	case CondGroup:
		for _, e := range c.Exprs {
			if !e.Empty() {
				return false
			}
		}
		return true
	case CondRaw:
		return strings.TrimSpace(c.Raw) == ""
	}
	return false
}

// Clone 深拷贝条件树（值本身不复制）。
func (c *Condition) Clone() *Condition {
	if c == nil {
		return nil
	}
	out := *c
	if c.Exprs != nil {
		out.Exprs = make([]*Condition, len(c.Exprs))
		for i, e := range c.Exprs {
			out.Exprs[i] = e.Clone()
		}
	}
	if c.Args != nil {
		out.Args = append([]any(nil), c.Args...)
	}
	return &out
}

// AndWith 返回 c AND extra；c 为非否定 AND 组时展开其子节点，避免多余括号。
func (c *Condition) AndWith(extra ...*Condition) *Condition {
	if c.Empty() {
		if len(extra) == 1 {
			return extra[0]
		}
		return AllOf(extra...)
	}
	if c.Kind == CondGroup && c.Logic == And && !c.Not && plainLinks(c) {
		merged := c.Clone()
		merged.Exprs = append(merged.Exprs, extra...)
		return merged
	}
	return AllOf(append([]*Condition{c}, extra...)...)
}

// plainLinks 报告组内所有子节点是否都以 AND 连接
func plainLinks(c *Condition) bool {
	for _, e := range c.Exprs {
		if e != nil && e.Link != "" && e.Link != And {
			return false
		}
	}
	return true
}

// ValueList 将切片/数组值展开为 []any；[]byte 视为标量。
func ValueList(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil, []byte, string:
		return nil, false
	case []any:
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// SplitKey 拆分带尾部运算符的列键，例如 "age >=" -> ("age", ">=")。
func SplitKey(key string) (string, ConditionOp) {
	key = strings.TrimSpace(key)
	upper := strings.ToUpper(key)
	for _, op := range knownOps {
		s := string(op)
		if !strings.HasSuffix(upper, s) {
			continue
		}
		field := strings.TrimSpace(key[:len(key)-len(s)])
		if field == "" {
			continue
		}
		// 单词运算符前必须有空格，避免把 "origin" 识别成 "IN"
		if isWordOp(op) && !strings.HasSuffix(key[:len(key)-len(s)], " ") {
			continue
		}
		return field, op
	}
	return key, OpDefault
}

func isWordOp(op ConditionOp) bool {
	c := string(op)[0]
	return c >= 'A' && c <= 'Z'
}
