package types

// CondBuilder 用于构建条件树的结构体。
type CondBuilder struct {
	exprs []*Condition
}

// NewCondition 创建并返回一个新的 CondBuilder 实例。
func NewCondition() *CondBuilder {
	return &CondBuilder{
		exprs: make([]*Condition, 0),
	}
}

func (b *CondBuilder) add(field string, op ConditionOp, value any) *CondBuilder {
	b.exprs = append(b.exprs, Leaf(field, op, value))
	return b
}

// Where 添加默认条件：标量为 =，切片为 IN，布尔与 nil 为 IS。
func (b *CondBuilder) Where(field string, value any) *CondBuilder {
	return b.add(field, OpDefault, value)
}

// Eq 添加等于条件（=）。
func (b *CondBuilder) Eq(field string, value any) *CondBuilder {
	return b.add(field, OpEq, value)
}

// Ne 添加不等于条件（!=）。
func (b *CondBuilder) Ne(field string, value any) *CondBuilder {
	return b.add(field, OpNe, value)
}

// Gt 添加大于条件（>）。
func (b *CondBuilder) Gt(field string, value any) *CondBuilder {
	return b.add(field, OpGt, value)
}

// Gte 添加大于等于条件（>=）。
func (b *CondBuilder) Gte(field string, value any) *CondBuilder {
	return b.add(field, OpGte, value)
}

// Lt 添加小于条件（<）。
func (b *CondBuilder) Lt(field string, value any) *CondBuilder {
	return b.add(field, OpLt, value)
}

// Lte 添加小于等于条件（<=）。
func (b *CondBuilder) Lte(field string, value any) *CondBuilder {
	return b.add(field, OpLte, value)
}

// Like 添加模糊匹配条件（LIKE）。
func (b *CondBuilder) Like(field string, pattern string) *CondBuilder {
	return b.add(field, OpLike, pattern)
}

// NotLike 添加 NOT LIKE 条件。
func (b *CondBuilder) NotLike(field string, pattern string) *CondBuilder {
	return b.add(field, OpNotLike, pattern)
}

// In 添加 IN 查询条件。
func (b *CondBuilder) In(field string, values []any) *CondBuilder {
	return b.add(field, OpIn, values)
}

// NotIn 添加 NOT IN 查询条件。
func (b *CondBuilder) NotIn(field string, values []any) *CondBuilder {
	return b.add(field, OpNotIn, values)
}

// Between 添加 BETWEEN 条件。
func (b *CondBuilder) Between(field string, low, high any) *CondBuilder {
	return b.add(field, OpBetween, []any{low, high})
}

// IsNull 添加 IS NULL 条件。
func (b *CondBuilder) IsNull(field string) *CondBuilder {
	return b.add(field, OpIs, nil)
}

// IsNotNull 添加 IS NOT NULL 条件。
func (b *CondBuilder) IsNotNull(field string) *CondBuilder {
	return b.add(field, OpIsNot, nil)
}

// And 组合多个条件为 AND。
func (b *CondBuilder) And(conds ...*CondBuilder) *CondBuilder {
	return b.group(And, false, conds)
}

// Or 组合多个条件为 OR。
func (b *CondBuilder) Or(conds ...*CondBuilder) *CondBuilder {
	return b.group(Or, false, conds)
}

// Xor 组合多个条件为 XOR。
func (b *CondBuilder) Xor(conds ...*CondBuilder) *CondBuilder {
	return b.group(Xor, false, conds)
}

// Not 组合多个条件为 AND NOT (...)。
func (b *CondBuilder) Not(conds ...*CondBuilder) *CondBuilder {
	return b.group(And, true, conds)
}

func (b *CondBuilder) group(logic Combinator, not bool, conds []*CondBuilder) *CondBuilder {
	g := Group(logic)
	g.Not = not
	for _, c := range conds {
		if c == nil {
			continue
		}
		// 每个子构建器作为一个整体参与组合
		if e := c.Build(); e != nil {
			g.Exprs = append(g.Exprs, e)
		}
	}
	if len(g.Exprs) > 0 {
		b.exprs = append(b.exprs, g)
	}
	return b
}

// Cond 直接追加一个已有的条件节点。
func (b *CondBuilder) Cond(c *Condition) *CondBuilder {
	if c != nil {
		b.exprs = append(b.exprs, c)
	}
	return b
}

// Raw 添加原始条件（不安全，慎用）。
func (b *CondBuilder) Raw(raw string, args ...any) *CondBuilder {
	b.exprs = append(b.exprs, RawCondition(raw, args...))
	return b
}

// Build 生成最终的条件树。
// 返回值：
//   - *types.Condition: 单个条件直接返回，多个条件以 AND 连接
func (b *CondBuilder) Build() *Condition {
	if len(b.exprs) == 0 {
		return nil
	}
	if len(b.exprs) == 1 {
		return b.exprs[0]
	}
	return Group(And, b.exprs...)
}
