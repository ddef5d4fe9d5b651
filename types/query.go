package types

import (
	"strings"
)

// Join 是一个 JOIN 子句。Raw 非空时原样输出，否则由 Type/Table/On 组装，
// On 条件以字面量内联（仅用于可信字符串）。
type Join struct {
	Type  string
	Table string
	On    *Condition
	Raw   string
}

// Keyword 返回 JOIN 关键字，例如 "LEFT" -> "LEFT JOIN"。
func (j Join) Keyword() string {
	t := strings.ToUpper(strings.TrimSpace(j.Type))
	switch {
	case t == "":
		return "JOIN"
	case strings.HasSuffix(t, "JOIN"):
		return t
	}
	return t + " JOIN"
}

// Hint 是索引提示，只在 MySQL 下输出。Columns 为空时 Type 原样输出。
type Hint struct {
	Type    string
	Columns []string
}

// Keyword 返回提示关键字，默认 USE INDEX。
func (h Hint) Keyword() string {
	t := strings.ToUpper(strings.TrimSpace(h.Type))
	switch t {
	case "":
		return "USE INDEX"
	case "USE", "FORCE", "IGNORE":
		return t + " INDEX"
	}
	return t
}

// QuerySpec 描述一次 SELECT 的各个部分。
type QuerySpec struct {
	Fields     []string
	Table      string
	Joins      []Join
	Hints      []Hint
	Conditions *Condition
	Group      []string
	Having     *Condition
	Order      []string
	Limit      int
	Offset     int
}

// Clone 复制 spec，条件树深拷贝。
func (s QuerySpec) Clone() QuerySpec {
	out := s
	out.Fields = cloneStrings(s.Fields)
	out.Group = cloneStrings(s.Group)
	out.Order = cloneStrings(s.Order)
	if s.Joins != nil {
		out.Joins = make([]Join, len(s.Joins))
		for i, j := range s.Joins {
			j.On = j.On.Clone()
			out.Joins[i] = j
		}
	}
	if s.Hints != nil {
		out.Hints = make([]Hint, len(s.Hints))
		for i, h := range s.Hints {
			h.Columns = cloneStrings(h.Columns)
			out.Hints[i] = h
		}
	}
	out.Conditions = s.Conditions.Clone()
	out.Having = s.Having.Clone()
	return out
}

// Merge 以 o 中的非零字段覆盖 s，返回新的 spec。
func (s QuerySpec) Merge(o QuerySpec) QuerySpec {
	out := s.Clone()
	if len(o.Fields) > 0 {
		out.Fields = cloneStrings(o.Fields)
	}
	if o.Table != "" {
		out.Table = o.Table
	}
	if len(o.Joins) > 0 {
		out.Joins = o.Clone().Joins
	}
	if len(o.Hints) > 0 {
		out.Hints = o.Clone().Hints
	}
	if o.Conditions != nil {
		out.Conditions = o.Conditions.Clone()
	}
	if len(o.Group) > 0 {
		out.Group = cloneStrings(o.Group)
	}
	if o.Having != nil {
		out.Having = o.Having.Clone()
	}
	if len(o.Order) > 0 {
		out.Order = cloneStrings(o.Order)
	}
	if o.Limit > 0 {
		out.Limit = o.Limit
	}
	if o.Offset > 0 {
		out.Offset = o.Offset
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
