package parser

import (
	"encoding/json"

	"github.com/Kaguya154/dbmodel/types"
)

// JSONParser 以 JSON 风格描述条件树，便于调试和命令行输出。
type JSONParser struct{}

var opNameMap = map[types.ConditionOp]string{
	types.OpDefault: "$eq",
	types.OpEq:      "$eq",
	types.OpNe:      "$ne",
	types.OpBang:    "$ne",
	types.OpLtGt:    "$ne",
	types.OpGt:      "$gt",
	types.OpGte:     "$gte",
	types.OpLt:      "$lt",
	types.OpLte:     "$lte",
	types.OpLike:    "$like",
	types.OpNotLike: "$nlike",
	types.OpIs:      "$is",
	types.OpIsNot:   "$isnot",
	types.OpBetween: "$between",
	types.OpIn:      "$in",
	types.OpNotIn:   "$nin",
}

var logicNameMap = map[types.Combinator]string{
	types.And: "$and",
	types.Or:  "$or",
	types.Xor: "$xor",
}

// Parse 返回条件树的 JSON 描述
func (p *JSONParser) Parse(c *types.Condition) (string, error) {
	b, err := json.Marshal(buildJSONFilter(c))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// buildJSONFilter 递归构建条件描述
func buildJSONFilter(c *types.Condition) map[string]any {
	if c.Empty() {
		return nil
	}
	var out map[string]any
	switch c.Kind {
	case types.CondRaw:
		out = map[string]any{"$raw": c.Raw}
		if len(c.Args) > 0 {
			out["$args"] = c.Args
		}
	case types.CondLeaf:
		op := c.Op
		if op == types.OpDefault {
			if _, ok := types.ValueList(c.Value); ok {
				op = types.OpIn
			} else if c.Value == nil {
				op = types.OpIs
			}
		}
		out = map[string]any{c.Field: map[string]any{opNameMap[op]: c.Value}}
	default:
		logic := c.Logic
		if logic == "" {
			logic = types.And
		}
		arr := make([]any, 0, len(c.Exprs))
		for _, e := range c.Exprs {
			if f := buildJSONFilter(e); f != nil {
				arr = append(arr, f)
			}
		}
		out = map[string]any{logicNameMap[logic]: arr}
	}
	if c.Not {
		return map[string]any{"$not": out}
	}
	return out
}
