package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Pair 是有序条件中的一个键值对
type Pair struct {
	Key   string
	Value any
}

// Where 是保持顺序的松散条件，例如
//
//	types.Where{{"status", true}, {"age >=", 18}, {"OR", types.Where{{"a", 1}, {"b", 2}}}}
type Where []Pair

// W 由交替的键和值构造 Where，键必须为字符串。
func W(kv ...any) Where {
	out := make(Where, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Pair{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return out
}

// Params 是无序的查询参数。键按字典序处理。
type Params map[string]any

// specKeys 是可以路由到 QuerySpec 的参数名
var specKeys = map[string]bool{
	"fields": true, "table": true, "joins": true, "hints": true, "conditions": true,
	"group": true, "having": true, "order": true, "limit": true, "offset": true,
}

// Pairs 按键的字典序返回键值对
func (p Params) Pairs() Where {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Where, len(keys))
	for i, k := range keys {
		out[i] = Pair{Key: k, Value: p[k]}
	}
	return out
}

// routed 报告参数是否应按 QuerySpec 字段路由：
// 存在数字键或任意已知字段名时为 true，否则整个 map 视为条件。
func (p Params) routed() bool {
	for k := range p {
		key := strings.ToLower(strings.TrimSpace(k))
		if specKeys[key] || isDigits(key) {
			return true
		}
	}
	return false
}

// Spec 将参数应用到 base 上并返回新的 spec。
func (p Params) Spec(base QuerySpec, idColumn string) (QuerySpec, error) {
	if !p.routed() {
		cond, err := ParseConditions(p, idColumn)
		if err != nil {
			return base, err
		}
		return base.Merge(QuerySpec{Conditions: cond}), nil
	}
	var o QuerySpec
	var err error
	for _, pair := range p.Pairs() {
		switch strings.ToLower(strings.TrimSpace(pair.Key)) {
		case "fields":
			o.Fields, err = stringList("fields", pair.Value)
		case "table":
			o.Table, err = stringValue("table", pair.Value)
		case "joins":
			o.Joins, err = joinList(pair.Value, idColumn)
		case "hints":
			o.Hints, err = hintList(pair.Value)
		case "conditions":
			o.Conditions, err = ParseConditions(pair.Value, idColumn)
		case "group":
			o.Group, err = stringList("group", pair.Value)
		case "having":
			o.Having, err = ParseConditions(pair.Value, idColumn)
		case "order":
			o.Order, err = stringList("order", pair.Value)
		case "limit":
			o.Limit, err = intValue("limit", pair.Value)
		case "offset":
			o.Offset, err = intValue("offset", pair.Value)
		}
		if err != nil {
			return base, err
		}
	}
	return base.Merge(o), nil
}

// ParseConditions 将松散形式转换为条件树：
// Where/Params/map 为键值条件，字符串为原始片段，标量切片为 idColumn IN (...)。
func ParseConditions(v any, idColumn string) (*Condition, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case *Condition:
		return c, nil
	case Condition:
		return &c, nil
	case *CondBuilder:
		return c.Build(), nil
	case Where:
		return parsePairs(c, And, idColumn)
	case []Pair:
		return parsePairs(c, And, idColumn)
	case Params:
		return parsePairs(c.Pairs(), And, idColumn)
	case map[string]any:
		return parsePairs(Params(c).Pairs(), And, idColumn)
	case string:
		if strings.TrimSpace(c) == "" {
			return nil, nil
		}
		return RawCondition(c), nil
	}
	if list, ok := ValueList(v); ok {
		if idColumn == "" {
			return nil, NewInputError("conditions", "a value list needs an id column")
		}
		return Leaf(idColumn, OpDefault, list), nil
	}
	return nil, NewInputError("conditions", "unsupported condition value of type %T", v)
}

func nestedPairs(v any) (Where, bool) {
	switch c := v.(type) {
	case Where:
		return c, true
	case []Pair:
		return c, true
	case Params:
		return c.Pairs(), true
	case map[string]any:
		return Params(c).Pairs(), true
	}
	return nil, false
}

// groupKey 识别 AND/&&/OR/||/XOR 以及可选的 NOT 后缀，裸 NOT 等价于 AND NOT。
func groupKey(key string) (Combinator, bool, bool) {
	fields := strings.Fields(strings.ToUpper(key))
	switch len(fields) {
	case 1:
		if fields[0] == "NOT" {
			return And, true, true
		}
		logic, ok := ParseCombinator(fields[0])
		return logic, false, ok
	case 2:
		if fields[1] != "NOT" {
			return "", false, false
		}
		logic, ok := ParseCombinator(fields[0])
		return logic, true, ok
	}
	return "", false, false
}

func parsePairs(pairs Where, logic Combinator, idColumn string) (*Condition, error) {
	g := Group(logic)
	for _, pair := range pairs {
		key := strings.TrimSpace(pair.Key)
		if key == "" {
			return nil, NewInputError("conditions", "empty condition key")
		}
		if isDigits(key) {
			if s, ok := pair.Value.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			g.Exprs = append(g.Exprs, RawCondition(ScalarString(pair.Value)))
			continue
		}
		if sub, not, ok := groupKey(key); ok {
			var child *Condition
			if nested, isNested := nestedPairs(pair.Value); isNested {
				var err error
				child, err = parsePairs(nested, sub, idColumn)
				if err != nil {
					return nil, err
				}
			} else if c, isCond := pair.Value.(*Condition); isCond {
				child = Group(sub, c)
			} else if s, isStr := pair.Value.(string); isStr {
				child = Group(sub, RawCondition(s))
			} else {
				return nil, NewInputError("conditions", "group %q needs nested conditions, got %T", key, pair.Value)
			}
			if child.Empty() {
				continue
			}
			child.Not = not
			child.Link = sub
			g.Exprs = append(g.Exprs, child)
			continue
		}
		if _, isNested := nestedPairs(pair.Value); isNested {
			return nil, NewInputError("conditions", "column %q cannot take nested conditions", key)
		}
		field, op := SplitKey(key)
		g.Exprs = append(g.Exprs, Leaf(field, op, pair.Value))
	}
	return g, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stringList(name string, v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return []string{s}, nil
	case []string:
		return cloneStrings(s), nil
	}
	list, ok := ValueList(v)
	if !ok {
		return nil, NewInputError(name, "expected a string list, got %T", v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, ScalarString(item))
	}
	return out, nil
}

func stringValue(name string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", NewInputError(name, "expected a string, got %T", v)
	}
	return s, nil
}

func intValue(name string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, NewInputError(name, "%q is not an integer", n)
		}
		return i, nil
	}
	return 0, NewInputError(name, "expected an integer, got %T", v)
}

func joinList(v any, idColumn string) ([]Join, error) {
	switch j := v.(type) {
	case nil:
		return nil, nil
	case Join:
		return []Join{j}, nil
	case []Join:
		return append([]Join(nil), j...), nil
	case string:
		return []Join{{Raw: j}}, nil
	case map[string]any:
		return joinList([]any{j}, idColumn)
	}
	list, ok := ValueList(v)
	if !ok {
		return nil, NewInputError("joins", "unsupported join value of type %T", v)
	}
	out := make([]Join, 0, len(list))
	for _, item := range list {
		switch it := item.(type) {
		case Join:
			out = append(out, it)
		case string:
			out = append(out, Join{Raw: it})
		case map[string]any:
			// {type, table, on}
			j := Join{}
			j.Type, _ = it["type"].(string)
			j.Table, _ = it["table"].(string)
			if on, ok := it["on"]; ok {
				cond, err := ParseConditions(on, "")
				if err != nil {
					return nil, err
				}
				j.On = cond
			}
			if j.Table == "" {
				return nil, NewInputError("joins", "join is missing a table")
			}
			out = append(out, j)
		default:
			return nil, NewInputError("joins", "unsupported join value of type %T", item)
		}
	}
	return out, nil
}

func hintList(v any) ([]Hint, error) {
	switch h := v.(type) {
	case nil:
		return nil, nil
	case Hint:
		return []Hint{h}, nil
	case []Hint:
		return append([]Hint(nil), h...), nil
	case string:
		return []Hint{{Type: h}}, nil
	case []string:
		return []Hint{{Columns: cloneStrings(h)}}, nil
	}
	return nil, NewInputError("hints", "unsupported hint value of type %T", v)
}
