package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record 是一行数据：保持列顺序的列名到值的映射。
// 列顺序决定 INSERT 列表、UPDATE SET 顺序以及 list 模式下的键值列。
type Record struct {
	cols []string
	vals map[string]any
}

// NewRecord 创建空记录。
func NewRecord() *Record {
	return &Record{vals: make(map[string]any)}
}

// RecordOf 按给定列顺序创建记录，values 长度不足的列为 nil。
func RecordOf(cols []string, values []any) *Record {
	r := &Record{cols: make([]string, 0, len(cols)), vals: make(map[string]any, len(cols))}
	for i, c := range cols {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(c, v)
	}
	return r
}

// Set 设置列值，新列追加到末尾。
func (r *Record) Set(col string, value any) *Record {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.vals[col] = value
	return r
}

// Get 原始取值
func (r *Record) Get(col string) any {
	if r == nil {
		return nil
	}
	return r.vals[col]
}

// Lookup 取值并返回列是否存在
func (r *Record) Lookup(col string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.vals[col]
	return v, ok
}

func (r *Record) Has(col string) bool {
	_, ok := r.Lookup(col)
	return ok
}

// Unset 删除列
func (r *Record) Unset(col string) {
	if r == nil {
		return
	}
	if _, ok := r.vals[col]; !ok {
		return
	}
	delete(r.vals, col)
	for i, c := range r.cols {
		if c == col {
			r.cols = append(r.cols[:i:i], r.cols[i+1:]...)
			break
		}
	}
}

// Columns 返回列名（副本）
func (r *Record) Columns() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Values 按列顺序返回值
func (r *Record) Values() []any {
	if r == nil {
		return nil
	}
	out := make([]any, len(r.cols))
	for i, c := range r.cols {
		out[i] = r.vals[c]
	}
	return out
}

// Len 返回列数
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.cols)
}

// Clone 复制记录，列值浅拷贝。
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{cols: make([]string, len(r.cols)), vals: make(map[string]any, len(r.vals))}
	copy(out.cols, r.cols)
	for k, v := range r.vals {
		out.vals[k] = v
	}
	return out
}

// Map 返回无序的 map 视图（副本）
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	if r == nil {
		return out
	}
	for k, v := range r.vals {
		out[k] = v
	}
	return out
}

// String 取字符串
func (r *Record) String(col string) string {
	switch v := r.Get(col).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int 取整数
func (r *Record) Int(col string) int64 {
	switch v := r.Get(col).(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		return n
	}
	return 0
}

// Blank 判断列是否缺失、为 nil 或仅包含空白。
func (r *Record) Blank(col string) bool {
	v, ok := r.Lookup(col)
	if !ok || v == nil {
		return true
	}
	return strings.TrimSpace(ScalarString(v)) == ""
}

// Diff 返回与 base 相比发生变化（或 base 中不存在）的列，保持 r 的列顺序。
func (r *Record) Diff(base *Record) *Record {
	out := NewRecord()
	if r == nil {
		return out
	}
	for _, c := range r.cols {
		v := r.vals[c]
		if old, ok := base.Lookup(c); ok && SameValue(old, v) {
			continue
		}
		out.Set(c, v)
	}
	return out
}

// SameValue 以字符串形式比较两个标量，nil 只与 nil 相等。
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return ScalarString(a) == ScalarString(b)
}

// ScalarString 将标量转换为比较用的字符串形式。
func ScalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

// MarshalJSON 按列顺序编码为 JSON 对象。
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r != nil {
		for i, c := range r.cols {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(c)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			v := r.vals[c]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 解码 JSON 对象并保留键顺序；整数解码为 int64。
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object")
	}
	r.cols = nil
	r.vals = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected string key")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		r.Set(key, normalizeNumber(v))
	}
	_, err = dec.Token()
	return err
}

func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
