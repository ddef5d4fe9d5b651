package types

// Rows 是结果集上的游标，pos 从 -1 开始。
// 越界后游标状态无意义，需调用 First 重置。
type Rows struct {
	data []*Record
	pos  int
}

// NewRows 创建游标
func NewRows(data []*Record) *Rows {
	return &Rows{data: data, pos: -1}
}

// Next 移动到下一行，返回该行；没有更多数据时返回 nil。
func (r *Rows) Next() *Record {
	r.pos++
	return r.Current()
}

// Prev 移动到上一行
func (r *Rows) Prev() *Record {
	r.pos--
	return r.Current()
}

// First 重置到第一行
func (r *Rows) First() *Record {
	r.pos = 0
	return r.Current()
}

// Last 移动到最后一行
func (r *Rows) Last() *Record {
	r.pos = len(r.data) - 1
	return r.Current()
}

// Current 返回当前行，越界返回 nil
func (r *Rows) Current() *Record {
	if r.pos < 0 || r.pos >= len(r.data) {
		return nil
	}
	return r.data[r.pos]
}

// Pos 返回当前位置
func (r *Rows) Pos() int {
	return r.pos
}

// At 返回指定位置的行
func (r *Rows) At(i int) *Record {
	if i < 0 || i >= len(r.data) {
		return nil
	}
	return r.data[i]
}

// All 返回所有行
func (r *Rows) All() []*Record {
	return r.data
}

// Count 返回行数
func (r *Rows) Count() int {
	return len(r.data)
}
