package types

// ColumnMap 将语义列槽位映射到物理列名，空字符串表示该槽位被禁用。
// 被禁用的槽位不会出现在生成的 SQL 中；启用 IsDeleted 后删除变为软删除。
type ColumnMap struct {
	ID        string
	CreatedAt string
	CreatedID string
	UpdatedAt string
	UpdatedID string
	DeletedAt string
	DeletedID string
	IsDeleted string
}

// DefaultColumns 返回所有槽位启用、列名与槽位同名的映射。
func DefaultColumns() ColumnMap {
	return ColumnMap{
		ID:        "id",
		CreatedAt: "created_at",
		CreatedID: "created_id",
		UpdatedAt: "updated_at",
		UpdatedID: "updated_id",
		DeletedAt: "deleted_at",
		DeletedID: "deleted_id",
		IsDeleted: "is_deleted",
	}
}

// IDOnlyColumns 只保留 id 槽位。
func IDOnlyColumns() ColumnMap {
	return ColumnMap{ID: "id"}
}

// SlotNames 列出所有槽位名称，顺序固定。
var SlotNames = []string{"id", "created_at", "created_id", "updated_at", "updated_id", "deleted_at", "deleted_id", "is_deleted"}

// Slot 返回槽位对应的列名指针，未知槽位返回 nil。
func (c *ColumnMap) Slot(name string) *string {
	switch name {
	case "id":
		return &c.ID
	case "created_at":
		return &c.CreatedAt
	case "created_id":
		return &c.CreatedID
	case "updated_at":
		return &c.UpdatedAt
	case "updated_id":
		return &c.UpdatedID
	case "deleted_at":
		return &c.DeletedAt
	case "deleted_id":
		return &c.DeletedID
	case "is_deleted":
		return &c.IsDeleted
	}
	return nil
}

// SoftDelete 表示是否启用了软删除
func (c ColumnMap) SoftDelete() bool {
	return c.IsDeleted != ""
}

// IsAudit 判断列名是否为已启用的审计列
func (c ColumnMap) IsAudit(col string) bool {
	if col == "" {
		return false
	}
	switch col {
	case c.CreatedAt, c.CreatedID, c.UpdatedAt, c.UpdatedID, c.DeletedAt, c.DeletedID:
		return true
	}
	return false
}

// Validate 检查映射：id 必须设置，已启用的槽位不能共用同一列。
func (c ColumnMap) Validate() error {
	if c.ID == "" {
		return NewConfigurationError("columns", "the id column must be mapped")
	}
	seen := make(map[string]string, len(SlotNames))
	for _, name := range SlotNames {
		col := *c.Slot(name)
		if col == "" {
			continue
		}
		if other, ok := seen[col]; ok {
			return NewConfigurationError("columns", "slots %s and %s both map to column %q", other, name, col)
		}
		seen[col] = name
	}
	return nil
}
