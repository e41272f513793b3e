package model

// SessionBinding 身份与匿名令牌唯一的共存之处。
// 仅 BindOrGet / HasBinding 两条路径可读；任何答题/统计接口都不得
// 序列化本模型，身份与令牌字段一律不出现在 JSON 输出中。
type SessionBinding struct {
	BaseModel
	UserID       uint   `gorm:"uniqueIndex:idx_binding_user_evaluation;type:bigint unsigned;not null" json:"-"`
	EvaluationID uint   `gorm:"uniqueIndex:idx_binding_user_evaluation;type:bigint unsigned;not null" json:"-"`
	Token        string `gorm:"size:36;uniqueIndex;not null" json:"-"`
}

func (SessionBinding) TableName() string {
	return "session_bindings"
}
