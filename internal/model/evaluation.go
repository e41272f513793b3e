package model

import "time"

// EvaluationState 考核窗口状态，由墙钟时间纯函数推导，从不落库
type EvaluationState string

const (
	EvaluationScheduled EvaluationState = "SCHEDULED"
	EvaluationOpen      EvaluationState = "OPEN"
	EvaluationClosed    EvaluationState = "CLOSED"
)

// swagger:model Evaluation
type Evaluation struct {
	BaseModel
	QuizID      uint      `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	ClassGroup  string    `gorm:"size:100;index" json:"classGroup"` // 面向的班级，空表示全体
	OpensAt     time.Time `gorm:"not null" json:"opensAt"`
	ClosesAt    time.Time `gorm:"not null" json:"closesAt"`
	ForceClosed bool      `gorm:"default:false" json:"forceClosed"` // 管理员单向提前关闭
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// StateAt 返回 now 时刻的窗口状态。CLOSED 为终态：到达关闭时间
// 或被管理员强制关闭后不再回退。
func (e *Evaluation) StateAt(now time.Time) EvaluationState {
	if e.ForceClosed || !now.Before(e.ClosesAt) {
		return EvaluationClosed
	}
	if now.Before(e.OpensAt) {
		return EvaluationScheduled
	}
	return EvaluationOpen
}
