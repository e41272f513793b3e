package model

import "time"

// SessionStatus 答题会话状态
type SessionStatus string

const (
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionSubmitted  SessionStatus = "SUBMITTED"
)

// ResponseSession 一次匿名答题会话。只以匿名令牌 + 考核为键，
// 表内没有任何身份字段，也没有可联表还原身份的外键。
// swagger:model ResponseSession
type ResponseSession struct {
	UUIDBase
	Token        string        `gorm:"size:36;uniqueIndex:idx_session_token_evaluation;not null" json:"token"`
	EvaluationID uint          `gorm:"uniqueIndex:idx_session_token_evaluation;type:bigint unsigned;not null" json:"evaluationId"`
	QuizID       uint          `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	Status       SessionStatus `gorm:"type:enum('IN_PROGRESS','SUBMITTED');default:'IN_PROGRESS'" json:"status"`
	SubmittedAt  *time.Time    `json:"submittedAt,omitempty"`
}

func (ResponseSession) TableName() string {
	return "response_sessions"
}

// ResponseAnswer 会话内某一题的作答，提交后冻结
type ResponseAnswer struct {
	BaseModel
	SessionID  string `gorm:"size:36;uniqueIndex:idx_answer_session_question;not null" json:"sessionId"`
	QuestionID uint   `gorm:"uniqueIndex:idx_answer_session_question;type:bigint unsigned;not null" json:"questionId"`
	Content    string `gorm:"type:json" json:"content"` // JSON 存储学生答案
}

func (ResponseAnswer) TableName() string {
	return "response_answers"
}

// SubmissionReceipt 提交回执：只含匿名令牌与时间，绝不含身份
// swagger:model SubmissionReceipt
type SubmissionReceipt struct {
	Token        string    `json:"token"`
	EvaluationID uint      `json:"evaluationId"`
	SubmittedAt  time.Time `json:"submittedAt"`
	AnswerCount  int       `json:"answerCount"`
}
