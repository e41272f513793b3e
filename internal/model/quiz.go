package model

import "encoding/json"

// swagger:model Quiz
type Quiz struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID       uint            `gorm:"index;type:bigint unsigned" json:"quizId"`
	QuestionType string          `gorm:"size:50;not null" json:"questionType"` // single_choice, multiple_choice, open
	Statement    string          `gorm:"type:text;not null" json:"statement"`
	Options      json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	Points       int             `gorm:"default:1" json:"points"`
	Order        int             `gorm:"default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
