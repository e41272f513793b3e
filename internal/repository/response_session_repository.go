package repository

import (
	"equizz_backend/internal/model"
	"equizz_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResponseSessionRepository 匿名答题数据的独立读写入口。
// 本仓库可触达的三张表均不含身份字段，任何查询都无法联出 session_bindings。
type ResponseSessionRepository struct {
	DB *gorm.DB
}

func NewResponseSessionRepository(db *gorm.DB) *ResponseSessionRepository {
	return &ResponseSessionRepository{DB: db}
}

// StartSession 幂等创建会话：(token, evaluation) 已有会话则返回之，
// 供断线/重启后续答。并发开启依赖唯一索引收敛到一个会话。
func (r *ResponseSessionRepository) StartSession(token string, evaluationID, quizID uint) (*model.ResponseSession, error) {
	session := &model.ResponseSession{
		Token:        token,
		EvaluationID: evaluationID,
		QuizID:       quizID,
		Status:       model.SessionInProgress,
	}
	session.ID = model.GenerateUUID()

	res := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}, {Name: "evaluation_id"}},
		DoNothing: true,
	}).Create(session)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		var existing model.ResponseSession
		err := r.DB.Where("token = ? AND evaluation_id = ?", token, evaluationID).
			First(&existing).Error
		if err != nil {
			return nil, err
		}
		return &existing, nil
	}

	return session, nil
}

func (r *ResponseSessionRepository) FindByID(sessionID string) (*model.ResponseSession, error) {
	var s model.ResponseSession
	err := r.DB.Where("id = ?", sessionID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertAnswer 写入/覆盖一题作答。在同一事务内对会话行加锁后校验
// 状态，避免与并发 Submit 交错出现提交后写入。
func (r *ResponseSessionRepository) UpsertAnswer(sessionID string, questionID uint, content string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var session model.ResponseSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sessionID).First(&session).Error
		if err == gorm.ErrRecordNotFound {
			return util.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if session.Status == model.SessionSubmitted {
			return util.ErrSessionAlreadySubmitted
		}

		answer := &model.ResponseAnswer{
			SessionID:  sessionID,
			QuestionID: questionID,
			Content:    content,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).Create(answer).Error
	})
}

// Submit 条件更新完成终态翻转：status 仍为 IN_PROGRESS 才生效，
// 影响行数为 0 即并发方已提交。翻转与时间戳写入同一条 UPDATE，
// 对读者而言提交要么完整可见要么不可见。
func (r *ResponseSessionRepository) Submit(sessionID string, now time.Time) (*model.ResponseSession, error) {
	res := r.DB.Model(&model.ResponseSession{}).
		Where("id = ? AND status = ?", sessionID, model.SessionInProgress).
		Updates(map[string]interface{}{
			"status":       model.SessionSubmitted,
			"submitted_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	session, err := r.FindByID(sessionID)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if res.RowsAffected == 0 {
		return session, util.ErrAlreadySubmitted
	}
	return session, nil
}

func (r *ResponseSessionRepository) ListAnswers(sessionID string) ([]model.ResponseAnswer, error) {
	var answers []model.ResponseAnswer
	err := r.DB.Where("session_id = ?", sessionID).Order("question_id asc").Find(&answers).Error
	return answers, err
}

func (r *ResponseSessionRepository) CountAnswers(sessionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ResponseAnswer{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

// ListSubmittedByEvaluation 结果侧读取：只返回匿名会话，绝不联 session_bindings
func (r *ResponseSessionRepository) ListSubmittedByEvaluation(evaluationID uint, page, limit int) ([]model.ResponseSession, int64, error) {
	var sessions []model.ResponseSession
	var total int64
	query := r.DB.Model(&model.ResponseSession{}).
		Where("evaluation_id = ? AND status = ?", evaluationID, model.SessionSubmitted)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("submitted_at asc").Offset(offset).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}

func (r *ResponseSessionRepository) CountByEvaluation(evaluationID uint, status model.SessionStatus) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ResponseSession{}).
		Where("evaluation_id = ? AND status = ?", evaluationID, status).
		Count(&count).Error
	return count, err
}

// AnswersByEvaluationQuestion 某考核某题的全部匿名作答，供分布统计
func (r *ResponseSessionRepository) AnswersByEvaluationQuestion(evaluationID, questionID uint) ([]model.ResponseAnswer, error) {
	var answers []model.ResponseAnswer
	err := r.DB.
		Joins("JOIN response_sessions ON response_sessions.id = response_answers.session_id").
		Where("response_sessions.evaluation_id = ? AND response_sessions.status = ? AND response_answers.question_id = ?",
			evaluationID, model.SessionSubmitted, questionID).
		Find(&answers).Error
	return answers, err
}
