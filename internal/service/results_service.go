package service

import (
	"equizz_backend/internal/model"
	"equizz_backend/internal/repository"
	"equizz_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

// ResultsService 匿名结果侧读路径。只握 ResponseSessionRepository，
// 结构上拿不到 session_bindings，任何输出都无法还原身份。
type ResultsService struct {
	Sessions    *repository.ResponseSessionRepository
	Evaluations *repository.EvaluationRepository
	QuizRepo    *repository.QuizRepository
}

func NewResultsService(sessions *repository.ResponseSessionRepository, evaluations *repository.EvaluationRepository, quizRepo *repository.QuizRepository) *ResultsService {
	return &ResultsService{Sessions: sessions, Evaluations: evaluations, QuizRepo: quizRepo}
}

// EvaluationSummary 考核汇总：匿名计数
// swagger:model EvaluationSummary
type EvaluationSummary struct {
	EvaluationID uint  `json:"evaluationId"`
	Submitted    int64 `json:"submitted"`
	InProgress   int64 `json:"inProgress"`
}

// QuestionDistribution 单题作答分布
// swagger:model QuestionDistribution
type QuestionDistribution struct {
	QuestionID uint           `json:"questionId"`
	Total      int            `json:"total"`
	ByContent  map[string]int `json:"byContent"`
}

func (s *ResultsService) findEvaluation(evaluationID uint) (*model.Evaluation, error) {
	eval, err := s.Evaluations.FindByID(evaluationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEvaluationNotFound
	}
	return eval, err
}

func (s *ResultsService) Summary(evaluationID uint) (*EvaluationSummary, error) {
	if _, err := s.findEvaluation(evaluationID); err != nil {
		return nil, err
	}

	submitted, err := s.Sessions.CountByEvaluation(evaluationID, model.SessionSubmitted)
	if err != nil {
		return nil, err
	}
	inProgress, err := s.Sessions.CountByEvaluation(evaluationID, model.SessionInProgress)
	if err != nil {
		return nil, err
	}

	return &EvaluationSummary{
		EvaluationID: evaluationID,
		Submitted:    submitted,
		InProgress:   inProgress,
	}, nil
}

// ListSubmissions 已提交会话的匿名列表
func (s *ResultsService) ListSubmissions(evaluationID uint, page, limit int) ([]model.ResponseSession, int64, error) {
	if _, err := s.findEvaluation(evaluationID); err != nil {
		return nil, 0, err
	}
	return s.Sessions.ListSubmittedByEvaluation(evaluationID, page, limit)
}

// SessionAnswers 单会话作答明细（按会话ID，匿名）
func (s *ResultsService) SessionAnswers(sessionID string) ([]model.ResponseAnswer, error) {
	if _, err := s.Sessions.FindByID(sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	return s.Sessions.ListAnswers(sessionID)
}

// Distribution 逐题统计已提交作答的内容分布
func (s *ResultsService) Distribution(evaluationID uint) ([]QuestionDistribution, error) {
	eval, err := s.findEvaluation(evaluationID)
	if err != nil {
		return nil, err
	}

	questions, err := s.QuizRepo.ListQuestions(eval.QuizID)
	if err != nil {
		return nil, err
	}

	dists := make([]QuestionDistribution, 0, len(questions))
	for _, q := range questions {
		answers, err := s.Sessions.AnswersByEvaluationQuestion(evaluationID, q.ID)
		if err != nil {
			return nil, err
		}
		d := QuestionDistribution{
			QuestionID: q.ID,
			Total:      len(answers),
			ByContent:  make(map[string]int),
		}
		for _, a := range answers {
			d.ByContent[a.Content]++
		}
		dists = append(dists, d)
	}
	return dists, nil
}
