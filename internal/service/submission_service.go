package service

import (
	"equizz_backend/internal/model"
	"equizz_backend/internal/util"
	"errors"
	"time"

	"gorm.io/gorm"
)

// BindingStore 身份↔令牌绑定的窄接口，仅编排器可持有
type BindingStore interface {
	BindOrGet(userID, evaluationID uint, freshToken string) (string, error)
	HasBinding(userID, evaluationID uint) (bool, error)
}

// SessionStore 匿名答题会话的持久化接口
type SessionStore interface {
	StartSession(token string, evaluationID, quizID uint) (*model.ResponseSession, error)
	FindByID(sessionID string) (*model.ResponseSession, error)
	UpsertAnswer(sessionID string, questionID uint, content string) error
	Submit(sessionID string, now time.Time) (*model.ResponseSession, error)
	ListAnswers(sessionID string) ([]model.ResponseAnswer, error)
	CountAnswers(sessionID string) (int64, error)
}

// EvaluationStore 考核读取接口
type EvaluationStore interface {
	FindByID(id uint) (*model.Evaluation, error)
}

// QuestionCatalog 题目归属校验，目录数据由外部维护
type QuestionCatalog interface {
	QuestionBelongsToQuiz(questionID, quizID uint) (bool, error)
}

// SessionHandle 返回给客户端的会话句柄。会话ID是高熵持有凭证，
// 句柄里没有匿名令牌，更没有令牌与身份的关联。
// swagger:model SessionHandle
type SessionHandle struct {
	SessionID    string                `json:"sessionId"`
	EvaluationID uint                  `json:"evaluationId"`
	QuizID       uint                  `json:"quizId"`
	Status       model.SessionStatus   `json:"status"`
	SubmittedAt  *time.Time            `json:"submittedAt,omitempty"`
	Answered     []uint                `json:"answeredQuestionIds"` // 已作答题目，供断点续答
}

// Eligibility 学生端资格信息：窗口状态 + 是否已开始，不含令牌
// swagger:model Eligibility
type Eligibility struct {
	State      model.EvaluationState `json:"state"`
	HasStarted bool                  `json:"hasStarted"`
}

// SubmissionService 匿名提交编排器：串起窗口校验、身份绑定与
// 匿名会话，保证每人每考核至多一个会话。
type SubmissionService struct {
	Bindings    BindingStore
	Sessions    SessionStore
	Evaluations EvaluationStore
	Catalog     QuestionCatalog

	now      func() time.Time
	newToken func() (string, error)
}

func NewSubmissionService(bindings BindingStore, sessions SessionStore, evaluations EvaluationStore, catalog QuestionCatalog) *SubmissionService {
	return &SubmissionService{
		Bindings:    bindings,
		Sessions:    sessions,
		Evaluations: evaluations,
		Catalog:     catalog,
		now:         time.Now,
		newToken:    util.GenerateAnonymousToken,
	}
}

func (s *SubmissionService) loadEvaluation(evaluationID uint) (*model.Evaluation, error) {
	eval, err := s.Evaluations.FindByID(evaluationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEvaluationNotFound
	}
	if err != nil {
		return nil, err
	}
	return eval, nil
}

// Begin 开始（或恢复）一次匿名提交。窗口未开/已关直接拒绝，不留
// 任何副作用；令牌生成失败同样中止。同一学生并发调用收敛到同一
// 绑定与同一会话。
func (s *SubmissionService) Begin(userID, evaluationID uint) (*SessionHandle, error) {
	eval, err := s.loadEvaluation(evaluationID)
	if err != nil {
		return nil, err
	}

	switch eval.StateAt(s.now()) {
	case model.EvaluationScheduled:
		return nil, util.ErrWindowNotOpen
	case model.EvaluationClosed:
		return nil, util.ErrWindowClosed
	}

	fresh, err := s.newToken()
	if err != nil {
		return nil, err
	}

	// 绑定已存在时丢弃 fresh，返回既有令牌；令牌从不越过本方法外泄
	token, err := s.Bindings.BindOrGet(userID, evaluationID, fresh)
	if err != nil {
		return nil, err
	}

	session, err := s.Sessions.StartSession(token, evaluationID, eval.QuizID)
	if err != nil {
		return nil, err
	}

	return s.handleOf(session)
}

func (s *SubmissionService) handleOf(session *model.ResponseSession) (*SessionHandle, error) {
	answers, err := s.Sessions.ListAnswers(session.ID)
	if err != nil {
		return nil, err
	}
	answered := make([]uint, 0, len(answers))
	for _, a := range answers {
		answered = append(answered, a.QuestionID)
	}
	return &SessionHandle{
		SessionID:    session.ID,
		EvaluationID: session.EvaluationID,
		QuizID:       session.QuizID,
		Status:       session.Status,
		SubmittedAt:  session.SubmittedAt,
		Answered:     answered,
	}, nil
}

// Answer 记录一题作答。题目必须属于会话的试卷；已提交的会话拒绝
// 任何改动且不产生副作用。
func (s *SubmissionService) Answer(sessionID string, questionID uint, content string) error {
	session, err := s.Sessions.FindByID(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if session.Status == model.SessionSubmitted {
		return util.ErrSessionAlreadySubmitted
	}

	ok, err := s.Catalog.QuestionBelongsToQuiz(questionID, session.QuizID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrInvalidQuestion
	}

	return s.Sessions.UpsertAnswer(sessionID, questionID, content)
}

// Finalize 提交会话。提交一刻重新核验窗口，迟到提交被拒绝而非
// 默收；并发双提交只有一方完成翻转，另一方收到 ErrAlreadySubmitted。
// 回执只含匿名令牌与时间。
func (s *SubmissionService) Finalize(sessionID string) (*model.SubmissionReceipt, error) {
	session, err := s.Sessions.FindByID(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if session.Status == model.SessionSubmitted {
		return nil, util.ErrAlreadySubmitted
	}

	eval, err := s.loadEvaluation(session.EvaluationID)
	if err != nil {
		return nil, err
	}
	if eval.StateAt(s.now()) == model.EvaluationClosed {
		return nil, util.ErrWindowClosed
	}

	submitted, err := s.Sessions.Submit(sessionID, s.now())
	if err != nil {
		// 并发提交：翻转已被对方完成，不再产生第二份回执
		return nil, err
	}

	count, err := s.Sessions.CountAnswers(sessionID)
	if err != nil {
		return nil, err
	}

	receipt := &model.SubmissionReceipt{
		Token:        submitted.Token,
		EvaluationID: submitted.EvaluationID,
		AnswerCount:  int(count),
	}
	if submitted.SubmittedAt != nil {
		receipt.SubmittedAt = *submitted.SubmittedAt
	}
	return receipt, nil
}

// Resume 按句柄取回会话现状，供客户端重启后续答
func (s *SubmissionService) Resume(sessionID string) (*SessionHandle, error) {
	session, err := s.Sessions.FindByID(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.handleOf(session)
}

// CheckEligibility 资格查询：窗口状态与是否已开始。只做存在性
// 检查，不触达令牌。
func (s *SubmissionService) CheckEligibility(userID, evaluationID uint) (*Eligibility, error) {
	eval, err := s.loadEvaluation(evaluationID)
	if err != nil {
		return nil, err
	}

	started, err := s.Bindings.HasBinding(userID, evaluationID)
	if err != nil {
		return nil, err
	}

	return &Eligibility{
		State:      eval.StateAt(s.now()),
		HasStarted: started,
	}, nil
}
