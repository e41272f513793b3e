package service

import (
	"equizz_backend/internal/model"
	"equizz_backend/internal/repository"
	"equizz_backend/internal/util"
	"errors"
	"time"

	"gorm.io/gorm"
)

// EvaluationService 考核（管理员侧）生命周期管理。窗口状态一律由
// StateAt 即时推导，这里不持久化、不缓存任何状态标记。
type EvaluationService struct {
	Repo     *repository.EvaluationRepository
	QuizRepo *repository.QuizRepository
	Bindings *repository.SessionBindingRepository
}

func NewEvaluationService(repo *repository.EvaluationRepository, quizRepo *repository.QuizRepository, bindings *repository.SessionBindingRepository) *EvaluationService {
	return &EvaluationService{Repo: repo, QuizRepo: quizRepo, Bindings: bindings}
}

type EvaluationRequest struct {
	QuizID     uint      `json:"quizId" binding:"required"`
	Title      string    `json:"title" binding:"required"`
	ClassGroup string    `json:"classGroup"`
	OpensAt    time.Time `json:"opensAt" binding:"required"`
	ClosesAt   time.Time `json:"closesAt" binding:"required"`
}

// EvaluationView 带推导状态的考核视图
type EvaluationView struct {
	model.Evaluation
	State model.EvaluationState `json:"state"`
}

func (s *EvaluationService) Create(req EvaluationRequest) (*model.Evaluation, error) {
	if !req.ClosesAt.After(req.OpensAt) {
		return nil, errors.New("closesAt must be after opensAt")
	}
	if _, err := s.QuizRepo.FindByID(req.QuizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	e := &model.Evaluation{
		QuizID:     req.QuizID,
		Title:      req.Title,
		ClassGroup: req.ClassGroup,
		OpensAt:    req.OpensAt,
		ClosesAt:   req.ClosesAt,
	}
	if err := s.Repo.Create(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EvaluationService) Get(id uint) (*EvaluationView, error) {
	e, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEvaluationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &EvaluationView{Evaluation: *e, State: e.StateAt(time.Now())}, nil
}

func (s *EvaluationService) List(page, limit int) ([]EvaluationView, int64, error) {
	es, total, err := s.Repo.List(page, limit)
	if err != nil {
		return nil, 0, err
	}
	now := time.Now()
	views := make([]EvaluationView, len(es))
	for i, e := range es {
		views[i] = EvaluationView{Evaluation: e, State: e.StateAt(now)}
	}
	return views, total, nil
}

// ListForStudent 学生可见的考核（本班或全体），附推导状态与是否已作答
func (s *EvaluationService) ListForStudent(userID uint, classGroup string) ([]StudentEvaluationView, error) {
	es, err := s.Repo.ListForClassGroup(classGroup)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	views := make([]StudentEvaluationView, len(es))
	for i, e := range es {
		started, err := s.Bindings.HasBinding(userID, e.ID)
		if err != nil {
			return nil, err
		}
		views[i] = StudentEvaluationView{
			ID:         e.ID,
			QuizID:     e.QuizID,
			Title:      e.Title,
			OpensAt:    e.OpensAt,
			ClosesAt:   e.ClosesAt,
			State:      e.StateAt(now),
			HasStarted: started,
		}
	}
	return views, nil
}

// StudentEvaluationView 学生端视图，有意不嵌入完整 Evaluation
// swagger:model StudentEvaluationView
type StudentEvaluationView struct {
	ID         uint                  `json:"id"`
	QuizID     uint                  `json:"quizId"`
	Title      string                `json:"title"`
	OpensAt    time.Time             `json:"opensAt"`
	ClosesAt   time.Time             `json:"closesAt"`
	State      model.EvaluationState `json:"state"`
	HasStarted bool                  `json:"hasStarted"`
}

// ForceClose 管理员强制关闭，单向终态
func (s *EvaluationService) ForceClose(id uint) (*EvaluationView, error) {
	err := s.Repo.ForceClose(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEvaluationNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}
