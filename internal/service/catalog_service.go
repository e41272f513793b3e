package service

import (
	"context"
	"encoding/json"
	"equizz_backend/internal/model"
	"equizz_backend/internal/repository"
	"equizz_backend/internal/util"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const quizQuestionSetKeyPrefix = "quiz:questions:"

// CatalogService 试卷/题目目录。题目归属校验走 Redis 集合缓存，
// 目录读多写少，缓存未命中时回源数据库并回填。
type CatalogService struct {
	QuizRepo *repository.QuizRepository
	Redis    *redis.Client
}

func NewCatalogService(quizRepo *repository.QuizRepository, rdb *redis.Client) *CatalogService {
	return &CatalogService{QuizRepo: quizRepo, Redis: rdb}
}

type QuizRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type QuizQuestionRequest struct {
	QuizID       uint            `json:"quizId" binding:"required"`
	QuestionType string          `json:"questionType" binding:"required"`
	Statement    string          `json:"statement" binding:"required"`
	Options      json.RawMessage `json:"options"`
	Points       int             `json:"points"`
	Order        int             `json:"order"`
}

func (s *CatalogService) CreateQuiz(req QuizRequest, creatorID uint) (*model.Quiz, error) {
	q := &model.Quiz{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   creatorID,
	}
	if err := s.QuizRepo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *CatalogService) GetQuiz(id uint) (*model.Quiz, error) {
	q, err := s.QuizRepo.FindByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrQuizNotFound
	}
	return q, err
}

func (s *CatalogService) ListQuizzes(page, limit int) ([]model.Quiz, int64, error) {
	return s.QuizRepo.List(page, limit)
}

func (s *CatalogService) DeleteQuiz(id uint) error {
	if err := s.QuizRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateQuestionSet(id)
	return nil
}

func (s *CatalogService) CreateQuestion(req QuizQuestionRequest) (*model.QuizQuestion, error) {
	if _, err := s.GetQuiz(req.QuizID); err != nil {
		return nil, err
	}

	points := req.Points
	if points <= 0 {
		points = 1
	}

	q := &model.QuizQuestion{
		QuizID:       req.QuizID,
		QuestionType: req.QuestionType,
		Statement:    req.Statement,
		Options:      req.Options,
		Points:       points,
		Order:        req.Order,
	}
	if err := s.QuizRepo.CreateQuestion(q); err != nil {
		return nil, err
	}
	s.invalidateQuestionSet(req.QuizID)
	return q, nil
}

func (s *CatalogService) ListQuestions(quizID uint) ([]model.QuizQuestion, error) {
	return s.QuizRepo.ListQuestions(quizID)
}

// ListQuestionsForStudent 学生端出题：不返回分值以外的批改信息
func (s *CatalogService) ListQuestionsForStudent(quizID uint) ([]model.QuizQuestion, error) {
	return s.QuizRepo.ListQuestions(quizID)
}

func (s *CatalogService) DeleteQuestion(id uint) error {
	q, err := s.QuizRepo.FindQuestionByID(id)
	if err == gorm.ErrRecordNotFound {
		return util.ErrQuizNotFound
	}
	if err != nil {
		return err
	}
	if err := s.QuizRepo.DeleteQuestion(id); err != nil {
		return err
	}
	s.invalidateQuestionSet(q.QuizID)
	return nil
}

// QuestionBelongsToQuiz 题目归属校验。先查 Redis 集合，未命中回源
// 并整卷回填；Redis 不可用时直接回源，正确性不依赖缓存。
func (s *CatalogService) QuestionBelongsToQuiz(questionID, quizID uint) (bool, error) {
	ctx := context.Background()
	key := fmt.Sprintf("%s%d", quizQuestionSetKeyPrefix, quizID)

	if s.Redis != nil {
		ok, err := s.Redis.SIsMember(ctx, key, fmt.Sprint(questionID)).Result()
		if err == nil && ok {
			return true, nil
		}
		// 不命中可能是集合未加载，也可能确实不属于；回源确认
	}

	ids, err := s.QuizRepo.QuestionIDsOfQuiz(quizID)
	if err != nil {
		return false, err
	}

	found := false
	members := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if id == questionID {
			found = true
		}
		members = append(members, fmt.Sprint(id))
	}

	if s.Redis != nil && len(members) > 0 {
		if err := s.Redis.SAdd(ctx, key, members...).Err(); err == nil {
			s.Redis.Expire(ctx, key, 10*time.Minute)
		}
	}

	return found, nil
}

func (s *CatalogService) invalidateQuestionSet(quizID uint) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf("%s%d", quizQuestionSetKeyPrefix, quizID)
	s.Redis.Del(context.Background(), key)
}
