package repository

import (
	"equizz_backend/internal/model"

	"gorm.io/gorm"
)

type EvaluationRepository struct {
	DB *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

func (r *EvaluationRepository) Create(e *model.Evaluation) error {
	return r.DB.Create(e).Error
}

func (r *EvaluationRepository) FindByID(id uint) (*model.Evaluation, error) {
	var e model.Evaluation
	err := r.DB.First(&e, id).Error
	return &e, err
}

func (r *EvaluationRepository) List(page, limit int) ([]model.Evaluation, int64, error) {
	var es []model.Evaluation
	var total int64
	query := r.DB.Model(&model.Evaluation{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("opens_at desc").Offset(offset).Limit(limit).Find(&es).Error
	return es, total, err
}

func (r *EvaluationRepository) ListForClassGroup(classGroup string) ([]model.Evaluation, error) {
	var es []model.Evaluation
	err := r.DB.Where("class_group = ? OR class_group = ''", classGroup).
		Order("opens_at desc").Find(&es).Error
	return es, err
}

func (r *EvaluationRepository) Update(e *model.Evaluation) error {
	return r.DB.Save(e).Error
}

// ForceClose 管理员单向关闭，只允许 false → true，不可恢复
func (r *EvaluationRepository) ForceClose(id uint) error {
	res := r.DB.Model(&model.Evaluation{}).Where("id = ?", id).Update("force_closed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
