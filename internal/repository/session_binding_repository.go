package repository

import (
	"equizz_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionBindingRepository 身份↔匿名令牌映射的唯一读写入口。
// 不提供任何批量导出或按令牌反查身份的方法。
type SessionBindingRepository struct {
	DB *gorm.DB
}

func NewSessionBindingRepository(db *gorm.DB) *SessionBindingRepository {
	return &SessionBindingRepository{DB: db}
}

// BindOrGet 原子 insert-if-absent：已有 (user, evaluation) 绑定则返回
// 既有令牌，否则以调用方新生成的令牌建立绑定。并发调用依赖
// (user_id, evaluation_id) 唯一索引收敛到同一行，绝不产生双令牌。
func (r *SessionBindingRepository) BindOrGet(userID, evaluationID uint, freshToken string) (string, error) {
	binding := &model.SessionBinding{
		UserID:       userID,
		EvaluationID: evaluationID,
		Token:        freshToken,
	}

	res := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "evaluation_id"}},
		DoNothing: true,
	}).Create(binding)
	if res.Error != nil {
		return "", res.Error
	}

	if res.RowsAffected == 0 {
		// 绑定已存在（本次或并发的另一请求创建），读回既有令牌
		var existing model.SessionBinding
		err := r.DB.Where("user_id = ? AND evaluation_id = ?", userID, evaluationID).
			First(&existing).Error
		if err != nil {
			return "", err
		}
		return existing.Token, nil
	}

	return binding.Token, nil
}

// HasBinding 仅存在性检查，不返回令牌
func (r *SessionBindingRepository) HasBinding(userID, evaluationID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.SessionBinding{}).
		Where("user_id = ? AND evaluation_id = ?", userID, evaluationID).
		Count(&count).Error
	return count > 0, err
}
