package repository

import (
	"time"
	"trivia_backend/internal/model"

	"gorm.io/gorm"
)

type CustomQuestionRepository struct {
	DB *gorm.DB
}

func NewCustomQuestionRepository(db *gorm.DB) *CustomQuestionRepository {
	return &CustomQuestionRepository{DB: db}
}

func (r *CustomQuestionRepository) Create(q *model.CustomQuestion) error {
	return r.DB.Create(q).Error
}

func (r *CustomQuestionRepository) FindByID(id uint) (*model.CustomQuestion, error) {
	var q model.CustomQuestion
	err := r.DB.First(&q, id).Error
	return &q, err
}

func (r *CustomQuestionRepository) ListByUser(userID uint) ([]model.CustomQuestion, error) {
	var qs []model.CustomQuestion
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&qs).Error
	return qs, err
}

func (r *CustomQuestionRepository) ListByStatus(status model.ReviewStatus) ([]model.CustomQuestion, error) {
	var qs []model.CustomQuestion
	err := r.DB.Preload("User").Where("status = ?", status).Order("created_at ASC").Find(&qs).Error
	return qs, err
}

// Review flips a pending question. It reports false when the row was not pending.
func (r *CustomQuestionRepository) Review(id uint, status model.ReviewStatus, reviewerID uint, at time.Time) (bool, error) {
	res := r.DB.Model(&model.CustomQuestion{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_at": at,
			"reviewed_by": reviewerID,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *CustomQuestionRepository) Approved(category, difficulty string, limit int) ([]model.CustomQuestion, error) {
	var qs []model.CustomQuestion
	q := r.DB.Where("status = ?", model.StatusApproved)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}
	err := q.Order("id DESC").Limit(limit).Find(&qs).Error
	return qs, err
}
