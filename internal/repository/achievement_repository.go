package repository

import (
	"trivia_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) FindByUserID(userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.Where("user_id = ?", userID).Order("unlocked_at ASC, id ASC").Find(&badges).Error
	return badges, err
}

// Unlock inserts the badges, skipping any the user already holds.
func (r *AchievementRepository) Unlock(badges []model.UserBadge) error {
	if len(badges) == 0 {
		return nil
	}
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&badges).Error
}
