package model

import "time"

// UserBadge records the first time a user earned a badge.
type UserBadge struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"user_id"`
	BadgeID    string    `gorm:"size:40;uniqueIndex:idx_user_badge;not null" json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
