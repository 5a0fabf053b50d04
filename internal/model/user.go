package model

import (
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Username              string     `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email                 string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password              string     `gorm:"size:100;not null" json:"-"`
	Role                  UserRole   `gorm:"size:20;not null" json:"role"`
	ProfileVisibility     bool       `gorm:"not null" json:"profile_visibility"`
	LeaderboardVisibility bool       `gorm:"not null" json:"leaderboard_visibility"`
	LastLogin             *time.Time `json:"last_login,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
