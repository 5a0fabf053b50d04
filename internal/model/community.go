package model

import (
	"time"
)

// swagger:model Community
type Community struct {
	BaseModel
	Name           string    `gorm:"size:100;not null" json:"name"`
	Slug           string    `gorm:"size:120;index" json:"slug"`
	CommissionerID uint      `gorm:"index;not null" json:"commissioner_id"`
	Commissioner   *User     `gorm:"foreignKey:CommissionerID" json:"-"`
	InviteCode     string    `gorm:"size:8;uniqueIndex;not null" json:"invite_code"`
	SeasonStart    time.Time `json:"season_start"`
	SeasonEnd      time.Time `json:"season_end"`
	MaxMembers     int       `gorm:"not null" json:"max_members"`
}

func (Community) TableName() string {
	return "communities"
}

func (c *Community) InSeason(t time.Time) bool {
	return !t.Before(c.SeasonStart) && !t.After(c.SeasonEnd)
}

// CommunityMember rows are hard deleted so a removed user can rejoin.
type CommunityMember struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CommunityID uint      `gorm:"uniqueIndex:idx_community_user;not null" json:"community_id"`
	UserID      uint      `gorm:"uniqueIndex:idx_community_user;index;not null" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"-"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (CommunityMember) TableName() string {
	return "community_members"
}
