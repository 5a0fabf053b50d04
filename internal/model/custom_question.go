package model

import (
	"time"

	"gorm.io/datatypes"
)

type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

// swagger:model CustomQuestion
type CustomQuestion struct {
	BaseModel
	UserID           uint                        `gorm:"index;not null" json:"user_id"`
	User             *User                       `gorm:"foreignKey:UserID" json:"-"`
	Category         string                      `gorm:"size:100;index" json:"category"`
	Difficulty       string                      `gorm:"size:20" json:"difficulty"`
	QuestionText     string                      `gorm:"type:text;not null" json:"question_text"`
	CorrectAnswer    string                      `gorm:"size:500;not null" json:"correct_answer"`
	IncorrectAnswers datatypes.JSONSlice[string] `json:"incorrect_answers"`
	Status           ReviewStatus                `gorm:"size:20;index;not null" json:"status"`
	ReviewedAt       *time.Time                  `json:"reviewed_at,omitempty"`
	ReviewedBy       *uint                       `json:"reviewed_by,omitempty"`
}

func (CustomQuestion) TableName() string {
	return "custom_questions"
}
