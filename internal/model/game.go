package model

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionSource string

const (
	SourceTriviaAPI QuestionSource = "trivia_api"
	SourceCommunity QuestionSource = "community"
	SourceCustom    QuestionSource = "custom"
	SourceMixed     QuestionSource = "mixed"
)

func (s QuestionSource) Valid() bool {
	switch s {
	case SourceTriviaAPI, SourceCommunity, SourceCustom, SourceMixed:
		return true
	}
	return false
}

// swagger:model Game
type Game struct {
	BaseModel
	UserID         uint           `gorm:"index;not null" json:"user_id"`
	User           *User          `gorm:"foreignKey:UserID" json:"-"`
	Category       string         `gorm:"size:100;index" json:"category"`
	Difficulty     string         `gorm:"size:20;index" json:"difficulty"`
	Source         QuestionSource `gorm:"size:20" json:"source"`
	Score          int            `gorm:"not null" json:"score"`
	TotalQuestions int            `gorm:"not null" json:"total_questions"`
	Visibility     Visibility     `gorm:"size:10;index;not null" json:"visibility"`
	CommunityID    *uint          `gorm:"index" json:"community_id,omitempty"`
	Answers        []GameAnswer   `gorm:"foreignKey:GameID" json:"answers,omitempty"`
}

func (Game) TableName() string {
	return "games"
}

// Percentage is the rounded score percentage, 0 for an empty game.
func (g *Game) Percentage() int {
	if g.TotalQuestions <= 0 {
		return 0
	}
	return int(float64(g.Score)*100/float64(g.TotalQuestions) + 0.5)
}

type GameAnswer struct {
	ID            uint                        `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID        uint                        `gorm:"index;not null" json:"game_id"`
	QuestionOrder int                         `gorm:"not null" json:"question_order"`
	QuestionText  string                      `gorm:"type:text;not null" json:"question_text"`
	CorrectAnswer string                      `gorm:"size:500;not null" json:"correct_answer"`
	UserAnswer    string                      `gorm:"size:500" json:"user_answer"`
	AllAnswers    datatypes.JSONSlice[string] `json:"all_answers"`
	IsCorrect     bool                        `json:"is_correct"`
	HintUsed      bool                        `json:"hint_used"`
	CreatedAt     time.Time                   `json:"created_at"`
}

func (GameAnswer) TableName() string {
	return "game_answers"
}
