package model

import (
	"time"

	"gorm.io/datatypes"
)

// swagger:model CommunityQuestion
type CommunityQuestion struct {
	BaseModel
	CommunityID      uint                        `gorm:"index;not null" json:"community_id"`
	CreatedBy        uint                        `gorm:"index" json:"created_by"`
	QuestionText     string                      `gorm:"type:text;not null" json:"question_text"`
	CorrectAnswer    string                      `gorm:"size:500;not null" json:"correct_answer"`
	IncorrectAnswers datatypes.JSONSlice[string] `json:"incorrect_answers"`
	Category         string                      `gorm:"size:100;index" json:"category"`
	Difficulty       string                      `gorm:"size:20;index" json:"difficulty"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
}

func (CommunityQuestion) TableName() string {
	return "community_questions"
}

// QuestionSnapshot is the editable content of a bank question.
type QuestionSnapshot struct {
	QuestionText     string   `json:"question_text"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Tags             []string `json:"tags,omitempty"`
}

func (q *CommunityQuestion) Snapshot() QuestionSnapshot {
	return QuestionSnapshot{
		QuestionText:     q.QuestionText,
		CorrectAnswer:    q.CorrectAnswer,
		IncorrectAnswers: append([]string(nil), q.IncorrectAnswers...),
		Category:         q.Category,
		Difficulty:       q.Difficulty,
		Tags:             append([]string(nil), q.Tags...),
	}
}

func (q *CommunityQuestion) Apply(s QuestionSnapshot) {
	q.QuestionText = s.QuestionText
	q.CorrectAnswer = s.CorrectAnswer
	q.IncorrectAnswers = datatypes.NewJSONSlice(append([]string(nil), s.IncorrectAnswers...))
	q.Category = s.Category
	q.Difficulty = s.Difficulty
	q.Tags = datatypes.NewJSONSlice(append([]string(nil), s.Tags...))
}

type VersionChange string

const (
	ChangeCreated  VersionChange = "created"
	ChangeEdited   VersionChange = "edited"
	ChangeTagged   VersionChange = "tagged"
	ChangeRestored VersionChange = "restored"
)

// MaxQuestionVersions bounds the history kept per question.
const MaxQuestionVersions = 10

type QuestionVersion struct {
	ID         uint                                 `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint                                 `gorm:"index;not null" json:"question_id"`
	ChangeType VersionChange                        `gorm:"size:20;not null" json:"change_type"`
	ChangedBy  uint                                 `json:"changed_by"`
	Snapshot   datatypes.JSONType[QuestionSnapshot] `json:"snapshot"`
	CreatedAt  time.Time                            `json:"created_at"`
}

func (QuestionVersion) TableName() string {
	return "question_versions"
}

type QuestionTemplate struct {
	BaseModel
	CommunityID uint                                 `gorm:"index;not null" json:"community_id"`
	Name        string                               `gorm:"size:100;not null" json:"name"`
	CreatedBy   uint                                 `json:"created_by"`
	Content     datatypes.JSONType[QuestionSnapshot] `json:"content"`
}

func (QuestionTemplate) TableName() string {
	return "question_templates"
}

type ImportLog struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CommunityID  uint      `gorm:"index;not null" json:"community_id"`
	UserID       uint      `json:"user_id"`
	FileName     string    `gorm:"size:255" json:"file_name"`
	FileURL      string    `gorm:"size:500" json:"file_url"`
	TotalRows    int       `json:"total_rows"`
	ImportedRows int       `json:"imported_rows"`
	FailedRows   int       `json:"failed_rows"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ImportLog) TableName() string {
	return "import_logs"
}
