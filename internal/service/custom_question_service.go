package service

import (
	"strings"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/util"
	"trivia_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type SubmitQuestionRequest struct {
	Category         string   `json:"category" binding:"required"`
	Difficulty       string   `json:"difficulty" binding:"required"`
	QuestionText     string   `json:"question_text" binding:"required"`
	CorrectAnswer    string   `json:"correct_answer" binding:"required"`
	IncorrectAnswers []string `json:"incorrect_answers" binding:"required"`
}

type CustomQuestionService struct {
	CustomRepo *repository.CustomQuestionRepository
	now        func() time.Time
}

func NewCustomQuestionService(customRepo *repository.CustomQuestionRepository) *CustomQuestionService {
	return &CustomQuestionService{
		CustomRepo: customRepo,
		now:        time.Now,
	}
}

// Submit queues a player question for review.
func (s *CustomQuestionService) Submit(userID uint, req SubmitQuestionRequest) (*model.CustomQuestion, error) {
	q := &model.CustomQuestion{
		UserID:        userID,
		Category:      strings.TrimSpace(req.Category),
		Difficulty:    strings.ToLower(strings.TrimSpace(req.Difficulty)),
		QuestionText:  strings.TrimSpace(req.QuestionText),
		CorrectAnswer: strings.TrimSpace(req.CorrectAnswer),
		Status:        model.StatusPending,
	}
	if q.Category == "" || q.QuestionText == "" || q.CorrectAnswer == "" {
		return nil, util.Invalid("category, question and correct answer are required")
	}
	if !model.Difficulty(q.Difficulty).Valid() {
		return nil, util.Invalid("difficulty must be easy, medium or hard")
	}
	if len(req.IncorrectAnswers) != 3 {
		return nil, util.Invalid("exactly 3 incorrect answers are required")
	}
	wrong := make([]string, 0, 3)
	for _, a := range req.IncorrectAnswers {
		a = strings.TrimSpace(a)
		if a == "" {
			return nil, util.Invalid("incorrect answers must not be empty")
		}
		wrong = append(wrong, a)
	}
	if hasDuplicateAnswer(q.CorrectAnswer, wrong) {
		return nil, util.Invalid("answers must all be different")
	}
	q.IncorrectAnswers = datatypes.NewJSONSlice(wrong)

	if err := s.CustomRepo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *CustomQuestionService) ListMine(userID uint) ([]model.CustomQuestion, error) {
	return s.CustomRepo.ListByUser(userID)
}

func (s *CustomQuestionService) ListPending() ([]model.CustomQuestion, error) {
	return s.CustomRepo.ListByStatus(model.StatusPending)
}

func (s *CustomQuestionService) Approve(adminID, id uint) (*model.CustomQuestion, error) {
	return s.review(adminID, id, model.StatusApproved)
}

func (s *CustomQuestionService) Reject(adminID, id uint) (*model.CustomQuestion, error) {
	return s.review(adminID, id, model.StatusRejected)
}

func (s *CustomQuestionService) review(adminID, id uint, status model.ReviewStatus) (*model.CustomQuestion, error) {
	if _, err := s.CustomRepo.FindByID(id); err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	ok, err := s.CustomRepo.Review(id, status, adminID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrNotPending
	}
	logger.Log.Info("Custom question reviewed",
		zap.Uint("question_id", id),
		zap.Uint("admin_id", adminID),
		zap.String("status", string(status)),
	)
	return s.CustomRepo.FindByID(id)
}
