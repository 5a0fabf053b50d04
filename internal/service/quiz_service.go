package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/util"
	"trivia_backend/pkg/logger"
	"trivia_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultQuestionCount = 10
	poolSize             = 200
)

type StartQuizRequest struct {
	Category    string               `json:"category"`
	Difficulty  string               `json:"difficulty"`
	Source      model.QuestionSource `json:"source"`
	Count       int                  `json:"count"`
	CommunityID *uint                `json:"community_id"`
}

type AnswerOutcome struct {
	Correct       bool        `json:"correct"`
	CorrectAnswer string      `json:"correct_answer"`
	Session       SessionView `json:"session"`
}

type HintOutcome struct {
	Hidden  []string    `json:"hidden"`
	Session SessionView `json:"session"`
}

type NextOutcome struct {
	Session   SessionView `json:"session"`
	Result    *QuizResult `json:"result,omitempty"`
	GameID    uint        `json:"game_id,omitempty"`
	NewBadges []Badge     `json:"new_badges,omitempty"`
}

type QuizService struct {
	Fetcher       QuestionFetcher
	Store         SessionStore
	BankRepo      *repository.QuestionBankRepository
	CustomRepo    *repository.CustomQuestionRepository
	CommunityRepo *repository.CommunityRepository
	Games         *GameService
	Achievements  *AchievementService
	Notifier      Notifier
}

func NewQuizService(
	fetcher QuestionFetcher,
	store SessionStore,
	bankRepo *repository.QuestionBankRepository,
	customRepo *repository.CustomQuestionRepository,
	communityRepo *repository.CommunityRepository,
	games *GameService,
	achievements *AchievementService,
	notifier Notifier,
) *QuizService {
	return &QuizService{
		Fetcher:       fetcher,
		Store:         store,
		BankRepo:      bankRepo,
		CustomRepo:    customRepo,
		CommunityRepo: communityRepo,
		Games:         games,
		Achievements:  achievements,
		Notifier:      notifier,
	}
}

func (s *QuizService) normalize(req *StartQuizRequest, userID uint, isAdmin bool) error {
	req.Category = strings.TrimSpace(req.Category)
	req.Difficulty = strings.ToLower(strings.TrimSpace(req.Difficulty))
	if req.Category == "" {
		req.Category = "General Knowledge"
	}
	if req.Difficulty != "" && !model.Difficulty(req.Difficulty).Valid() {
		return util.Invalid("difficulty must be easy, medium or hard")
	}
	if req.Count == 0 {
		req.Count = defaultQuestionCount
	}
	if !util.ValidQuestionCount(req.Count) {
		return util.ErrInvalidQuestionCount
	}
	if req.Source == "" {
		req.Source = model.SourceTriviaAPI
	}
	if !req.Source.Valid() {
		return util.Invalid("unknown question source %q", req.Source)
	}
	if req.Source == model.SourceMixed && !isAdmin {
		return util.ErrPermissionDenied
	}
	if req.Source == model.SourceCommunity && req.CommunityID == nil {
		return util.Invalid("community_id is required for community quizzes")
	}
	if req.CommunityID != nil {
		ok, err := s.CommunityRepo.IsMember(*req.CommunityID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNotMember
		}
	}
	return nil
}

// Start gathers questions from the chosen source and opens a session.
func (s *QuizService) Start(ctx context.Context, userID uint, isAdmin bool, req StartQuizRequest) (*SessionView, error) {
	if err := s.normalize(&req, userID, isAdmin); err != nil {
		return nil, err
	}

	questions, err := s.gather(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrNotEnoughQuestions
	}

	session := NewSession(uuid.NewString(), userID, SessionConfig{
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Source:      req.Source,
		Count:       len(questions),
		CommunityID: req.CommunityID,
	}, questions)
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	logger.Log.Debug("Quiz started",
		zap.String("session_id", session.ID),
		zap.Uint("user_id", userID),
		zap.String("source", string(req.Source)),
		zap.Int("questions", len(questions)),
	)
	view := session.View()
	return &view, nil
}

func (s *QuizService) gather(ctx context.Context, req StartQuizRequest) ([]Question, error) {
	switch req.Source {
	case model.SourceCommunity:
		return s.fromBank(*req.CommunityID, req.Category, req.Difficulty, req.Count)
	case model.SourceCustom:
		return s.fromCustom(req.Category, req.Difficulty, req.Count)
	case model.SourceMixed:
		return s.mixed(ctx, req)
	default:
		return s.Fetcher.FetchQuestions(ctx, req.Category, req.Difficulty, req.Count)
	}
}

// relaxed retries a lookup with fewer filters until it has enough questions.
func relaxed[T any](category, difficulty string, want int, find func(category, difficulty string) ([]T, error)) ([]T, error) {
	attempts := [][2]string{{category, difficulty}, {"", difficulty}, {"", ""}}
	var best []T
	for _, a := range attempts {
		rows, err := find(a[0], a[1])
		if err != nil {
			return nil, err
		}
		if len(rows) > len(best) {
			best = rows
		}
		if len(best) >= want {
			break
		}
	}
	return best, nil
}

func pick(qs []Question, n int) []Question {
	rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	if len(qs) > n {
		qs = qs[:n]
	}
	return qs
}

func bankQuestion(q *model.CommunityQuestion) Question {
	return Question{
		ID:               fmt.Sprintf("bank-%d", q.ID),
		Category:         q.Category,
		Difficulty:       q.Difficulty,
		Text:             q.QuestionText,
		CorrectAnswer:    q.CorrectAnswer,
		IncorrectAnswers: append([]string(nil), q.IncorrectAnswers...),
		Tags:             append([]string(nil), q.Tags...),
	}
}

func customQuestion(q *model.CustomQuestion) Question {
	return Question{
		ID:               fmt.Sprintf("custom-%d", q.ID),
		Category:         q.Category,
		Difficulty:       q.Difficulty,
		Text:             q.QuestionText,
		CorrectAnswer:    q.CorrectAnswer,
		IncorrectAnswers: append([]string(nil), q.IncorrectAnswers...),
	}
}

func (s *QuizService) fromBank(communityID uint, category, difficulty string, n int) ([]Question, error) {
	rows, err := relaxed(category, difficulty, n, func(c, d string) ([]model.CommunityQuestion, error) {
		return s.BankRepo.Pool(communityID, c, d, poolSize)
	})
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(rows))
	for i := range rows {
		out = append(out, bankQuestion(&rows[i]))
	}
	return pick(out, n), nil
}

func (s *QuizService) fromCustom(category, difficulty string, n int) ([]Question, error) {
	rows, err := relaxed(category, difficulty, n, func(c, d string) ([]model.CustomQuestion, error) {
		return s.CustomRepo.Approved(c, d, poolSize)
	})
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(rows))
	for i := range rows {
		out = append(out, customQuestion(&rows[i]))
	}
	return pick(out, n), nil
}

// mixed pools every source. An unavailable trivia API only shrinks the pool.
func (s *QuizService) mixed(ctx context.Context, req StartQuizRequest) ([]Question, error) {
	var pool []Question
	if api, err := s.Fetcher.FetchQuestions(ctx, req.Category, req.Difficulty, req.Count); err == nil {
		pool = append(pool, api...)
	} else {
		logger.Log.Warn("Mixed quiz without trivia API questions", zap.Error(err))
	}

	var communityID uint
	if req.CommunityID != nil {
		communityID = *req.CommunityID
	}
	bank, err := s.BankRepo.Pool(communityID, "", req.Difficulty, poolSize)
	if err != nil {
		return nil, err
	}
	for i := range bank {
		pool = append(pool, bankQuestion(&bank[i]))
	}

	custom, err := s.CustomRepo.Approved("", req.Difficulty, poolSize)
	if err != nil {
		return nil, err
	}
	for i := range custom {
		pool = append(pool, customQuestion(&custom[i]))
	}
	return pick(pool, req.Count), nil
}

func (s *QuizService) Get(ctx context.Context, userID uint, sessionID string) (*SessionView, error) {
	session, err := s.Store.Load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

func (s *QuizService) Answer(ctx context.Context, userID uint, sessionID, choice string) (*AnswerOutcome, error) {
	session, err := s.Store.Load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	rec, err := session.Answer(choice)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &AnswerOutcome{
		Correct:       rec.IsCorrect,
		CorrectAnswer: rec.CorrectAnswer,
		Session:       session.View(),
	}, nil
}

func (s *QuizService) Hint(ctx context.Context, userID uint, sessionID string) (*HintOutcome, error) {
	session, err := s.Store.Load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	hidden, err := session.UseHint()
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &HintOutcome{Hidden: hidden, Session: session.View()}, nil
}

// Next advances the quiz. Finishing records the game, syncs badges and
// pushes live events.
func (s *QuizService) Next(ctx context.Context, userID uint, sessionID string) (*NextOutcome, error) {
	session, err := s.Store.Load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	result, err := session.Next()
	if err != nil {
		return nil, err
	}
	if result == nil {
		if err := s.Store.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return &NextOutcome{Session: session.View()}, nil
	}

	claimed, err := s.Store.Delete(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("claim session: %w", err)
	}
	if !claimed {
		// a concurrent request already finished this session
		return nil, util.ErrSessionFinished
	}
	game, err := s.Games.RecordGame(ctx, userID, session.Config, *result)
	if err != nil {
		session.State = StateAnswered
		if serr := s.Store.Save(ctx, session); serr != nil {
			logger.Log.Error("Failed to restore unrecorded session", zap.String("session_id", session.ID), zap.Error(serr))
		}
		return nil, err
	}
	monitoring.QuizzesCompleted.WithLabelValues(string(session.Config.Source), session.Config.Difficulty).Inc()

	out := &NextOutcome{Session: session.View(), Result: result, GameID: game.ID}
	if s.Achievements != nil {
		badges, err := s.Achievements.SyncBadges(userID)
		if err != nil {
			// the game is saved; badges catch up on the next finish
			logger.Log.Error("Badge sync failed", zap.Uint("user_id", userID), zap.Error(err))
		}
		out.NewBadges = badges
		for _, b := range badges {
			notify(s.Notifier, []uint{userID}, LiveMessage{Type: EventBadgeUnlocked, Data: b})
		}
	}
	if game.CommunityID != nil {
		s.pushLeaderboardUpdate(*game.CommunityID, game)
	}
	return out, nil
}

// pushLeaderboardUpdate tells members their standings moved. Games outside the
// season window do not count toward the board, so they push nothing.
func (s *QuizService) pushLeaderboardUpdate(communityID uint, game *model.Game) {
	c, err := s.CommunityRepo.FindByID(communityID)
	if err != nil {
		logger.Log.Warn("Leaderboard push skipped", zap.Uint("community_id", communityID), zap.Error(err))
		return
	}
	if !c.InSeason(game.CreatedAt) {
		return
	}
	members, err := s.CommunityRepo.MemberIDs(communityID)
	if err != nil {
		logger.Log.Warn("Leaderboard push skipped", zap.Uint("community_id", communityID), zap.Error(err))
		return
	}
	notify(s.Notifier, members, LiveMessage{
		Type: EventLeaderboardUpdated,
		Data: map[string]interface{}{
			"community_id": communityID,
			"user_id":      game.UserID,
			"game_id":      game.ID,
			"score":        game.Score,
			"total":        game.TotalQuestions,
		},
	})
}

func (s *QuizService) Abandon(ctx context.Context, userID uint, sessionID string) error {
	if _, err := s.Store.Load(ctx, sessionID, userID); err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	_, err := s.Store.Delete(ctx, sessionID)
	return err
}
