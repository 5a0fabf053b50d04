package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/util"
	"trivia_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	feedLimit            = 20
	profileGameLimit     = 10
	dashboardRecentLimit = 5
	leaderboardWindow    = 100
	leaderboardSize      = 10
	leaderboardCacheKey  = "leaderboard:global"
	leaderboardCacheTTL  = 60 * time.Second
	categoryLabelMax     = 15
)

type GameSummary struct {
	ID             uint                 `json:"id"`
	UserID         uint                 `json:"user_id"`
	Username       string               `json:"username,omitempty"`
	Category       string               `json:"category"`
	Difficulty     string               `json:"difficulty"`
	Source         model.QuestionSource `json:"source"`
	Score          int                  `json:"score"`
	TotalQuestions int                  `json:"total_questions"`
	Percentage     int                  `json:"percentage"`
	Visibility     model.Visibility     `json:"visibility"`
	CommunityID    *uint                `json:"community_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

func summarize(g *model.Game) GameSummary {
	s := GameSummary{
		ID:             g.ID,
		UserID:         g.UserID,
		Category:       g.Category,
		Difficulty:     g.Difficulty,
		Source:         g.Source,
		Score:          g.Score,
		TotalQuestions: g.TotalQuestions,
		Percentage:     g.Percentage(),
		Visibility:     g.Visibility,
		CommunityID:    g.CommunityID,
		CreatedAt:      g.CreatedAt,
	}
	if g.User != nil {
		s.Username = g.User.Username
	}
	return s
}

func summarizeAll(games []model.Game) []GameSummary {
	out := make([]GameSummary, 0, len(games))
	for i := range games {
		out = append(out, summarize(&games[i]))
	}
	return out
}

type GameReview struct {
	GameSummary
	Answers []model.GameAnswer `json:"answers"`
}

type PlayerStats struct {
	TotalGames     int     `json:"total_games"`
	AveragePercent float64 `json:"average_percent"`
	BestPercent    int     `json:"best_percent"`
	Categories     int     `json:"categories"`
}

func computeStats(games []model.Game) PlayerStats {
	var st PlayerStats
	score, total := 0, 0
	cats := make(map[string]bool)
	for i := range games {
		g := &games[i]
		score += g.Score
		total += g.TotalQuestions
		cats[g.Category] = true
		if p := g.Percentage(); p > st.BestPercent {
			st.BestPercent = p
		}
	}
	st.TotalGames = len(games)
	st.AveragePercent = util.Percent(score, total)
	st.Categories = len(cats)
	return st
}

type ProfileView struct {
	UserID   uint          `json:"user_id"`
	Username string        `json:"username"`
	Hidden   bool          `json:"hidden"`
	Stats    PlayerStats   `json:"stats"`
	Games    []GameSummary `json:"games"`
	Badges   []BadgeStatus `json:"badges"`
}

type DashboardView struct {
	Stats       PlayerStats   `json:"stats"`
	RecentGames []GameSummary `json:"recent_games"`
	Badges      []BadgeStatus `json:"badges"`
}

type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	UserID         uint    `json:"user_id"`
	Username       string  `json:"username"`
	Games          int     `json:"games"`
	TotalScore     int     `json:"total_score"`
	TotalQuestions int     `json:"total_questions"`
	AveragePercent float64 `json:"average_percent"`
	Hidden         bool    `json:"-"`
}

// cachedEntry keeps the hidden flag, which the public entry never serializes.
type cachedEntry struct {
	LeaderboardEntry
	Hidden bool `json:"hidden"`
}

// aggregateLeaderboard groups games per user and orders by average, then
// games played, then username.
func aggregateLeaderboard(games []model.Game) []LeaderboardEntry {
	byUser := make(map[uint]*LeaderboardEntry)
	var order []uint
	for i := range games {
		g := &games[i]
		e, ok := byUser[g.UserID]
		if !ok {
			e = &LeaderboardEntry{UserID: g.UserID}
			if g.User != nil {
				e.Username = g.User.Username
				e.Hidden = !g.User.LeaderboardVisibility
			}
			byUser[g.UserID] = e
			order = append(order, g.UserID)
		}
		e.Games++
		e.TotalScore += g.Score
		e.TotalQuestions += g.TotalQuestions
	}
	out := make([]LeaderboardEntry, 0, len(order))
	for _, id := range order {
		e := byUser[id]
		e.AveragePercent = util.Percent(e.TotalScore, e.TotalQuestions)
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AveragePercent != out[j].AveragePercent {
			return out[i].AveragePercent > out[j].AveragePercent
		}
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].Username < out[j].Username
	})
	return out
}

func rankTop(entries []LeaderboardEntry, viewerID uint, n int) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, n)
	for _, e := range entries {
		if e.Hidden && e.UserID != viewerID {
			continue
		}
		e.Rank = len(out) + 1
		out = append(out, e)
		if len(out) == n {
			break
		}
	}
	return out
}

type PerformancePoint struct {
	Game       int       `json:"game"`
	Percentage int       `json:"percentage"`
	Category   string    `json:"category"`
	Date       time.Time `json:"date"`
}

type CategoryPerformance struct {
	Category   string `json:"category"`
	Label      string `json:"label"`
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

type Performance struct {
	Scores     []PerformancePoint    `json:"scores"`
	Categories []CategoryPerformance `json:"categories"`
}

type GameService struct {
	GameRepo     *repository.GameRepository
	UserRepo     *repository.UserRepository
	Achievements *AchievementService
	Redis        *redis.Client
	visibility   atomic.Value
}

func NewGameService(
	gameRepo *repository.GameRepository,
	userRepo *repository.UserRepository,
	achievements *AchievementService,
	rdb *redis.Client,
	defaultVisibility model.Visibility,
) *GameService {
	s := &GameService{
		GameRepo:     gameRepo,
		UserRepo:     userRepo,
		Achievements: achievements,
		Redis:        rdb,
	}
	s.SetDefaultVisibility(defaultVisibility)
	return s
}

func (s *GameService) SetDefaultVisibility(v model.Visibility) {
	if !v.Valid() {
		v = model.VisibilityPublic
	}
	s.visibility.Store(v)
}

func (s *GameService) DefaultVisibility() model.Visibility {
	return s.visibility.Load().(model.Visibility)
}

// RecordGame persists a finished quiz with its answer log.
func (s *GameService) RecordGame(ctx context.Context, userID uint, cfg SessionConfig, res QuizResult) (*model.Game, error) {
	game := &model.Game{
		UserID:         userID,
		Category:       cfg.Category,
		Difficulty:     cfg.Difficulty,
		Source:         cfg.Source,
		Score:          res.Score,
		TotalQuestions: res.Total,
		Visibility:     s.DefaultVisibility(),
		CommunityID:    cfg.CommunityID,
	}
	for _, a := range res.Answers {
		game.Answers = append(game.Answers, model.GameAnswer{
			QuestionOrder: a.QuestionOrder,
			QuestionText:  a.QuestionText,
			CorrectAnswer: a.CorrectAnswer,
			UserAnswer:    a.UserAnswer,
			AllAnswers:    datatypes.NewJSONSlice(a.AllAnswers),
			IsCorrect:     a.IsCorrect,
			HintUsed:      a.HintUsed,
		})
	}
	if err := s.GameRepo.Create(game); err != nil {
		return nil, fmt.Errorf("save game: %w", err)
	}
	if game.Visibility == model.VisibilityPublic {
		s.InvalidateLeaderboard(ctx)
	}
	return game, nil
}

func (s *GameService) ListMyGames(userID uint) ([]GameSummary, error) {
	games, err := s.GameRepo.ListByUser(userID, 0)
	if err != nil {
		return nil, err
	}
	return summarizeAll(games), nil
}

// Review lets the owner see any game. Others see only public games of users
// whose profile is visible.
func (s *GameService) Review(viewerID, gameID uint) (*GameReview, error) {
	game, err := s.GameRepo.FindByID(gameID)
	if repository.IsNotFound(err) {
		return nil, util.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	if game.UserID != viewerID {
		visible := game.Visibility == model.VisibilityPublic && game.User != nil && game.User.ProfileVisibility
		if !visible {
			return nil, util.ErrGameNotFound
		}
	}
	return &GameReview{GameSummary: summarize(game), Answers: game.Answers}, nil
}

func (s *GameService) SetVisibility(ctx context.Context, userID, gameID uint, v model.Visibility) error {
	if !v.Valid() {
		return util.Invalid("visibility must be public or private")
	}
	game, err := s.GameRepo.FindByID(gameID)
	if repository.IsNotFound(err) {
		return util.ErrGameNotFound
	}
	if err != nil {
		return err
	}
	if game.UserID != userID {
		return util.ErrGameNotFound
	}
	if err := s.GameRepo.UpdateVisibility(gameID, v); err != nil {
		return err
	}
	s.InvalidateLeaderboard(ctx)
	return nil
}

func (s *GameService) PublicFeed(viewerID uint, category, difficulty, sortBy string) ([]GameSummary, error) {
	if sortBy != "score" {
		sortBy = "recent"
	}
	games, err := s.GameRepo.PublicFeed(repository.FeedFilter{
		Category:   category,
		Difficulty: difficulty,
		SortBy:     sortBy,
		Limit:      feedLimit,
		ViewerID:   viewerID,
	})
	if err != nil {
		return nil, err
	}
	return summarizeAll(games), nil
}

func (s *GameService) UserProfile(viewerID, userID uint) (*ProfileView, error) {
	user, err := s.UserRepo.FindByID(userID)
	if repository.IsNotFound(err) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	view := &ProfileView{UserID: user.ID, Username: user.Username, Games: []GameSummary{}, Badges: []BadgeStatus{}}
	if !user.ProfileVisibility && viewerID != userID {
		view.Hidden = true
		return view, nil
	}

	games, err := s.GameRepo.PublicByUser(userID, profileGameLimit)
	if err != nil {
		return nil, err
	}
	view.Stats = computeStats(games)
	view.Games = summarizeAll(games)
	if s.Achievements != nil {
		if view.Badges, err = s.Achievements.EarnedBadges(userID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (s *GameService) Dashboard(userID uint) (*DashboardView, error) {
	games, err := s.GameRepo.ListByUser(userID, 0)
	if err != nil {
		return nil, err
	}
	recent := games
	if len(recent) > dashboardRecentLimit {
		recent = recent[:dashboardRecentLimit]
	}
	view := &DashboardView{
		Stats:       computeStats(games),
		RecentGames: summarizeAll(recent),
		Badges:      []BadgeStatus{},
	}
	if s.Achievements != nil {
		if view.Badges, err = s.Achievements.EarnedBadges(userID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// GlobalLeaderboard ranks players over the most recent public games.
// Players who opted out are hidden from everyone but themselves.
func (s *GameService) GlobalLeaderboard(ctx context.Context, viewerID uint) ([]LeaderboardEntry, error) {
	entries, err := s.cachedLeaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return rankTop(entries, viewerID, leaderboardSize), nil
}

func (s *GameService) cachedLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	if s.Redis != nil {
		data, err := s.Redis.Get(ctx, leaderboardCacheKey).Bytes()
		if err == nil {
			var cached []cachedEntry
			if json.Unmarshal(data, &cached) == nil {
				out := make([]LeaderboardEntry, 0, len(cached))
				for _, c := range cached {
					c.LeaderboardEntry.Hidden = c.Hidden
					out = append(out, c.LeaderboardEntry)
				}
				return out, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Leaderboard cache read failed", zap.Error(err))
		}
	}

	games, err := s.GameRepo.RecentPublic(leaderboardWindow)
	if err != nil {
		return nil, err
	}
	entries := aggregateLeaderboard(games)

	if s.Redis != nil {
		cached := make([]cachedEntry, 0, len(entries))
		for _, e := range entries {
			cached = append(cached, cachedEntry{LeaderboardEntry: e, Hidden: e.Hidden})
		}
		if data, err := json.Marshal(cached); err == nil {
			if err := s.Redis.Set(ctx, leaderboardCacheKey, data, leaderboardCacheTTL).Err(); err != nil {
				logger.Log.Warn("Leaderboard cache write failed", zap.Error(err))
			}
		}
	}
	return entries, nil
}

func (s *GameService) InvalidateLeaderboard(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, leaderboardCacheKey).Err(); err != nil {
		logger.Log.Warn("Leaderboard cache invalidation failed", zap.Error(err))
	}
}

// Performance builds the score series oldest first and per-category accuracy.
func (s *GameService) Performance(userID uint) (*Performance, error) {
	games, err := s.GameRepo.History(userID)
	if err != nil {
		return nil, err
	}
	return buildPerformance(games), nil
}

func buildPerformance(games []model.Game) *Performance {
	p := &Performance{Scores: []PerformancePoint{}, Categories: []CategoryPerformance{}}
	byCat := make(map[string]*CategoryPerformance)
	var cats []string
	for i := range games {
		g := &games[i]
		p.Scores = append(p.Scores, PerformancePoint{
			Game:       i + 1,
			Percentage: g.Percentage(),
			Category:   g.Category,
			Date:       g.CreatedAt,
		})
		c, ok := byCat[g.Category]
		if !ok {
			c = &CategoryPerformance{Category: g.Category, Label: util.Truncate(g.Category, categoryLabelMax)}
			byCat[g.Category] = c
			cats = append(cats, g.Category)
		}
		c.Correct += g.Score
		c.Total += g.TotalQuestions
	}
	for _, name := range cats {
		c := byCat[name]
		if c.Total > 0 {
			c.Percentage = int(float64(c.Correct)*100/float64(c.Total) + 0.5)
		}
		p.Categories = append(p.Categories, *c)
	}
	return p
}
