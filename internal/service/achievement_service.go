package service

import (
	"fmt"
	"sync/atomic"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/pkg/logger"
	"trivia_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// PerfectRule decides which games count as perfect.
type PerfectRule string

const (
	PerfectAny PerfectRule = "any"
	PerfectTen PerfectRule = "ten"
)

const (
	BadgePerfectScore   = "perfect_score"
	BadgeFiveGames      = "five_games"
	BadgeTenGames       = "ten_games"
	BadgeCategoryMaster = "category_master"
	BadgeSpeedDemon     = "speed_demon"
	BadgeTriplePerfect  = "triple_perfect"
)

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// BadgeCatalog is ordered the way badges are displayed.
var BadgeCatalog = []Badge{
	{ID: BadgePerfectScore, Name: "Perfect Score", Icon: "🎯", Description: "Answer every question in a quiz correctly"},
	{ID: BadgeFiveGames, Name: "Getting Started", Icon: "🎮", Description: "Play 5 games"},
	{ID: BadgeTenGames, Name: "Dedicated Player", Icon: "🔥", Description: "Play 10 games"},
	{ID: BadgeCategoryMaster, Name: "Category Master", Icon: "👑", Description: "Get 3 perfect scores in one category"},
	{ID: BadgeSpeedDemon, Name: "Speed Demon", Icon: "⚡", Description: "Complete 5 games in one day"},
	{ID: BadgeTriplePerfect, Name: "Hat Trick", Icon: "🎩", Description: "Get 3 perfect scores"},
}

func badgeByID(id string) (Badge, bool) {
	for _, b := range BadgeCatalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// GameRecord is the slice of a game the badge rules look at.
type GameRecord struct {
	Category       string
	Score          int
	TotalQuestions int
	CreatedAt      time.Time
}

func RecordsFromGames(games []model.Game) []GameRecord {
	out := make([]GameRecord, 0, len(games))
	for _, g := range games {
		out = append(out, GameRecord{
			Category:       g.Category,
			Score:          g.Score,
			TotalQuestions: g.TotalQuestions,
			CreatedAt:      g.CreatedAt,
		})
	}
	return out
}

func (r PerfectRule) IsPerfect(g GameRecord) bool {
	if g.TotalQuestions <= 0 || g.Score != g.TotalQuestions {
		return false
	}
	if r == PerfectTen {
		return g.TotalQuestions == 10
	}
	return true
}

// Evaluate returns the ids of every badge the history earns, in catalog order.
// Days are calendar dates in UTC.
func Evaluate(history []GameRecord, rule PerfectRule) []string {
	if len(history) == 0 {
		return nil
	}

	perfect := 0
	perfectByCategory := make(map[string]int)
	gamesByDay := make(map[string]int)
	for _, g := range history {
		if rule.IsPerfect(g) {
			perfect++
			perfectByCategory[g.Category]++
		}
		gamesByDay[g.CreatedAt.UTC().Format("2006-01-02")]++
	}

	earned := make(map[string]bool)
	earned[BadgePerfectScore] = perfect > 0
	earned[BadgeFiveGames] = len(history) >= 5
	earned[BadgeTenGames] = len(history) >= 10
	earned[BadgeTriplePerfect] = perfect >= 3
	for _, n := range perfectByCategory {
		if n >= 3 {
			earned[BadgeCategoryMaster] = true
		}
	}
	for _, n := range gamesByDay {
		if n >= 5 {
			earned[BadgeSpeedDemon] = true
		}
	}

	var ids []string
	for _, b := range BadgeCatalog {
		if earned[b.ID] {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

type BadgeStatus struct {
	Badge
	Earned     bool       `json:"earned"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

type AchievementService struct {
	AchievementRepo *repository.AchievementRepository
	GameRepo        *repository.GameRepository
	rule            atomic.Value
}

func NewAchievementService(
	achievementRepo *repository.AchievementRepository,
	gameRepo *repository.GameRepository,
	rule PerfectRule,
) *AchievementService {
	s := &AchievementService{
		AchievementRepo: achievementRepo,
		GameRepo:        gameRepo,
	}
	s.SetPerfectRule(rule)
	return s
}

// SetPerfectRule is safe to call while requests are in flight.
func (s *AchievementService) SetPerfectRule(rule PerfectRule) {
	if rule != PerfectTen {
		rule = PerfectAny
	}
	s.rule.Store(rule)
}

func (s *AchievementService) PerfectRule() PerfectRule {
	return s.rule.Load().(PerfectRule)
}

func (s *AchievementService) EvaluateUser(userID uint) ([]string, error) {
	games, err := s.GameRepo.History(userID)
	if err != nil {
		return nil, err
	}
	return Evaluate(RecordsFromGames(games), s.PerfectRule()), nil
}

// SyncBadges stores newly earned badges and returns only those.
// Badges already held are never revoked.
func (s *AchievementService) SyncBadges(userID uint) ([]Badge, error) {
	earned, err := s.EvaluateUser(userID)
	if err != nil {
		return nil, fmt.Errorf("evaluate badges: %w", err)
	}
	held, err := s.AchievementRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(held))
	for _, b := range held {
		have[b.BadgeID] = true
	}

	now := time.Now()
	var rows []model.UserBadge
	var unlocked []Badge
	for _, id := range earned {
		if have[id] {
			continue
		}
		rows = append(rows, model.UserBadge{UserID: userID, BadgeID: id, UnlockedAt: now})
		if b, ok := badgeByID(id); ok {
			unlocked = append(unlocked, b)
		}
	}
	if err := s.AchievementRepo.Unlock(rows); err != nil {
		return nil, fmt.Errorf("unlock badges: %w", err)
	}
	for _, b := range unlocked {
		monitoring.BadgesUnlocked.WithLabelValues(b.ID).Inc()
		logger.Log.Info("Badge unlocked", zap.Uint("user_id", userID), zap.String("badge", b.ID))
	}
	return unlocked, nil
}

// ListBadges returns the whole catalog with earned flags.
func (s *AchievementService) ListBadges(userID uint) ([]BadgeStatus, error) {
	held, err := s.AchievementRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	unlockedAt := make(map[string]time.Time, len(held))
	for _, b := range held {
		unlockedAt[b.BadgeID] = b.UnlockedAt
	}

	out := make([]BadgeStatus, 0, len(BadgeCatalog))
	for _, b := range BadgeCatalog {
		st := BadgeStatus{Badge: b}
		if at, ok := unlockedAt[b.ID]; ok {
			at := at
			st.Earned = true
			st.UnlockedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// EarnedBadges is ListBadges without the locked entries.
func (s *AchievementService) EarnedBadges(userID uint) ([]BadgeStatus, error) {
	all, err := s.ListBadges(userID)
	if err != nil {
		return nil, err
	}
	earned := all[:0]
	for _, b := range all {
		if b.Earned {
			earned = append(earned, b)
		}
	}
	return earned, nil
}
