package service

import (
	"testing"
	"time"
	"trivia_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gameRecords(n int, score, total int, category string, start time.Time, step time.Duration) []GameRecord {
	out := make([]GameRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, GameRecord{
			Category:       category,
			Score:          score,
			TotalQuestions: total,
			CreatedAt:      start.Add(time.Duration(i) * step),
		})
	}
	return out
}

func TestEvaluate(t *testing.T) {
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		history []GameRecord
		rule    PerfectRule
		want    []string
	}{
		{
			name: "no games",
			rule: PerfectAny,
			want: nil,
		},
		{
			name:    "single imperfect game",
			history: gameRecords(1, 3, 5, "History", day, 0),
			rule:    PerfectAny,
			want:    nil,
		},
		{
			name:    "single perfect game",
			history: gameRecords(1, 5, 5, "History", day, 0),
			rule:    PerfectAny,
			want:    []string{BadgePerfectScore},
		},
		{
			name:    "zero question game is never perfect",
			history: gameRecords(1, 0, 0, "History", day, 0),
			rule:    PerfectAny,
			want:    nil,
		},
		{
			name:    "five games spread over days",
			history: gameRecords(5, 1, 5, "History", day, 24*time.Hour),
			rule:    PerfectAny,
			want:    []string{BadgeFiveGames},
		},
		{
			name:    "five games on one day",
			history: gameRecords(5, 1, 5, "History", day, time.Minute),
			rule:    PerfectAny,
			want:    []string{BadgeFiveGames, BadgeSpeedDemon},
		},
		{
			name:    "ten games",
			history: gameRecords(10, 1, 5, "History", day, 24*time.Hour),
			rule:    PerfectAny,
			want:    []string{BadgeFiveGames, BadgeTenGames},
		},
		{
			name:    "three perfect in one category",
			history: gameRecords(3, 5, 5, "Music", day, 24*time.Hour),
			rule:    PerfectAny,
			want:    []string{BadgePerfectScore, BadgeCategoryMaster, BadgeTriplePerfect},
		},
		{
			name: "three perfect across categories",
			history: append(append(
				gameRecords(1, 5, 5, "Music", day, 0),
				gameRecords(1, 5, 5, "History", day.Add(24*time.Hour), 0)...),
				gameRecords(1, 5, 5, "Film", day.Add(48*time.Hour), 0)...),
			rule: PerfectAny,
			want: []string{BadgePerfectScore, BadgeTriplePerfect},
		},
		{
			name:    "ten rule ignores short perfect games",
			history: gameRecords(3, 5, 5, "Music", day, 24*time.Hour),
			rule:    PerfectTen,
			want:    nil,
		},
		{
			name:    "ten rule counts ten question perfect games",
			history: gameRecords(1, 10, 10, "Music", day, 0),
			rule:    PerfectTen,
			want:    []string{BadgePerfectScore},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.history, tt.rule))
		})
	}
}

func TestEvaluateSpeedDemonUsesUTCDays(t *testing.T) {
	// 22:00 to 02:00 UTC straddles midnight, so no single day holds five games
	start := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	history := gameRecords(5, 1, 5, "History", start, time.Hour)
	assert.NotContains(t, Evaluate(history, PerfectAny), BadgeSpeedDemon)
}

func TestEvaluateIsMonotonic(t *testing.T) {
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var history []GameRecord
	var earned []string
	for i := 0; i < 12; i++ {
		score := 5
		if i%2 == 1 {
			score = 2
		}
		history = append(history, GameRecord{
			Category:       "Science",
			Score:          score,
			TotalQuestions: 5,
			CreatedAt:      day.Add(time.Duration(i) * 10 * time.Minute),
		})
		next := Evaluate(history, PerfectAny)
		for _, id := range earned {
			require.Contains(t, next, id, "badge %s lost after game %d", id, i+1)
		}
		earned = next
	}
	assert.Len(t, earned, len(BadgeCatalog))
}

func TestAchievementServiceSyncBadges(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")

	for i := 0; i < 3; i++ {
		seedGame(t, ts.db, model.Game{UserID: user.ID, Score: 5, TotalQuestions: 5, Category: "Music"})
	}

	unlocked, err := ts.achievements.SyncBadges(user.ID)
	require.NoError(t, err)
	ids := make([]string, 0, len(unlocked))
	for _, b := range unlocked {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{BadgePerfectScore, BadgeCategoryMaster, BadgeTriplePerfect}, ids)

	again, err := ts.achievements.SyncBadges(user.ID)
	require.NoError(t, err)
	assert.Empty(t, again, "held badges are not unlocked twice")

	// switching to the stricter rule never revokes
	ts.achievements.SetPerfectRule(PerfectTen)
	_, err = ts.achievements.SyncBadges(user.ID)
	require.NoError(t, err)
	earned, err := ts.achievements.EarnedBadges(user.ID)
	require.NoError(t, err)
	assert.Len(t, earned, 3)

	all, err := ts.achievements.ListBadges(user.ID)
	require.NoError(t, err)
	require.Len(t, all, len(BadgeCatalog))
	for _, b := range all {
		if b.Earned {
			assert.NotNil(t, b.UnlockedAt)
		} else {
			assert.Nil(t, b.UnlockedAt)
		}
	}
}

func TestSetPerfectRuleFallsBackToAny(t *testing.T) {
	s := NewAchievementService(nil, nil, PerfectRule("bogus"))
	assert.Equal(t, PerfectAny, s.PerfectRule())
	s.SetPerfectRule(PerfectTen)
	assert.Equal(t, PerfectTen, s.PerfectRule())
}
