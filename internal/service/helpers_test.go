package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with every table migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:              username,
		Email:                 username + "@example.com",
		Password:              "x",
		Role:                  model.RoleUser,
		ProfileVisibility:     true,
		LeaderboardVisibility: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedGame(t *testing.T, db *gorm.DB, g model.Game) *model.Game {
	t.Helper()
	if g.Visibility == "" {
		g.Visibility = model.VisibilityPublic
	}
	if g.Source == "" {
		g.Source = model.SourceTriviaAPI
	}
	if g.Category == "" {
		g.Category = "History"
	}
	require.NoError(t, db.Create(&g).Error)
	return &g
}

func sampleQuestions(n int) []Question {
	qs := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, Question{
			ID:               fmt.Sprintf("q%d", i),
			Category:         "History",
			Difficulty:       "easy",
			Text:             fmt.Sprintf("Question %d?", i),
			CorrectAnswer:    fmt.Sprintf("right %d", i),
			IncorrectAnswers: []string{"wrong a", "wrong b", "wrong c"},
		})
	}
	return qs
}

type fakeFetcher struct {
	questions []Question
	err       error
	calls     int
}

func (f *fakeFetcher) FetchQuestions(ctx context.Context, category, difficulty string, limit int) ([]Question, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.questions) > limit {
		return append([]Question(nil), f.questions[:limit]...), nil
	}
	return append([]Question(nil), f.questions...), nil
}

type pushed struct {
	userIDs []uint
	msg     LiveMessage
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushes []pushed
}

func (n *fakeNotifier) PushToUsers(userIDs []uint, msg LiveMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, pushed{userIDs: append([]uint(nil), userIDs...), msg: msg})
}

func (n *fakeNotifier) ofType(event string) []pushed {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []pushed
	for _, p := range n.pushes {
		if p.msg.Type == event {
			out = append(out, p)
		}
	}
	return out
}

// testServices wires the services the way the app does, on sqlite and miniredis.
type testServices struct {
	db           *gorm.DB
	rdb          *redis.Client
	notifier     *fakeNotifier
	fetcher      *fakeFetcher
	achievements *AchievementService
	games        *GameService
	communities  *CommunityService
	bank         *QuestionBankService
	custom       *CustomQuestionService
	quiz         *QuizService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := newTestDB(t)
	_, rdb := newTestRedis(t)

	userRepo := repository.NewUserRepository(db)
	gameRepo := repository.NewGameRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	bankRepo := repository.NewQuestionBankRepository(db)
	customRepo := repository.NewCustomQuestionRepository(db)

	ts := &testServices{
		db:       db,
		rdb:      rdb,
		notifier: &fakeNotifier{},
		fetcher:  &fakeFetcher{questions: sampleQuestions(20)},
	}
	ts.achievements = NewAchievementService(achievementRepo, gameRepo, PerfectAny)
	ts.games = NewGameService(gameRepo, userRepo, ts.achievements, rdb, model.VisibilityPublic)
	ts.communities = NewCommunityService(communityRepo, gameRepo, bankRepo, ts.notifier)
	storage := &StorageService{Provider: &LocalStorageProvider{Root: t.TempDir()}}
	ts.bank = NewQuestionBankService(bankRepo, ts.communities, storage)
	ts.custom = NewCustomQuestionService(customRepo)
	store := NewRedisSessionStore(rdb, time.Hour)
	ts.quiz = NewQuizService(ts.fetcher, store, bankRepo, customRepo, communityRepo, ts.games, ts.achievements, ts.notifier)
	return ts
}
