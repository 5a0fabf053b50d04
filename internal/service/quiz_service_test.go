package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playThrough answers every question correctly and returns the final outcome.
func playThrough(t *testing.T, ts *testServices, userID uint, view *SessionView) *NextOutcome {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < view.Total; i++ {
		session, err := ts.quiz.Store.Load(ctx, view.ID, userID)
		require.NoError(t, err)
		_, err = ts.quiz.Answer(ctx, userID, view.ID, session.current().Correct)
		require.NoError(t, err)
		out, err := ts.quiz.Next(ctx, userID, view.ID)
		require.NoError(t, err)
		if i == view.Total-1 {
			return out
		}
		assert.Nil(t, out.Result)
	}
	t.Fatal("quiz never finished")
	return nil
}

func TestQuizStartValidation(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")
	ctx := context.Background()
	other := uint(42)

	tests := []struct {
		name    string
		admin   bool
		req     StartQuizRequest
		wantErr error
		invalid bool
	}{
		{name: "odd count", req: StartQuizRequest{Count: 7}, wantErr: util.ErrInvalidQuestionCount},
		{name: "bad difficulty", req: StartQuizRequest{Difficulty: "impossible"}, invalid: true},
		{name: "unknown source", req: StartQuizRequest{Source: "rumours"}, invalid: true},
		{name: "mixed needs admin", req: StartQuizRequest{Source: model.SourceMixed}, wantErr: util.ErrPermissionDenied},
		{name: "community needs id", req: StartQuizRequest{Source: model.SourceCommunity}, invalid: true},
		{name: "community needs membership", req: StartQuizRequest{Source: model.SourceCommunity, CommunityID: &other}, wantErr: util.ErrNotMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.quiz.Start(ctx, user.ID, tt.admin, tt.req)
			if tt.invalid {
				var inputErr *util.InputError
				assert.ErrorAs(t, err, &inputErr)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuizFullFlow(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")
	ctx := context.Background()

	view, err := ts.quiz.Start(ctx, user.ID, false, StartQuizRequest{Category: "History", Difficulty: "Easy", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, model.SourceTriviaAPI, view.Config.Source)
	assert.Equal(t, "easy", view.Config.Difficulty)
	require.NotNil(t, view.Question)
	assert.Empty(t, view.Question.Correct)

	_, err = ts.quiz.Get(ctx, user.ID+1, view.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)

	hint, err := ts.quiz.Hint(ctx, user.ID, view.ID)
	require.NoError(t, err)
	assert.Len(t, hint.Hidden, HintRemoves)
	assert.Len(t, hint.Session.Question.Options, 2)

	_, err = ts.quiz.Next(ctx, user.ID, view.ID)
	assert.ErrorIs(t, err, util.ErrNotAnswered)

	out := playThrough(t, ts, user.ID, view)
	require.NotNil(t, out.Result)
	assert.Equal(t, 3, out.Result.Score)
	assert.NotZero(t, out.GameID)
	assert.Equal(t, StateFinished, out.Session.State)
	require.Len(t, out.NewBadges, 1)
	assert.Equal(t, BadgePerfectScore, out.NewBadges[0].ID)
	assert.Len(t, ts.notifier.ofType(EventBadgeUnlocked), 1)

	_, err = ts.quiz.Get(ctx, user.ID, view.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound, "finished sessions are dropped")

	review, err := ts.games.Review(user.ID, out.GameID)
	require.NoError(t, err)
	assert.Equal(t, 3, review.Score)
	require.Len(t, review.Answers, 3)
	assert.True(t, review.Answers[0].HintUsed)
	assert.False(t, review.Answers[1].HintUsed)
	assert.Len(t, review.Answers[0].AllAnswers, 4)
}

func TestQuizTriviaUnavailable(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")
	ts.fetcher.err = fmt.Errorf("%w: boom", util.ErrTriviaUnavailable)

	_, err := ts.quiz.Start(context.Background(), user.ID, false, StartQuizRequest{})
	assert.ErrorIs(t, err, util.ErrTriviaUnavailable)
}

func TestQuizMixedSurvivesTriviaOutage(t *testing.T) {
	ts := newTestServices(t)
	admin := seedUser(t, ts.db, "admin")
	ts.fetcher.err = errors.New("down")

	for i := 0; i < 3; i++ {
		q, err := ts.custom.Submit(admin.ID, SubmitQuestionRequest{
			Category:         "Music",
			Difficulty:       "easy",
			QuestionText:     fmt.Sprintf("Song %d?", i),
			CorrectAnswer:    "Yes",
			IncorrectAnswers: []string{"No", "Maybe", "Later"},
		})
		require.NoError(t, err)
		_, err = ts.custom.Approve(admin.ID, q.ID)
		require.NoError(t, err)
	}

	view, err := ts.quiz.Start(context.Background(), admin.ID, true, StartQuizRequest{Source: model.SourceMixed, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Total)
}

func TestQuizCommunitySource(t *testing.T) {
	ts, owner, c := newBank(t)
	player := seedUser(t, ts.db, "player")
	_, err := ts.communities.Join(player.ID, c.InviteCode)
	require.NoError(t, err)
	ctx := context.Background()
	id := c.ID

	_, err = ts.quiz.Start(ctx, player.ID, false, StartQuizRequest{Source: model.SourceCommunity, CommunityID: &id, Count: 3})
	assert.ErrorIs(t, err, util.ErrNotEnoughQuestions)

	for _, city := range []string{"Paris", "Rome", "Madrid", "Lisbon"} {
		_, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion(city))
		require.NoError(t, err)
	}

	// the category filter is relaxed when it matches nothing
	view, err := ts.quiz.Start(ctx, player.ID, false, StartQuizRequest{Source: model.SourceCommunity, CommunityID: &id, Category: "Sports", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Total)

	out := playThrough(t, ts, player.ID, view)
	require.NotNil(t, out.Result)

	updates := ts.notifier.ofType(EventLeaderboardUpdated)
	require.Len(t, updates, 1)
	assert.ElementsMatch(t, []uint{owner.ID, player.ID}, updates[0].userIDs)

	board, err := ts.communities.Leaderboard(owner.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, player.ID, board[0].UserID)
	assert.Equal(t, 100.0, board[0].AveragePercent)
}

func TestQuizCommunityOffSeasonPushesNothing(t *testing.T) {
	ts, owner, c := newBank(t)
	for _, city := range []string{"Paris", "Rome", "Madrid"} {
		_, err := ts.bank.Create(owner.ID, c.ID, capitalQuestion(city))
		require.NoError(t, err)
	}
	ended := time.Now().Add(-time.Hour)
	require.NoError(t, ts.db.Model(c).Updates(map[string]any{
		"season_start": ended.Add(-24 * time.Hour),
		"season_end":   ended,
	}).Error)
	ctx := context.Background()
	id := c.ID

	view, err := ts.quiz.Start(ctx, owner.ID, false, StartQuizRequest{Source: model.SourceCommunity, CommunityID: &id, Count: 3})
	require.NoError(t, err)
	out := playThrough(t, ts, owner.ID, view)
	require.NotNil(t, out.Result)
	assert.NotZero(t, out.GameID, "off-season games are still recorded")
	assert.Empty(t, ts.notifier.ofType(EventLeaderboardUpdated))
}

func TestQuizAbandon(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")
	ctx := context.Background()

	view, err := ts.quiz.Start(ctx, user.ID, false, StartQuizRequest{Count: 5})
	require.NoError(t, err)

	require.NoError(t, ts.quiz.Abandon(ctx, user.ID+1, view.ID), "someone else's session is left alone")
	_, err = ts.quiz.Get(ctx, user.ID, view.ID)
	require.NoError(t, err)

	require.NoError(t, ts.quiz.Abandon(ctx, user.ID, view.ID))
	_, err = ts.quiz.Get(ctx, user.ID, view.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	assert.NoError(t, ts.quiz.Abandon(ctx, user.ID, view.ID))

	games, err := ts.games.ListMyGames(user.ID)
	require.NoError(t, err)
	assert.Empty(t, games, "abandoned quizzes are not recorded")
}

// answerUpToLast plays every question but leaves the last one answered and unfinished.
func answerUpToLast(t *testing.T, ts *testServices, userID uint, view *SessionView) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < view.Total; i++ {
		session, err := ts.quiz.Store.Load(ctx, view.ID, userID)
		require.NoError(t, err)
		_, err = ts.quiz.Answer(ctx, userID, view.ID, session.current().Correct)
		require.NoError(t, err)
		if i < view.Total-1 {
			_, err = ts.quiz.Next(ctx, userID, view.ID)
			require.NoError(t, err)
		}
	}
}

func TestQuizConcurrentFinishRecordsOneGame(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")
	ctx := context.Background()

	view, err := ts.quiz.Start(ctx, user.ID, false, StartQuizRequest{Count: 3})
	require.NoError(t, err)
	answerUpToLast(t, ts, user.ID, view)

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = ts.quiz.Next(ctx, user.ID, view.ID)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, util.ErrSessionFinished) || errors.Is(err, util.ErrSessionNotFound), err)
	}
	assert.Equal(t, 1, succeeded)

	games, err := ts.games.ListMyGames(user.ID)
	require.NoError(t, err)
	assert.Len(t, games, 1)
	assert.Len(t, ts.notifier.ofType(EventBadgeUnlocked), 1)
}

func TestQuizFinishRestoresSessionWhenRecordFails(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")
	ctx := context.Background()

	view, err := ts.quiz.Start(ctx, user.ID, false, StartQuizRequest{Count: 3})
	require.NoError(t, err)
	answerUpToLast(t, ts, user.ID, view)

	require.NoError(t, ts.db.Migrator().DropTable(&model.Game{}))
	_, err = ts.quiz.Next(ctx, user.ID, view.ID)
	require.Error(t, err)

	current, err := ts.quiz.Get(ctx, user.ID, view.ID)
	require.NoError(t, err, "the session survives a failed save")
	assert.Equal(t, StateAnswered, current.State)

	require.NoError(t, ts.db.AutoMigrate(&model.Game{}))
	out, err := ts.quiz.Next(ctx, user.ID, view.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, 3, out.Result.Score)
	assert.NotZero(t, out.GameID)
}
