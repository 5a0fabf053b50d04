package service

import (
	"testing"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() SubmitQuestionRequest {
	return SubmitQuestionRequest{
		Category:         " Music ",
		Difficulty:       "MEDIUM",
		QuestionText:     "Who wrote Bohemian Rhapsody?",
		CorrectAnswer:    "Freddie Mercury",
		IncorrectAnswers: []string{"Brian May", " Roger Taylor ", "John Deacon"},
	}
}

func TestCustomQuestionSubmit(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")

	q, err := ts.custom.Submit(user.ID, validSubmission())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, q.Status)
	assert.Equal(t, "Music", q.Category)
	assert.Equal(t, "medium", q.Difficulty)
	assert.Equal(t, []string{"Brian May", "Roger Taylor", "John Deacon"}, []string(q.IncorrectAnswers))

	bad := []func(r *SubmitQuestionRequest){
		func(r *SubmitQuestionRequest) { r.Difficulty = "expert" },
		func(r *SubmitQuestionRequest) { r.IncorrectAnswers = r.IncorrectAnswers[:2] },
		func(r *SubmitQuestionRequest) { r.IncorrectAnswers = []string{"a", "", "c"} },
		func(r *SubmitQuestionRequest) { r.QuestionText = "   " },
		func(r *SubmitQuestionRequest) { r.IncorrectAnswers = []string{"Brian May", "BRIAN MAY ", "John Deacon"} },
		func(r *SubmitQuestionRequest) { r.IncorrectAnswers[1] = " " + r.CorrectAnswer },
	}
	for i, mutate := range bad {
		req := validSubmission()
		mutate(&req)
		_, err := ts.custom.Submit(user.ID, req)
		var inputErr *util.InputError
		assert.ErrorAs(t, err, &inputErr, "case %d", i)
	}

	mine, err := ts.custom.ListMine(user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCustomQuestionReview(t *testing.T) {
	ts := newTestServices(t)
	user := seedUser(t, ts.db, "alice")
	admin := seedUser(t, ts.db, "admin")
	reviewedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ts.custom.now = func() time.Time { return reviewedAt }

	first, err := ts.custom.Submit(user.ID, validSubmission())
	require.NoError(t, err)
	second, err := ts.custom.Submit(user.ID, validSubmission())
	require.NoError(t, err)

	pending, err := ts.custom.ListPending()
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := ts.custom.Approve(admin.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, admin.ID, *approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
	assert.True(t, reviewedAt.Equal(*approved.ReviewedAt))

	_, err = ts.custom.Reject(admin.ID, first.ID)
	assert.ErrorIs(t, err, util.ErrNotPending, "a reviewed question cannot be reviewed again")

	rejected, err := ts.custom.Reject(admin.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)

	_, err = ts.custom.Approve(admin.ID, 9999)
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)

	pending, err = ts.custom.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	pool, err := ts.custom.CustomRepo.Approved("", "", 10)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, first.ID, pool[0].ID)
}
