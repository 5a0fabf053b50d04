package service

import (
	"testing"
	"trivia_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(n int) *Session {
	return NewSession("s1", 7, SessionConfig{Category: "History", Count: n}, sampleQuestions(n))
}

func wrongOption(s *Session) string {
	for _, o := range s.VisibleOptions() {
		if o != s.current().Correct {
			return o
		}
	}
	return ""
}

func TestNewSessionKeepsEveryOption(t *testing.T) {
	s := newTestSession(3)
	require.Len(t, s.Questions, 3)
	for i, q := range s.Questions {
		assert.Len(t, q.Options, 4)
		assert.Contains(t, q.Options, q.Correct)
		assert.ElementsMatch(t, []string{sampleQuestions(3)[i].CorrectAnswer, "wrong a", "wrong b", "wrong c"}, q.Options)
	}
	assert.Equal(t, StateActive, s.State)
	assert.Zero(t, s.Index)
}

func TestNewSessionDropsRepeatedOptions(t *testing.T) {
	q := Question{
		Text:             "Capital of France?",
		CorrectAnswer:    "Paris",
		IncorrectAnswers: []string{"London", "London", "paris ", "Berlin"},
	}
	s := NewSession("s1", 7, SessionConfig{Count: 1}, []Question{q})
	assert.ElementsMatch(t, []string{"Paris", "London", "Berlin"}, s.current().Options)

	for i := 0; i < 40; i++ {
		s := NewSession("s1", 7, SessionConfig{Count: 1}, []Question{q})
		hidden, err := s.UseHint()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"London", "Berlin"}, hidden)
		assert.Equal(t, []string{"Paris"}, s.VisibleOptions(), "a hint never hides more than it reports")
	}
}

func TestSessionAnswerLocks(t *testing.T) {
	s := newTestSession(2)
	correct := s.current().Correct

	rec, err := s.Answer(correct)
	require.NoError(t, err)
	assert.True(t, rec.IsCorrect)
	assert.Equal(t, 1, rec.QuestionOrder)
	assert.Equal(t, 1, s.Score)
	assert.Equal(t, StateAnswered, s.State)

	_, err = s.Answer(correct)
	assert.ErrorIs(t, err, util.ErrAnswerLocked)
	assert.Equal(t, 1, s.Score, "a locked answer never scores twice")
}

func TestSessionAnswerRejectsUnknownChoice(t *testing.T) {
	s := newTestSession(1)
	_, err := s.Answer("not an option")
	assert.ErrorIs(t, err, util.ErrInvalidChoice)
	assert.Equal(t, StateActive, s.State)
}

func TestSessionHint(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := newTestSession(1)
		correct := s.current().Correct

		hidden, err := s.UseHint()
		require.NoError(t, err)
		require.Len(t, hidden, HintRemoves)
		assert.NotContains(t, hidden, correct)

		visible := s.VisibleOptions()
		assert.Len(t, visible, 2)
		assert.Contains(t, visible, correct)
		for _, h := range hidden {
			assert.NotContains(t, visible, h)
		}

		_, err = s.UseHint()
		assert.ErrorIs(t, err, util.ErrHintUnavailable)

		_, err = s.Answer(hidden[0])
		assert.ErrorIs(t, err, util.ErrInvalidChoice, "hidden options cannot be picked")
	}
}

func TestSessionHintAfterAnswer(t *testing.T) {
	s := newTestSession(1)
	_, err := s.Answer(s.current().Correct)
	require.NoError(t, err)
	_, err = s.UseHint()
	assert.ErrorIs(t, err, util.ErrHintUnavailable)
}

func TestSessionHintResetsOnNext(t *testing.T) {
	s := newTestSession(2)
	_, err := s.UseHint()
	require.NoError(t, err)
	rec, err := s.Answer(s.current().Correct)
	require.NoError(t, err)
	assert.True(t, rec.HintUsed)

	res, err := s.Next()
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.False(t, s.HintUsed)
	assert.Empty(t, s.Hidden)
	assert.Len(t, s.VisibleOptions(), 4)

	_, err = s.UseHint()
	assert.NoError(t, err)
}

func TestSessionNextRequiresAnswer(t *testing.T) {
	s := newTestSession(2)
	_, err := s.Next()
	assert.ErrorIs(t, err, util.ErrNotAnswered)
}

func TestSessionPlaythrough(t *testing.T) {
	s := newTestSession(5)
	want := 0
	for i := 0; i < 5; i++ {
		choice := s.current().Correct
		if i%2 == 1 {
			choice = wrongOption(s)
		} else {
			want++
		}
		_, err := s.Answer(choice)
		require.NoError(t, err)

		res, err := s.Next()
		require.NoError(t, err)
		if i < 4 {
			require.Nil(t, res)
			continue
		}
		require.NotNil(t, res)
		assert.Equal(t, want, res.Score)
		assert.Equal(t, 5, res.Total)
		require.Len(t, res.Answers, 5)

		correct := 0
		for j, a := range res.Answers {
			assert.Equal(t, j+1, a.QuestionOrder)
			assert.Len(t, a.AllAnswers, 4)
			if a.IsCorrect {
				correct++
			}
		}
		assert.Equal(t, res.Score, correct, "score matches the answer log")
	}
	assert.Equal(t, StateFinished, s.State)

	_, err := s.Answer("anything")
	assert.ErrorIs(t, err, util.ErrSessionFinished)
	_, err = s.Next()
	assert.ErrorIs(t, err, util.ErrSessionFinished)
}

func TestSessionViewHidesCorrectUntilAnswered(t *testing.T) {
	s := newTestSession(1)
	v := s.View()
	require.NotNil(t, v.Question)
	assert.Empty(t, v.Question.Correct)
	assert.Equal(t, 1, v.Question.Number)

	_, err := s.Answer(wrongOption(s))
	require.NoError(t, err)
	v = s.View()
	assert.Equal(t, s.current().Correct, v.Question.Correct)
	assert.NotEmpty(t, v.Question.Selected)

	_, err = s.Next()
	require.NoError(t, err)
	assert.Nil(t, s.View().Question)
}
