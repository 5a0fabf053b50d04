package service

import (
	"math/rand"
	"slices"
	"time"
	"trivia_backend/internal/model"
	"trivia_backend/internal/util"
)

type SessionState string

const (
	StateActive   SessionState = "active"
	StateAnswered SessionState = "answered"
	StateFinished SessionState = "finished"
)

// HintRemoves is how many wrong options a 50/50 hint hides.
const HintRemoves = 2

type SessionConfig struct {
	Category    string               `json:"category"`
	Difficulty  string               `json:"difficulty"`
	Source      model.QuestionSource `json:"source"`
	Count       int                  `json:"count"`
	CommunityID *uint                `json:"community_id,omitempty"`
}

type SessionQuestion struct {
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Correct  string   `json:"correct"`
	Options  []string `json:"options"`
}

type AnswerRecord struct {
	QuestionOrder int      `json:"question_order"`
	QuestionText  string   `json:"question_text"`
	CorrectAnswer string   `json:"correct_answer"`
	UserAnswer    string   `json:"user_answer"`
	AllAnswers    []string `json:"all_answers"`
	IsCorrect     bool     `json:"is_correct"`
	HintUsed      bool     `json:"hint_used"`
}

type QuizResult struct {
	Score   int            `json:"score"`
	Total   int            `json:"total"`
	Answers []AnswerRecord `json:"answers"`
}

// Session is one player's run through a quiz. It is stored as JSON between requests.
type Session struct {
	ID        string            `json:"id"`
	UserID    uint              `json:"user_id"`
	Config    SessionConfig     `json:"config"`
	Questions []SessionQuestion `json:"questions"`
	Index     int               `json:"index"`
	Score     int               `json:"score"`
	State     SessionState      `json:"state"`
	HintUsed  bool              `json:"hint_used"`
	Hidden    []string          `json:"hidden"`
	Selected  string            `json:"selected"`
	Log       []AnswerRecord    `json:"log"`
	CreatedAt time.Time         `json:"created_at"`
}

// distinctOptions puts the correct answer first and drops any wrong answer
// that repeats an earlier option.
func distinctOptions(correct string, wrong []string) []string {
	options := make([]string, 0, len(wrong)+1)
	seen := map[string]bool{answerKey(correct): true}
	options = append(options, correct)
	for _, a := range wrong {
		if k := answerKey(a); !seen[k] {
			seen[k] = true
			options = append(options, a)
		}
	}
	return options
}

// NewSession shuffles each question's options and starts at the first question.
// Repeated answers from upstream data appear once.
func NewSession(id string, userID uint, cfg SessionConfig, questions []Question) *Session {
	qs := make([]SessionQuestion, 0, len(questions))
	for _, q := range questions {
		options := distinctOptions(q.CorrectAnswer, q.IncorrectAnswers)
		rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
		qs = append(qs, SessionQuestion{
			Text:     q.Text,
			Category: q.Category,
			Correct:  q.CorrectAnswer,
			Options:  options,
		})
	}
	return &Session{
		ID:        id,
		UserID:    userID,
		Config:    cfg,
		Questions: qs,
		State:     StateActive,
		CreatedAt: time.Now(),
	}
}

func (s *Session) current() *SessionQuestion {
	return &s.Questions[s.Index]
}

// VisibleOptions is the current question's options minus any hidden by a hint.
func (s *Session) VisibleOptions() []string {
	opts := s.current().Options
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if !slices.Contains(s.Hidden, o) {
			out = append(out, o)
		}
	}
	return out
}

func (s *Session) Answer(choice string) (AnswerRecord, error) {
	switch s.State {
	case StateAnswered:
		return AnswerRecord{}, util.ErrAnswerLocked
	case StateFinished:
		return AnswerRecord{}, util.ErrSessionFinished
	}
	if !slices.Contains(s.VisibleOptions(), choice) {
		return AnswerRecord{}, util.ErrInvalidChoice
	}

	q := s.current()
	rec := AnswerRecord{
		QuestionOrder: s.Index + 1,
		QuestionText:  q.Text,
		CorrectAnswer: q.Correct,
		UserAnswer:    choice,
		AllAnswers:    append([]string(nil), q.Options...),
		IsCorrect:     choice == q.Correct,
		HintUsed:      s.HintUsed,
	}
	if rec.IsCorrect {
		s.Score++
	}
	s.Selected = choice
	s.Log = append(s.Log, rec)
	s.State = StateAnswered
	return rec, nil
}

// UseHint hides up to two wrong options of the current question and returns them.
func (s *Session) UseHint() ([]string, error) {
	if s.State != StateActive || s.HintUsed {
		return nil, util.ErrHintUnavailable
	}
	q := s.current()
	var wrong []string
	for _, o := range s.VisibleOptions() {
		if o != q.Correct {
			wrong = append(wrong, o)
		}
	}
	n := min(HintRemoves, len(wrong))
	hidden := make([]string, 0, n)
	for _, i := range rand.Perm(len(wrong))[:n] {
		hidden = append(hidden, wrong[i])
	}
	s.Hidden = append(s.Hidden, hidden...)
	s.HintUsed = true
	return hidden, nil
}

// Next moves past an answered question. On the last question it finishes the
// session and returns the result; otherwise the result is nil.
func (s *Session) Next() (*QuizResult, error) {
	switch s.State {
	case StateActive:
		return nil, util.ErrNotAnswered
	case StateFinished:
		return nil, util.ErrSessionFinished
	}
	if s.Index >= len(s.Questions)-1 {
		s.State = StateFinished
		res := s.Result()
		return &res, nil
	}
	s.Index++
	s.State = StateActive
	s.HintUsed = false
	s.Hidden = nil
	s.Selected = ""
	return nil, nil
}

func (s *Session) Result() QuizResult {
	return QuizResult{
		Score:   s.Score,
		Total:   len(s.Questions),
		Answers: append([]AnswerRecord(nil), s.Log...),
	}
}

type QuestionView struct {
	Number   int      `json:"number"`
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Options  []string `json:"options"`
	Hidden   []string `json:"hidden,omitempty"`
	HintUsed bool     `json:"hint_used"`
	Selected string   `json:"selected,omitempty"`
	Correct  string   `json:"correct,omitempty"`
}

type SessionView struct {
	ID       string        `json:"id"`
	State    SessionState  `json:"state"`
	Score    int           `json:"score"`
	Total    int           `json:"total"`
	Config   SessionConfig `json:"config"`
	Question *QuestionView `json:"question,omitempty"`
}

// View is what the player sees. The correct answer stays hidden until the question is answered.
func (s *Session) View() SessionView {
	v := SessionView{
		ID:     s.ID,
		State:  s.State,
		Score:  s.Score,
		Total:  len(s.Questions),
		Config: s.Config,
	}
	if s.State == StateFinished || len(s.Questions) == 0 {
		return v
	}
	q := s.current()
	qv := &QuestionView{
		Number:   s.Index + 1,
		Text:     q.Text,
		Category: q.Category,
		Options:  s.VisibleOptions(),
		Hidden:   s.Hidden,
		HintUsed: s.HintUsed,
		Selected: s.Selected,
	}
	if s.State == StateAnswered {
		qv.Correct = q.Correct
	}
	v.Question = qv
	return v
}
