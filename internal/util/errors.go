package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidResetToken    = errors.New("reset token is invalid or expired")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrGameNotFound         = errors.New("game not found")
	ErrCommunityNotFound    = errors.New("community not found")
	ErrNotCommissioner      = errors.New("only the commissioner can do this")
	ErrNotMember            = errors.New("not a member of this community")
	ErrAlreadyMember        = errors.New("already a member")
	ErrCommunityFull        = errors.New("community is full")
	ErrInvalidInviteCode    = errors.New("invalid invite code")
	ErrCommissionerLeave    = errors.New("the commissioner cannot leave or be removed")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrVersionNotFound      = errors.New("version not found")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrNotPending           = errors.New("question is not pending review")
	ErrSessionNotFound      = errors.New("quiz session not found")
	ErrAnswerLocked         = errors.New("answer already locked for this question")
	ErrInvalidChoice        = errors.New("choice is not one of the options")
	ErrHintUnavailable      = errors.New("hint is not available")
	ErrNotAnswered          = errors.New("current question has not been answered")
	ErrSessionFinished      = errors.New("quiz session already finished")
	ErrTriviaUnavailable    = errors.New("trivia question service unavailable")
	ErrNotEnoughQuestions   = errors.New("not enough questions for this quiz")
	ErrInvalidQuestionCount = errors.New("question count must be 3, 5, 10, 15 or 20")
	ErrUnsupportedFile      = errors.New("unsupported file type, use .csv or .xlsx")
)

// InputError carries a message that is safe to return to the caller as a 400.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

func Invalid(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}
