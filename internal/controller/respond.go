package controller

import (
	"errors"
	"net/http"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{util.ErrUserNotFound, http.StatusNotFound},
	{util.ErrGameNotFound, http.StatusNotFound},
	{util.ErrCommunityNotFound, http.StatusNotFound},
	{util.ErrQuestionNotFound, http.StatusNotFound},
	{util.ErrVersionNotFound, http.StatusNotFound},
	{util.ErrTemplateNotFound, http.StatusNotFound},
	{util.ErrSessionNotFound, http.StatusNotFound},
	{util.ErrInvalidInviteCode, http.StatusNotFound},
	{util.ErrEmailRegistered, http.StatusConflict},
	{util.ErrUsernameTaken, http.StatusConflict},
	{util.ErrAlreadyMember, http.StatusConflict},
	{util.ErrCommunityFull, http.StatusConflict},
	{util.ErrNotPending, http.StatusConflict},
	{util.ErrAnswerLocked, http.StatusConflict},
	{util.ErrSessionFinished, http.StatusConflict},
	{util.ErrNotAnswered, http.StatusConflict},
	{util.ErrHintUnavailable, http.StatusConflict},
	{util.ErrInvalidCredentials, http.StatusUnauthorized},
	{util.ErrPermissionDenied, http.StatusForbidden},
	{util.ErrNotCommissioner, http.StatusForbidden},
	{util.ErrNotMember, http.StatusForbidden},
	{util.ErrCommissionerLeave, http.StatusBadRequest},
	{util.ErrInvalidResetToken, http.StatusBadRequest},
	{util.ErrInvalidChoice, http.StatusBadRequest},
	{util.ErrInvalidQuestionCount, http.StatusBadRequest},
	{util.ErrUnsupportedFile, http.StatusBadRequest},
	{util.ErrNotEnoughQuestions, http.StatusUnprocessableEntity},
	{util.ErrTriviaUnavailable, http.StatusBadGateway},
}

// respondError maps domain errors to status codes. Anything unknown is logged and answered with a 500.
func respondError(ctx *gin.Context, err error) {
	var input *util.InputError
	if errors.As(err, &input) {
		util.BadRequest(ctx, input.Msg)
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			util.Error(ctx, e.status, e.err.Error())
			return
		}
	}
	util.LogInternalError(ctx, err)
}

// pathID reads a positive numeric path parameter and answers 400 when it is not one.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}

func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}
