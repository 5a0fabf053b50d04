package controller

import (
	"trivia_backend/internal/service"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

type AnswerRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// StartQuiz godoc
// @Summary Start a quiz session
// @Description Sources: trivia_api, community (members only), custom, mixed (admin only). Count is 3, 5, 10, 15 or 20.
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.StartQuizRequest true "Quiz options"
// @Success 201 {object} util.Response{data=service.SessionView}
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response "Trivia API unavailable"
// @Router /quiz/sessions [post]
func (c *QuizController) StartQuiz(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req service.StartQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.QuizService.Start(ctx.Request.Context(), claims.UserID, claims.IsAdmin(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// GetSession godoc
// @Summary Current state of a quiz session
// @Tags Quiz
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response
// @Router /quiz/sessions/{id} [get]
func (c *QuizController) GetSession(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	view, err := c.QuizService.Get(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Answer godoc
// @Summary Lock in an answer for the current question
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body AnswerRequest true "Chosen option"
// @Success 200 {object} util.Response{data=service.AnswerOutcome}
// @Failure 409 {object} util.Response "Already answered"
// @Router /quiz/sessions/{id}/answer [post]
func (c *QuizController) Answer(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	outcome, err := c.QuizService.Answer(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.Choice)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}

// Hint godoc
// @Summary Use the 50/50 hint on the current question
// @Tags Quiz
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} util.Response{data=service.HintOutcome}
// @Failure 409 {object} util.Response "Hint not available"
// @Router /quiz/sessions/{id}/hint [post]
func (c *QuizController) Hint(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	outcome, err := c.QuizService.Hint(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}

// Next godoc
// @Summary Advance to the next question or finish the quiz
// @Tags Quiz
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} util.Response{data=service.NextOutcome}
// @Failure 409 {object} util.Response "Current question not answered"
// @Router /quiz/sessions/{id}/next [post]
func (c *QuizController) Next(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	outcome, err := c.QuizService.Next(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}

// Abandon godoc
// @Summary Drop a quiz session without recording a game
// @Tags Quiz
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} util.Response
// @Router /quiz/sessions/{id} [delete]
func (c *QuizController) Abandon(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	if err := c.QuizService.Abandon(ctx.Request.Context(), claims.UserID, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
