package controller

import (
	"trivia_backend/internal/model"
	"trivia_backend/internal/service"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CustomQuestionController struct {
	CustomService *service.CustomQuestionService
}

func NewCustomQuestionController(customService *service.CustomQuestionService) *CustomQuestionController {
	return &CustomQuestionController{CustomService: customService}
}

// Submit godoc
// @Summary Submit a question for review
// @Tags Custom Questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.SubmitQuestionRequest true "Question"
// @Success 201 {object} util.Response{data=model.CustomQuestion}
// @Router /custom-questions [post]
func (c *CustomQuestionController) Submit(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req service.SubmitQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.CustomService.Submit(claims.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// ListMine godoc
// @Summary Questions submitted by the current user
// @Tags Custom Questions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.CustomQuestion}
// @Router /custom-questions [get]
func (c *CustomQuestionController) ListMine(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	qs, err := c.CustomService.ListMine(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

// ListPending godoc
// @Summary Questions awaiting review
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.CustomQuestion}
// @Router /admin/custom-questions [get]
func (c *CustomQuestionController) ListPending(ctx *gin.Context) {
	qs, err := c.CustomService.ListPending()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

// Approve godoc
// @Summary Approve a pending question
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response{data=model.CustomQuestion}
// @Failure 409 {object} util.Response "Not pending"
// @Router /admin/custom-questions/{id}/approve [post]
func (c *CustomQuestionController) Approve(ctx *gin.Context) {
	c.review(ctx, c.CustomService.Approve)
}

// Reject godoc
// @Summary Reject a pending question
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response{data=model.CustomQuestion}
// @Failure 409 {object} util.Response "Not pending"
// @Router /admin/custom-questions/{id}/reject [post]
func (c *CustomQuestionController) Reject(ctx *gin.Context) {
	c.review(ctx, c.CustomService.Reject)
}

func (c *CustomQuestionController) review(ctx *gin.Context, fn func(adminID, id uint) (*model.CustomQuestion, error)) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	q, err := fn(claims.UserID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, q)
}
