package controller

import (
	"net/http"
	"trivia_backend/internal/model"
	"trivia_backend/internal/service"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameController struct {
	GameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{GameService: gameService}
}

type VisibilityRequest struct {
	Visibility model.Visibility `json:"visibility" binding:"required"`
}

// ListMyGames godoc
// @Summary Games played by the current user, newest first
// @Tags Games
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.GameSummary}
// @Router /games [get]
func (c *GameController) ListMyGames(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	games, err := c.GameService.ListMyGames(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, games)
}

// GetGameReview godoc
// @Summary Question-by-question review of a game
// @Description Owners can review any of their games. Others only see public games of public profiles.
// @Tags Games
// @Produce json
// @Param id path int true "Game ID"
// @Success 200 {object} util.Response{data=service.GameReview}
// @Failure 404 {object} util.Response
// @Router /games/{id} [get]
func (c *GameController) GetGameReview(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	review, err := c.GameService.Review(util.ViewerID(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// SetVisibility godoc
// @Summary Make a game public or private
// @Tags Games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Game ID"
// @Param body body VisibilityRequest true "public or private"
// @Success 200 {object} util.Response
// @Router /games/{id}/visibility [put]
func (c *GameController) SetVisibility(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req VisibilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.GameService.SetVisibility(ctx.Request.Context(), claims.UserID, id, req.Visibility); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id, "visibility": req.Visibility})
}

// PublicFeed godoc
// @Summary Recent public games
// @Tags Games
// @Produce json
// @Param category query string false "Category"
// @Param difficulty query string false "easy, medium or hard"
// @Param sort query string false "recent or score" default(recent)
// @Success 200 {object} util.Response{data=[]service.GameSummary}
// @Router /feed [get]
func (c *GameController) PublicFeed(ctx *gin.Context) {
	games, err := c.GameService.PublicFeed(
		util.ViewerID(ctx),
		ctx.Query("category"),
		ctx.Query("difficulty"),
		ctx.DefaultQuery("sort", "recent"),
	)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, games)
}

// UserProfile godoc
// @Summary Public profile of a player
// @Tags Games
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} util.Response{data=service.ProfileView}
// @Failure 404 {object} util.Response
// @Router /users/{id}/profile [get]
func (c *GameController) UserProfile(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	profile, err := c.GameService.UserProfile(util.ViewerID(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// Dashboard godoc
// @Summary Personal dashboard
// @Tags Games
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.DashboardView}
// @Router /dashboard [get]
func (c *GameController) Dashboard(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	dashboard, err := c.GameService.Dashboard(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// GlobalLeaderboard godoc
// @Summary Global top 10 by average score
// @Tags Games
// @Produce json
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /leaderboard [get]
func (c *GameController) GlobalLeaderboard(ctx *gin.Context) {
	entries, err := c.GameService.GlobalLeaderboard(ctx.Request.Context(), util.ViewerID(ctx))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// Performance godoc
// @Summary Score history and per-category accuracy
// @Tags Games
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Performance}
// @Router /performance [get]
func (c *GameController) Performance(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	perf, err := c.GameService.Performance(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, perf)
}

// PerformanceChart godoc
// @Summary Score history as a PNG chart
// @Tags Games
// @Produce png
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /performance/chart [get]
func (c *GameController) PerformanceChart(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	perf, err := c.GameService.Performance(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	png, err := service.RenderPerformanceChart(perf)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, util.MimePNG, png)
}
