package controller

import (
	"trivia_backend/internal/service"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AchievementController struct {
	AchievementService *service.AchievementService
}

func NewAchievementController(achievementService *service.AchievementService) *AchievementController {
	return &AchievementController{AchievementService: achievementService}
}

// ListBadges godoc
// @Summary Badge catalog with the current user's progress
// @Tags Achievements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.BadgeStatus}
// @Router /achievements [get]
func (c *AchievementController) ListBadges(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	badges, err := c.AchievementService.ListBadges(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// Catalog godoc
// @Summary All badges that can be earned
// @Tags Achievements
// @Produce json
// @Success 200 {object} util.Response{data=[]service.Badge}
// @Router /achievements/catalog [get]
func (c *AchievementController) Catalog(ctx *gin.Context) {
	util.Success(ctx, service.BadgeCatalog)
}

// Sync godoc
// @Summary Re-evaluate the current user's badges
// @Tags Achievements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.Badge}
// @Router /achievements/sync [post]
func (c *AchievementController) Sync(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	unlocked, err := c.AchievementService.SyncBadges(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"unlocked": unlocked})
}
