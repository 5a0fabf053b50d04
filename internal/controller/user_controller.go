package controller

import (
	"trivia_backend/internal/service"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// GetSettings godoc
// @Summary Profile settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.SettingsView}
// @Router /settings [get]
func (c *UserController) GetSettings(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	settings, err := c.UserService.GetSettings(claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}

// UpdateSettings godoc
// @Summary Update username and visibility flags
// @Description Omitted fields keep their current value.
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.UserSettings true "Settings"
// @Success 200 {object} util.Response{data=service.SettingsView}
// @Failure 409 {object} util.Response "Username taken"
// @Router /settings [put]
func (c *UserController) UpdateSettings(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req service.UserSettings
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	settings, err := c.UserService.UpdateSettings(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}
