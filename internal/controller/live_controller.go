package controller

import (
	"trivia_backend/internal/service"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LiveController struct {
	Hub *service.LiveHub
}

func NewLiveController(hub *service.LiveHub) *LiveController {
	return &LiveController{Hub: hub}
}

// Connect godoc
// @Summary Live event socket
// @Description Upgrades to a websocket. Pass the JWT as the token query parameter. Messages are JSON {type,data}.
// @Tags Live
// @Param token query string true "JWT"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} util.Response
// @Router /live/ws [get]
func (c *LiveController) Connect(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	service.ServeLive(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}

// Presence godoc
// @Summary Whether a user has a live connection
// @Tags Live
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} util.Response
// @Router /live/online/{id} [get]
func (c *LiveController) Presence(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	util.Success(ctx, gin.H{"user_id": id, "online": c.Hub.IsOnline(id)})
}
