package controller

import (
	"trivia_backend/internal/service"
	"trivia_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CommunityController struct {
	CommunityService *service.CommunityService
}

func NewCommunityController(communityService *service.CommunityService) *CommunityController {
	return &CommunityController{CommunityService: communityService}
}

type CreateCommunityRequest struct {
	Name string `json:"name" binding:"required"`
}

type JoinCommunityRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

// CreateCommunity godoc
// @Summary Create a league community
// @Description The caller becomes commissioner and first member.
// @Tags Communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateCommunityRequest true "Community name"
// @Success 201 {object} util.Response{data=model.Community}
// @Router /communities [post]
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req CreateCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	community, err := c.CommunityService.Create(claims.UserID, req.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, community)
}

// JoinCommunity godoc
// @Summary Join a community with an invite code
// @Tags Communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body JoinCommunityRequest true "Invite code"
// @Success 200 {object} util.Response{data=model.Community}
// @Failure 404 {object} util.Response "Invalid invite code"
// @Failure 409 {object} util.Response "Already a member or community full"
// @Router /communities/join [post]
func (c *CommunityController) JoinCommunity(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req JoinCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	community, err := c.CommunityService.Join(claims.UserID, req.InviteCode)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, community)
}

// LeaveCommunity godoc
// @Summary Leave a community
// @Tags Communities
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "The commissioner cannot leave"
// @Router /communities/{id}/leave [post]
func (c *CommunityController) LeaveCommunity(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.CommunityService.Leave(claims.UserID, id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListMyCommunities godoc
// @Summary Communities the current user belongs to
// @Tags Communities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Community}
// @Router /communities [get]
func (c *CommunityController) ListMyCommunities(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}

	communities, err := c.CommunityService.ListMine(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, communities)
}

// GetCommunity godoc
// @Summary Community detail with members and leaderboard
// @Tags Communities
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} util.Response{data=service.CommunityDetail}
// @Failure 403 {object} util.Response "Not a member"
// @Router /communities/{id} [get]
func (c *CommunityController) GetCommunity(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.CommunityService.Detail(claims.UserID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// Leaderboard godoc
// @Summary Season leaderboard of a community
// @Tags Communities
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /communities/{id}/leaderboard [get]
func (c *CommunityController) Leaderboard(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	entries, err := c.CommunityService.Leaderboard(claims.UserID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// CommissionerDashboard godoc
// @Summary Commissioner overview of a community
// @Tags Commissioner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} util.Response{data=service.CommissionerDashboard}
// @Failure 403 {object} util.Response "Not the commissioner"
// @Router /communities/{id}/manage/dashboard [get]
func (c *CommunityController) CommissionerDashboard(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	dashboard, err := c.CommunityService.Dashboard(claims.UserID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// UpdateSettings godoc
// @Summary Update name, season window and member cap
// @Tags Commissioner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param body body service.CommunitySettings true "Settings"
// @Success 200 {object} util.Response{data=model.Community}
// @Router /communities/{id}/manage/settings [put]
func (c *CommunityController) UpdateSettings(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.CommunitySettings
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	community, err := c.CommunityService.UpdateSettings(claims.UserID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, community)
}

// RemoveMember godoc
// @Summary Remove a member from the community
// @Description Game history of the removed member is kept.
// @Tags Commissioner
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param userId path int true "Member user ID"
// @Success 200 {object} util.Response
// @Router /communities/{id}/manage/members/{userId} [delete]
func (c *CommunityController) RemoveMember(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	if err := c.CommunityService.RemoveMember(claims.UserID, id, memberID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
