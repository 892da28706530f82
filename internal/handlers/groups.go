package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marup-app/marup-server/internal/middleware"
	"github.com/marup-app/marup-server/internal/models"
)

type createGroupRequest struct {
	Name               string  `json:"name" binding:"required"`
	Description        string  `json:"description"`
	ContributionAmount float64 `json:"contribution_amount" binding:"required"`
	MaxMembers         int     `json:"max_members" binding:"required"`
	DurationMonths     int     `json:"duration_months" binding:"required"`
	CadenceDays        int     `json:"cadence_days"`
}

type groupResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	ContributionAmount float64 `json:"contribution_amount"`
	MaxMembers         int     `json:"max_members"`
	DurationMonths     int     `json:"duration_months"`
	CadenceDays        int     `json:"cadence_days"`
	OwnerID            string  `json:"owner_id"`
	Active             bool    `json:"active"`
	GroupCode          string  `json:"group_code"`
	CurrentRoundID     string  `json:"current_round_id,omitempty"`
	CreatedAt          int64   `json:"created_at"`
}

type memberResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	HasWon   bool   `json:"has_won"`
	JoinedAt int64  `json:"joined_at"`
}

type joinRequestResponse struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

func toGroupResponse(g *models.Group) groupResponse {
	return groupResponse{
		ID:                 g.ID,
		Name:               g.Name,
		Description:        g.Description,
		ContributionAmount: g.ContributionAmount,
		MaxMembers:         g.MaxMembers,
		DurationMonths:     g.DurationMonths,
		CadenceDays:        g.CadenceDays,
		OwnerID:            g.OwnerID,
		Active:             g.Active,
		GroupCode:          g.GroupCode,
		CurrentRoundID:     g.CurrentRoundID,
		CreatedAt:          g.CreatedAt,
	}
}

func toMemberResponse(m models.Member) memberResponse {
	return memberResponse{ID: m.ID, UserID: m.UserID, HasWon: m.HasWon, JoinedAt: m.JoinedAt}
}

func toJoinRequestResponse(r *models.JoinRequest) joinRequestResponse {
	return joinRequestResponse{ID: r.ID, GroupID: r.GroupID, UserID: r.UserID, Status: r.Status, CreatedAt: r.CreatedAt}
}

func (h *Handlers) createGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := &models.Group{
		Name:               req.Name,
		Description:        req.Description,
		ContributionAmount: req.ContributionAmount,
		MaxMembers:         req.MaxMembers,
		DurationMonths:     req.DurationMonths,
		CadenceDays:        req.CadenceDays,
		OwnerID:            middleware.UserID(c),
	}
	if err := h.engine.CreateGroup(c.Request.Context(), group); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toGroupResponse(group))
}

func (h *Handlers) listMyGroups(c *gin.Context) {
	groups, err := h.store.ListGroupsForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, toGroupResponse(&groups[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) groupByCode(c *gin.Context) {
	group, err := h.store.GetGroupByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toGroupResponse(group))
}

// groupDetail returns the group together with its members and rounds.
func (h *Handlers) groupDetail(c *gin.Context) {
	ctx := c.Request.Context()
	group, err := h.store.GetGroup(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	members, err := h.store.ListMembers(ctx, group.ID)
	if err != nil {
		fail(c, err)
		return
	}
	rounds, err := h.store.ListRounds(ctx, group.ID)
	if err != nil {
		fail(c, err)
		return
	}

	memberOut := make([]memberResponse, 0, len(members))
	for _, m := range members {
		memberOut = append(memberOut, toMemberResponse(m))
	}
	roundOut := make([]roundResponse, 0, len(rounds))
	for i := range rounds {
		roundOut = append(roundOut, toRoundResponse(&rounds[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"group":   toGroupResponse(group),
		"members": memberOut,
		"rounds":  roundOut,
	})
}

func (h *Handlers) deleteGroup(c *gin.Context) {
	if err := h.engine.DeleteGroup(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) joinGroup(c *gin.Context) {
	member, err := h.engine.Join(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMemberResponse(*member))
}

func (h *Handlers) requestJoin(c *gin.Context) {
	request, err := h.engine.RequestJoin(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toJoinRequestResponse(request))
}

func (h *Handlers) approveJoinRequest(c *gin.Context) {
	member, err := h.engine.ApproveJoinRequest(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(*member))
}

func (h *Handlers) rejectJoinRequest(c *gin.Context) {
	if err := h.engine.RejectJoinRequest(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
