package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marup-app/marup-server/internal/engine"
	"github.com/marup-app/marup-server/internal/middleware"
	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

type roundResponse struct {
	ID           string  `json:"id"`
	GroupID      string  `json:"group_id"`
	RoundNumber  int     `json:"round_number"`
	StartedAt    int64   `json:"started_at"`
	DueDate      int64   `json:"due_date"`
	Completed    bool    `json:"completed"`
	TotalAmount  float64 `json:"total_amount"`
	WinnerUserID string  `json:"winner_user_id,omitempty"`
}

type contributionResponse struct {
	ID            string  `json:"id"`
	RoundID       string  `json:"round_id"`
	UserID        string  `json:"user_id"`
	Amount        float64 `json:"amount"`
	ContributedAt int64   `json:"contributed_at"`
}

type payoutResponse struct {
	ID      string  `json:"id"`
	RoundID string  `json:"round_id"`
	UserID  string  `json:"user_id"`
	Amount  float64 `json:"amount"`
	PaidAt  int64   `json:"paid_at"`
}

type contributeRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func toRoundResponse(r *models.Round) roundResponse {
	return roundResponse{
		ID:           r.ID,
		GroupID:      r.GroupID,
		RoundNumber:  r.RoundNumber,
		StartedAt:    r.StartedAt,
		DueDate:      r.DueDate,
		Completed:    r.Completed,
		TotalAmount:  r.TotalAmount,
		WinnerUserID: r.WinnerUserID,
	}
}

func toPayoutResponse(p *models.Payout) payoutResponse {
	return payoutResponse{ID: p.ID, RoundID: p.RoundID, UserID: p.UserID, Amount: p.Amount, PaidAt: p.PaidAt}
}

func (h *Handlers) openRound(c *gin.Context) {
	ctx := c.Request.Context()
	group, err := h.store.GetGroup(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if group.OwnerID != middleware.UserID(c) {
		fail(c, engine.ErrNotOwner)
		return
	}

	round, err := h.engine.OpenRound(ctx, group.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRoundResponse(round))
}

// roundDetail returns the round with its contributions and, once
// resolved, its payout.
func (h *Handlers) roundDetail(c *gin.Context) {
	ctx := c.Request.Context()
	round, err := h.store.GetRound(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	contributions, err := h.store.ListContributions(ctx, round.ID)
	if err != nil {
		fail(c, err)
		return
	}

	out := gin.H{
		"round": toRoundResponse(round),
	}
	contribOut := make([]contributionResponse, 0, len(contributions))
	for _, cc := range contributions {
		contribOut = append(contribOut, contributionResponse{
			ID:            cc.ID,
			RoundID:       cc.RoundID,
			UserID:        cc.UserID,
			Amount:        cc.Amount,
			ContributedAt: cc.ContributedAt,
		})
	}
	out["contributions"] = contribOut

	if round.Completed {
		payout, err := h.store.GetPayoutByRound(ctx, round.ID)
		if err == nil {
			out["payout"] = toPayoutResponse(payout)
		} else if !isNotFound(err) {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) contribute(c *gin.Context) {
	var req contributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contribution, err := h.engine.RecordContribution(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, contributionResponse{
		ID:            contribution.ID,
		RoundID:       contribution.RoundID,
		UserID:        contribution.UserID,
		Amount:        contribution.Amount,
		ContributedAt: contribution.ContributedAt,
	})
}

// resolveRound draws the winner. Only the group owner may trigger it
// by hand; the scheduler resolves due rounds on its own.
func (h *Handlers) resolveRound(c *gin.Context) {
	ctx := c.Request.Context()
	round, err := h.store.GetRound(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	group, err := h.store.GetGroup(ctx, round.GroupID)
	if err != nil {
		fail(c, err)
		return
	}
	if group.OwnerID != middleware.UserID(c) {
		fail(c, engine.ErrNotOwner)
		return
	}

	res, err := h.engine.ResolveRound(ctx, round.ID)
	if err != nil {
		fail(c, err)
		return
	}
	out := gin.H{
		"round":        toRoundResponse(res.Round),
		"winner":       toMemberResponse(res.Winner),
		"payout":       toPayoutResponse(res.Payout),
		"group_closed": res.GroupClosed,
	}
	if res.NextRound != nil {
		out["next_round"] = toRoundResponse(res.NextRound)
	}
	c.JSON(http.StatusOK, out)
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
