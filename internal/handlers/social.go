package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marup-app/marup-server/internal/engine"
	"github.com/marup-app/marup-server/internal/middleware"
	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

type notificationResponse struct {
	ID        string                     `json:"id"`
	Kind      models.NotificationKind    `json:"kind"`
	Title     string                     `json:"title"`
	Content   string                     `json:"content"`
	Read      bool                       `json:"read"`
	Payload   models.NotificationPayload `json:"payload"`
	CreatedAt int64                      `json:"created_at"`
}

type messageRequest struct {
	Content string `json:"content" binding:"required"`
}

type messageResponse struct {
	ID          string `json:"id"`
	SenderID    string `json:"sender_id"`
	Type        string `json:"type"`
	GroupID     string `json:"group_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"created_at"`
}

func toMessageResponse(m models.Message) messageResponse {
	return messageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		Type:        m.Type,
		GroupID:     m.GroupID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func limitParam(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", ""))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func (h *Handlers) listNotifications(c *gin.Context) {
	notifications, err := h.store.ListNotifications(c.Request.Context(), middleware.UserID(c), limitParam(c, 50))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			Title:     n.Title,
			Content:   n.Content,
			Read:      n.Read,
			Payload:   n.Payload,
			CreatedAt: n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) markNotificationRead(c *gin.Context) {
	err := h.store.MarkNotificationRead(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// postGroupMessage posts into the group chat; only members may post.
func (h *Handlers) postGroupMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	groupID, userID := c.Param("id"), middleware.UserID(c)

	if _, err := h.store.GetMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, engine.ErrNotAMember)
			return
		}
		fail(c, err)
		return
	}

	message := &models.Message{
		SenderID: userID,
		Type:     models.MessageGroup,
		GroupID:  groupID,
		Content:  req.Content,
	}
	if err := h.store.InsertMessage(ctx, message); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageResponse(*message))
}

func (h *Handlers) listGroupMessages(c *gin.Context) {
	ctx := c.Request.Context()
	groupID, userID := c.Param("id"), middleware.UserID(c)

	if _, err := h.store.GetMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, engine.ErrNotAMember)
			return
		}
		fail(c, err)
		return
	}

	messages, err := h.store.ListGroupMessages(ctx, groupID, limitParam(c, 100))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) postPrivateMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	recipient, err := h.store.GetUserByID(ctx, c.Param("userID"))
	if err != nil {
		fail(c, err)
		return
	}

	message := &models.Message{
		SenderID:    middleware.UserID(c),
		Type:        models.MessagePrivate,
		RecipientID: recipient.ID,
		Content:     req.Content,
	}
	if err := h.store.InsertMessage(ctx, message); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageResponse(*message))
}

func (h *Handlers) listPrivateMessages(c *gin.Context) {
	messages, err := h.store.ListPrivateMessages(c.Request.Context(), middleware.UserID(c), c.Param("userID"), limitParam(c, 100))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	c.JSON(http.StatusOK, out)
}
