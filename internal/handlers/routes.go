package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marup-app/marup-server/internal/middleware"
)

// Register mounts all API routes on the router.
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.POST("/payments/webhook", h.stripeWebhook)

	authed := api.Group("", middleware.RequireAuth(h.jwt))
	{
		authed.GET("/me", h.me)
		authed.GET("/users/search", h.searchUsers)
		authed.GET("/users/:code", h.userByCode)

		authed.POST("/groups", h.createGroup)
		authed.GET("/groups", h.listMyGroups)
		authed.GET("/groups/code/:code", h.groupByCode)
		authed.GET("/groups/:id", h.groupDetail)
		authed.DELETE("/groups/:id", h.deleteGroup)

		authed.POST("/groups/:id/join", h.joinGroup)
		authed.POST("/groups/:id/join-requests", h.requestJoin)
		authed.POST("/join-requests/:id/approve", h.approveJoinRequest)
		authed.POST("/join-requests/:id/reject", h.rejectJoinRequest)

		authed.POST("/groups/:id/rounds", h.openRound)
		authed.GET("/rounds/:id", h.roundDetail)
		authed.POST("/rounds/:id/contributions", h.contribute)
		authed.POST("/rounds/:id/resolve", h.resolveRound)

		authed.GET("/notifications", h.listNotifications)
		authed.POST("/notifications/:id/read", h.markNotificationRead)

		authed.GET("/groups/:id/messages", h.listGroupMessages)
		authed.POST("/groups/:id/messages", h.postGroupMessage)
		authed.GET("/messages/:userID", h.listPrivateMessages)
		authed.POST("/messages/:userID", h.postPrivateMessage)

		authed.POST("/groups/:id/checkout", h.createCheckout)
	}
}
