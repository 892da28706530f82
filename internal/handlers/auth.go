package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marup-app/marup-server/internal/middleware"
	"github.com/marup-app/marup-server/internal/models"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

func (h *Handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authenticator.Register(c.Request.Context(), req.Email, req.FullName, req.Phone, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := h.jwt.Generate(user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Token: token, User: user.Profile()})
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authenticator.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := h.jwt.Generate(user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: token, User: user.Profile()})
}

func (h *Handlers) me(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

func (h *Handlers) searchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	users, err := h.store.SearchUsers(c.Request.Context(), query, 20)
	if err != nil {
		fail(c, err)
		return
	}
	profiles := make([]models.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	c.JSON(http.StatusOK, profiles)
}

func (h *Handlers) userByCode(c *gin.Context) {
	user, err := h.store.GetUserByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}
