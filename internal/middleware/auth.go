// Package middleware provides the gin middleware shared by all routes:
// bearer-token authentication and structured request logging.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marup-app/marup-server/internal/auth"
)

// Keys under which the authenticated identity is stored in the gin
// context.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// RequireAuth validates the Authorization bearer token and stores the
// authenticated user's ID and email in the request context. Requests
// without a valid token are rejected with 401.
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be a bearer token"})
			return
		}

		claims, err := jwtManager.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated user's ID from the gin context.
// Empty outside RequireAuth-protected routes.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Email returns the authenticated user's email from the gin context.
func Email(c *gin.Context) string {
	return c.GetString(ContextEmail)
}
