package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every HTTP request with its route, status, user
// ID and duration.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Milliseconds()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path // unmatched route
		}
		status := c.Writer.Status()
		userID := UserID(c) // empty if pre-auth

		switch {
		case status >= 500:
			slog.Error("HTTP error",
				"method", c.Request.Method,
				"route", route,
				"status", status,
				"user_id", userID,
				"duration_ms", duration,
				"errors", c.Errors.String(),
			)
		case status >= 400:
			slog.Warn("HTTP rejected",
				"method", c.Request.Method,
				"route", route,
				"status", status,
				"user_id", userID,
				"duration_ms", duration,
			)
		default:
			slog.Info("HTTP ok",
				"method", c.Request.Method,
				"route", route,
				"status", status,
				"user_id", userID,
				"duration_ms", duration,
			)
		}
	}
}
