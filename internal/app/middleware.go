package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"billsplit/internal/auth"
)

// requestLogger logs every completed request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if user := auth.CurrentUser(c); user != nil {
			attrs = append(attrs, "user_id", user.ID)
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			slog.Error("Request completed", attrs...)
		case status >= http.StatusBadRequest:
			slog.Warn("Request completed", attrs...)
		default:
			slog.Debug("Request completed", attrs...)
		}
	}
}

// recovery turns panics into a logged 500.
func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		slog.Error("Panic while serving request", "error", err, "path", c.Request.URL.Path)
		c.String(http.StatusInternalServerError, "Internal server error")
		c.Abort()
	})
}
