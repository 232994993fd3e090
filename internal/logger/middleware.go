package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// logs one structured line per request and carries a request-scoped logger in the context
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Header(headerRequestID, requestID)

		reqLogger := defaultLogger.With("request_id", requestID)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), reqLogger))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		// set by the auth middleware on authenticated routes
		if userID := c.GetString("user_id"); userID != "" {
			args = append(args, "user_id", userID)
		}

		status := c.Writer.Status()

		switch {
		case status >= 500:
			reqLogger.Error("request completed", args...)
		case status >= 400:
			reqLogger.Warn("request completed", args...)
		default:
			reqLogger.Info("request completed", args...)
		}
	}
}
