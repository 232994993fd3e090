package health

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/healthconsultant/server/internal/logger"
	"github.com/gin-gonic/gin"
)

const (
	serviceName = "healthconsultant"
	version     = "1.0.0"
	pingTimeout = 2 * time.Second
)

// returns the server health status; 503 when the database is unreachable
func Handler(ping PingFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			logger.FromContext(c.Request.Context()).Warn("health check failed", "error", err)

			c.JSON(http.StatusServiceUnavailable, Response{
				Status:   "unhealthy",
				Service:  serviceName,
				Version:  version,
				Database: "unreachable",
			})
			return
		}

		c.JSON(http.StatusOK, Response{
			Status:   "healthy",
			Service:  serviceName,
			Version:  version,
			Database: "ok",
		})
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}
