package admin

import (
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/auth"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, tokens *auth.Tokens, ledger *usage.Ledger) {
	admin := router.Group("/admin")
	admin.Use(auth.Middleware(tokens), auth.RequireAdmin())

	admin.GET("/usage", GetUsageStats(ledger))
}
