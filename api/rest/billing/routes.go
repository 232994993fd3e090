package billing

import (
	"codeberg.org/healthconsultant/server/internal/billing"
	"github.com/gin-gonic/gin"
)

// unauthenticated; requests are authenticated by signature instead
func RegisterRoutes(router *gin.RouterGroup, verifier *billing.Verifier, svc *billing.Service) {
	router.POST("/billing/webhook", HandleWebhook(verifier, svc))
}
