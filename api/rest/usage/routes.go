package usage

import (
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/auth"
	"codeberg.org/healthconsultant/server/internal/entitlement"
	"github.com/gin-gonic/gin"
)

// recordLimit throttles the unchecked record endpoint; nil disables it
func RegisterRoutes(
	router *gin.RouterGroup,
	tokens *auth.Tokens,
	svc *entitlement.Service,
	ledger *usage.Ledger,
	failures FailureObserver,
	recordLimit gin.HandlerFunc,
) {
	group := router.Group("/usage")
	group.Use(auth.Middleware(tokens))

	group.GET("/interaction-limit", GetInteractionLimit(svc))
	group.POST("/interaction-limit", CheckInteraction(svc))

	record := []gin.HandlerFunc{}
	if recordLimit != nil {
		record = append(record, recordLimit)
	}

	group.POST("/record", append(record, RecordUsage(ledger, failures))...)
}
