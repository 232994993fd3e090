package consult

import (
	"codeberg.org/healthconsultant/server/internal/auth"
	"codeberg.org/healthconsultant/server/internal/consult"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, tokens *auth.Tokens, svc *consult.Service, limit gin.HandlerFunc) {
	handlers := []gin.HandlerFunc{auth.Middleware(tokens)}
	if limit != nil {
		handlers = append(handlers, limit)
	}

	router.POST("/consultations", append(handlers, Consult(svc))...)
}
