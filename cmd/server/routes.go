package main

import (
	"time"

	"codeberg.org/healthconsultant/server/api/rest/admin"
	"codeberg.org/healthconsultant/server/api/rest/billing"
	"codeberg.org/healthconsultant/server/api/rest/consult"
	"codeberg.org/healthconsultant/server/api/rest/health"
	"codeberg.org/healthconsultant/server/api/rest/usage"
	"codeberg.org/healthconsultant/server/internal/logger"
	"codeberg.org/healthconsultant/server/internal/metrics"
	"codeberg.org/healthconsultant/server/internal/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) error {
	router.Use(CORSMiddleware(server.config.CORSAllowedOrigins))
	router.Use(logger.Middleware())
	router.Use(server.services.Metrics.GinMiddleware())

	router.GET("/health", health.Handler(server.db.ping))
	router.GET("/metrics", gin.WrapH(metrics.Handler(server.registry)))

	limiterStore, err := ratelimit.NewStore(server.redis)
	if err != nil {
		return err
	}

	recordLimit, err := ratelimit.Middleware(limiterStore, "record", server.config.RecordRateLimit)
	if err != nil {
		return err
	}

	consultLimit, err := ratelimit.Middleware(limiterStore, "consult", server.config.ConsultRateLimit)
	if err != nil {
		return err
	}

	services := server.services
	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)

		usage.RegisterRoutes(v1, services.Tokens, services.Entitlement, services.Ledger, services.Metrics, recordLimit)
		admin.RegisterRoutes(v1, services.Tokens, services.Ledger)
		billing.RegisterRoutes(v1, services.Verifier, services.Billing)

		if services.Consult != nil {
			consult.RegisterRoutes(v1, services.Tokens, services.Consult, consultLimit)
		}
	}

	return nil
}

// allows the dashboard and mobile web clients to call the api
func CORSMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
