package main

import (
	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/auth"
	"codeberg.org/healthconsultant/server/internal/billing"
	"codeberg.org/healthconsultant/server/internal/config"
	"codeberg.org/healthconsultant/server/internal/consult"
	"codeberg.org/healthconsultant/server/internal/entitlement"
	"codeberg.org/healthconsultant/server/internal/metrics"
	"codeberg.org/healthconsultant/server/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// holds all dependencies and state for the API server
type Server struct {
	db        *database
	config    *config.Config
	redis     *redis.Client
	services  *Services
	scheduler *scheduler.Scheduler
	registry  *prometheus.Registry
	router    *gin.Engine
}

// holds the domain services the routes are built from
type Services struct {
	Ledger      *usage.Ledger
	Catalog     *plans.Catalog
	Entitlement *entitlement.Service
	Billing     *billing.Service
	Verifier    *billing.Verifier
	Tokens      *auth.Tokens
	Metrics     *metrics.Metrics

	// nil when no generator API key is configured
	Consult *consult.Service
}

// account lookups shared by entitlement and billing
type accountStore interface {
	entitlement.Accounts
	billing.Accounts
}
