package main

import (
	"context"
	"fmt"

	"codeberg.org/healthconsultant/server/internal/config"
	"codeberg.org/healthconsultant/server/internal/logger"
	"codeberg.org/healthconsultant/server/internal/metrics"
	"codeberg.org/healthconsultant/server/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		db.close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := InitializeServices(cfg, db, redisClient, metrics.New(registry))
	if err != nil {
		closeRedis(redisClient)
		db.close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	server := &Server{
		db:        db,
		config:    cfg,
		redis:     redisClient,
		services:  services,
		scheduler: scheduler.New(services.Ledger, services.Metrics, services.Catalog),
		registry:  registry,
		router:    router,
	}

	if err := RegisterRoutes(router, server); err != nil {
		closeRedis(redisClient)
		db.close()
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return server, nil
}

// returns nil without a url; plan cache and rate limits fall back to memory
func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		logger.Warn("REDIS_URL not set, using in-memory plan cache and rate limits")
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func closeRedis(client *redis.Client) {
	if client != nil {
		client.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}
}
