package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/healthconsultant/server/internal/config"
	apierrors "codeberg.org/healthconsultant/server/internal/errors"
	"codeberg.org/healthconsultant/server/internal/logger"
)

// @title HealthConsultant API
// @version 1.0
// @description Usage metering and plan entitlements for the HealthConsultant assistant
// @description
// @description Features:
// @description - Monthly interaction allowances per subscription plan
// @description - Daily usage ledger with admin statistics
// @description - AI health consultations gated by plan
// @description - Stripe subscription webhooks

// @contact.name API Support
// @contact.url https://codeberg.org/healthconsultant/server

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authenticated requests. Format: Bearer {token}

func main() {
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	logger.Configure(cfg.Environment, cfg.LogLevel)
	apierrors.SetProduction(cfg.IsProduction())
	logger.Info("starting healthconsultant server", "environment", cfg.Environment, "driver", cfg.DatabaseDriver)

	srv, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // consultations wait on the model
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	if err := srv.scheduler.Start(); err != nil {
		logger.ErrorErr(err, "failed to start scheduler, continuing without scheduled jobs")
	}

	// wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	srv.scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	closeRedis(srv.redis)
	srv.db.close()

	logger.Info("server stopped")
}
