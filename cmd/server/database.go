package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/sqlitedb"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
	"codeberg.org/healthconsultant/server/internal/config"
	"codeberg.org/healthconsultant/server/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// one of pool or sqlite is set, depending on DATABASE_DRIVER
type database struct {
	pool   *pgxpool.Pool
	sqlite *sql.DB
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		db, err := sqlitedb.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		if !cfg.IsProduction() {
			if err := sqlitedb.SeedPlans(ctx, db, sqlitedb.DevelopmentPlans()); err != nil {
				db.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
				return nil, err
			}
		}

		logger.Info("using sqlite database", "path", cfg.SQLitePath)

		return &database{sqlite: db}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.SupabaseConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// keep the pool small for the supabase pooler
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// pgbouncer in transaction mode does not support prepared statements
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &database{pool: pool}, nil
}

func (d *database) ping(ctx context.Context) error {
	if d.pool != nil {
		return d.pool.Ping(ctx)
	}

	return d.sqlite.PingContext(ctx)
}

func (d *database) close() {
	if d.pool != nil {
		d.pool.Close()
		return
	}

	d.sqlite.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
}

func (d *database) usageStore() usage.Store {
	if d.pool != nil {
		return usage.NewPostgresStore(d.pool)
	}

	return usage.NewSQLiteStore(d.sqlite)
}

func (d *database) accounts() accountStore {
	if d.pool != nil {
		return users.NewRepository(d.pool)
	}

	return users.NewSQLiteRepository(d.sqlite)
}

func (d *database) planSource() plans.Source {
	if d.pool != nil {
		return plans.NewRepository(d.pool)
	}

	return plans.NewSQLiteRepository(d.sqlite)
}
