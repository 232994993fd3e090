package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/sqlitedb"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
	"codeberg.org/healthconsultant/server/internal/auth"
	"codeberg.org/healthconsultant/server/internal/config"
	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var CLI struct {
	Version kong.VersionFlag

	Driver      string `help:"Storage backend (postgres or sqlite)." env:"DATABASE_DRIVER" enum:"postgres,sqlite" default:"sqlite"`
	DatabaseURL string `help:"Postgres connection string." env:"SUPABASE_CONNECTION_STRING"`
	SQLitePath  string `help:"SQLite database file." env:"SQLITE_PATH" default:"data/healthconsultant.db"`
	JWTSecret   string `help:"Secret used to mint tokens." env:"JWT_SECRET"`

	Stats   StatsCmd   `cmd:"" help:"Show global usage totals over a date range."`
	Show    ShowCmd    `cmd:"" help:"Show one user's usage for a month."`
	Adjust  AdjustCmd  `cmd:"" help:"Raise the counters of an existing day row."`
	Import  ImportCmd  `cmd:"" help:"Backfill historical rows from JSON lines."`
	Token   TokenCmd   `cmd:"" help:"Mint a bearer token for local testing."`
	SetPlan SetPlanCmd `cmd:"" name:"set-plan" help:"Move a user to a catalog plan."`
	Seed    SeedCmd    `cmd:"" help:"Seed development plans (sqlite only)."`
}

func main() {
	_ = godotenv.Load() // .env is optional

	kctx := kong.Parse(&CLI,
		kong.Name("usagectl"),
		kong.Description("Operator tooling for the HealthConsultant usage ledger"),
		kong.UsageOnError(),
		kong.Vars{"version": "v1.0.0"},
	)

	ctx := context.Background()

	appCtx, closeFn, err := open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = kctx.Run(appCtx)
	closeFn()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func open(ctx context.Context) (*Context, func(), error) {
	var tokens *auth.Tokens
	if CLI.JWTSecret != "" {
		t, err := auth.NewTokens(CLI.JWTSecret, 0)
		if err != nil {
			return nil, nil, err
		}
		tokens = t
	}

	if CLI.Driver == config.DriverPostgres {
		if CLI.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("--database-url or SUPABASE_CONNECTION_STRING is required for postgres")
		}

		pool, err := pgxpool.New(ctx, CLI.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}

		appCtx := &Context{
			Ledger:   usage.NewLedger(usage.NewPostgresStore(pool)),
			Accounts: users.NewRepository(pool),
			Catalog:  plans.NewCatalog(plans.NewRepository(pool), nil, 0),
			Tokens:   tokens,
			Out:      os.Stdout,
			In:       os.Stdin,
		}

		return appCtx, pool.Close, nil
	}

	db, err := sqlitedb.Open(ctx, CLI.SQLitePath)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		db.Close() //nolint:errcheck,gosec // best-effort cleanup
	}

	return newSQLiteContext(db, tokens), closeFn, nil
}

func newSQLiteContext(db *sql.DB, tokens *auth.Tokens) *Context {
	return &Context{
		Ledger:   usage.NewLedger(usage.NewSQLiteStore(db)),
		Accounts: users.NewSQLiteRepository(db),
		Catalog:  plans.NewCatalog(plans.NewSQLiteRepository(db), nil, 0),
		Tokens:   tokens,
		SQLite:   db,
		Out:      os.Stdout,
		In:       os.Stdin,
	}
}
