// Package sqlitedb opens the single-file database used for local development,
// the operator CLI and tests. Production runs on Postgres.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// in-memory database path; every Open gets its own isolated database
const Memory = ":memory:"

// layout for timestamps stored as TEXT
const TimeLayout = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL UNIQUE,
	interactions_limit INTEGER,
	stripe_price_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	plan TEXT NOT NULL DEFAULT '',
	plan_id TEXT,
	is_admin INTEGER NOT NULL DEFAULT 0,
	stripe_customer_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_stripe_customer ON users(stripe_customer_id);

CREATE TABLE IF NOT EXISTS usage_records (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	user_email TEXT NOT NULL,
	usage_date TEXT NOT NULL,
	interactions INTEGER NOT NULL DEFAULT 0 CHECK (interactions >= 0),
	prompts INTEGER NOT NULL DEFAULT 0 CHECK (prompts >= 0),
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (user_id, usage_date)
);

CREATE INDEX IF NOT EXISTS idx_usage_records_date ON usage_records(usage_date);
`

// opens (creating if needed) the database at path and applies the schema
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection: serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

// formats t for storage
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// parses a stored timestamp
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}

	return t, nil
}

// development catalog: a capped free plan, a larger paid plan and an unlimited plan
type SeedPlan struct {
	ID                string
	Title             string
	InteractionsLimit *int
	StripePriceID     string
}

func DevelopmentPlans() []SeedPlan {
	free, plus := 20, 300

	return []SeedPlan{
		{ID: "plan_free", Title: "Free", InteractionsLimit: &free},
		{ID: "plan_plus", Title: "Plus", InteractionsLimit: &plus, StripePriceID: "price_plus_monthly"},
		{ID: "plan_unlimited", Title: "Unlimited", StripePriceID: "price_unlimited_monthly"},
	}
}

// inserts plans that are not present yet
func SeedPlans(ctx context.Context, db *sql.DB, seeds []SeedPlan) error {
	now := FormatTime(time.Now())

	for _, p := range seeds {
		var limit any
		if p.InteractionsLimit != nil {
			limit = *p.InteractionsLimit
		}

		_, err := db.ExecContext(
			ctx,
			`INSERT INTO plans (id, title, interactions_limit, stripe_price_id, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			p.ID, p.Title, limit, p.StripePriceID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", p.Title, err)
		}
	}

	return nil
}
