package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/sqlitedb"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
	"codeberg.org/healthconsultant/server/internal/auth"
)

type Accounts interface {
	FindByID(ctx context.Context, userID string) (*users.User, error)
	UpdatePlan(ctx context.Context, userID, planID, planTitle string) (*users.User, error)
}

// shared by every command's Run
type Context struct {
	Ledger   *usage.Ledger
	Accounts Accounts
	Catalog  *plans.Catalog
	Tokens   *auth.Tokens
	SQLite   *sql.DB // nil on postgres
	Out      io.Writer
	In       io.Reader
}

type StatsCmd struct {
	Start string `help:"First day (YYYY-MM-DD)."`
	End   string `help:"Last day (YYYY-MM-DD)."`
	JSON  bool   `help:"Print JSON instead of a table."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	stats, _, err := ctx.Ledger.GlobalStats(context.Background(), c.Start, c.End)
	if err != nil {
		return err
	}

	if c.JSON {
		return writeJSON(ctx.Out, stats)
	}

	fmt.Fprintf(ctx.Out, "interactions: %d\nprompts:      %d\nusers:        %d\n",
		stats.TotalInteractions, stats.TotalPrompts, stats.UniqueUsers)

	for _, point := range stats.ChartData {
		fmt.Fprintf(ctx.Out, "%s  %6d  %6d\n", point.Date, point.Interactions, point.Prompts)
	}

	return nil
}

type ShowCmd struct {
	User  string `arg:"" help:"User id."`
	Month string `help:"Month (YYYY-MM), defaults to the current UTC month."`
}

func (c *ShowCmd) Run(ctx *Context) error {
	month := ctx.Ledger.CurrentMonth()
	if c.Month != "" {
		m, err := usage.ParseYearMonth(c.Month)
		if err != nil {
			return err
		}
		month = m
	}

	bg := context.Background()

	agg, err := ctx.Ledger.MonthlyAggregate(bg, c.User, month)
	if err != nil {
		return err
	}

	rows, err := ctx.Ledger.History(bg, c.User, month.Start(), month.Last())
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "%s %s: %d interactions, %d prompts\n", c.User, month, agg.TotalInteractions, agg.TotalPrompts)

	for _, row := range rows {
		fmt.Fprintf(ctx.Out, "%s  %6d  %6d\n", row.Date, row.Interactions, row.Prompts)
	}

	return nil
}

type AdjustCmd struct {
	User         string `arg:"" help:"User id."`
	Date         string `arg:"" help:"Day (YYYY-MM-DD)."`
	Interactions int    `help:"New interaction count." required:""`
	Prompts      int    `help:"New prompt count." required:""`
}

func (c *AdjustCmd) Run(ctx *Context) error {
	rec, err := ctx.Ledger.Raise(context.Background(), c.User, c.Date, c.Interactions, c.Prompts)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "%s %s: %d interactions, %d prompts\n", rec.UserID, rec.Date, rec.Interactions, rec.Prompts)

	return nil
}

type ImportCmd struct {
	File string `arg:"" help:"JSON lines file, or - for stdin."`
}

// one line of an import file
type importRow struct {
	UserID       string `json:"userId"`
	UserEmail    string `json:"userEmail"`
	Date         string `json:"date"`
	Interactions int    `json:"interactions"`
	Prompts      int    `json:"prompts"`
}

func (c *ImportCmd) Run(ctx *Context) error {
	in := ctx.In
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close() //nolint:errcheck // read-only

		in = f
	}

	var imported, skipped int

	scanner := bufio.NewScanner(in)
	line := 0

	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var row importRow
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		_, err := ctx.Ledger.Import(context.Background(), usage.NewRecord{
			UserID:       row.UserID,
			UserEmail:    row.UserEmail,
			Date:         row.Date,
			Interactions: row.Interactions,
			Prompts:      row.Prompts,
		})
		if errors.Is(err, usage.ErrDuplicateRecord) {
			skipped++
			continue
		}

		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		imported++
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "imported %d rows, skipped %d existing\n", imported, skipped)

	return nil
}

type TokenCmd struct {
	User  string `arg:"" help:"User id."`
	Email string `help:"Email claim."`
	Admin bool   `help:"Grant the admin claim."`
}

func (c *TokenCmd) Run(ctx *Context) error {
	if ctx.Tokens == nil {
		return fmt.Errorf("--jwt-secret or JWT_SECRET is required")
	}

	token, err := ctx.Tokens.Generate(c.User, c.Email, c.Admin)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.Out, token)

	return nil
}

type SetPlanCmd struct {
	User string `arg:"" help:"User id."`
	Plan string `arg:"" help:"Plan title, matched case-insensitively."`
}

func (c *SetPlanCmd) Run(ctx *Context) error {
	bg := context.Background()

	plan, err := ctx.Catalog.FindByTitle(bg, c.Plan)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Plan, err)
	}

	user, err := ctx.Accounts.UpdatePlan(bg, c.User, plan.ID, plan.Title)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "%s is now on %s\n", user.ID, user.Plan)

	return nil
}

type SeedCmd struct{}

func (c *SeedCmd) Run(ctx *Context) error {
	if ctx.SQLite == nil {
		return fmt.Errorf("seed only supports the sqlite driver; use migrations for postgres")
	}

	seeds := sqlitedb.DevelopmentPlans()
	if err := sqlitedb.SeedPlans(context.Background(), ctx.SQLite, seeds); err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "seeded %d plans\n", len(seeds))

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
