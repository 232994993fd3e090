package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"codeberg.org/healthconsultant/server/healthconsultant/sqlitedb"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
	"codeberg.org/healthconsultant/server/internal/auth"
	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, input string) (*Context, *bytes.Buffer) {
	t.Helper()

	db, err := sqlitedb.Open(context.Background(), sqlitedb.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokens("cli-secret", time.Hour)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	ctx := newSQLiteContext(db, tokens)
	ctx.Out = out
	ctx.In = strings.NewReader(input)

	return ctx, out
}

const importFile = `{"userId":"u1","userEmail":"u1@example.com","date":"2026-03-01","interactions":4,"prompts":5}
{"userId":"u1","userEmail":"u1@example.com","date":"2026-03-02","interactions":1,"prompts":1}

{"userId":"u2","userEmail":"u2@example.com","date":"2026-03-02","interactions":2,"prompts":2}
{"userId":"u1","userEmail":"u1@example.com","date":"2026-03-01","interactions":9,"prompts":9}
`

func TestImportSkipsDuplicates(t *testing.T) {
	ctx, out := newTestContext(t, importFile)

	require.NoError(t, (&ImportCmd{File: "-"}).Run(ctx))
	assert.Equal(t, "imported 3 rows, skipped 1 existing\n", out.String())

	agg, err := ctx.Ledger.MonthlyAggregate(context.Background(), "u1", usage.YearMonth{Year: 2026, Month: time.March})
	require.NoError(t, err)
	assert.Equal(t, 5, agg.TotalInteractions)
	assert.Equal(t, 6, agg.TotalPrompts)
}

func TestImportRejectsBadLine(t *testing.T) {
	ctx, _ := newTestContext(t, `{"userId":"u1","date":"03/01/2026","interactions":1,"prompts":1}`)

	err := (&ImportCmd{File: "-"}).Run(ctx)
	assert.ErrorIs(t, err, usage.ErrInvalidDate)
	assert.Contains(t, err.Error(), "line 1")
}

func TestStatsAndShow(t *testing.T) {
	ctx, out := newTestContext(t, importFile)
	require.NoError(t, (&ImportCmd{File: "-"}).Run(ctx))
	out.Reset()

	require.NoError(t, (&StatsCmd{Start: "2026-03-01", End: "2026-03-31"}).Run(ctx))
	assert.Contains(t, out.String(), "interactions: 7")
	assert.Contains(t, out.String(), "users:        2")
	out.Reset()

	require.NoError(t, (&StatsCmd{JSON: true}).Run(ctx))
	assert.Contains(t, out.String(), `"totalPrompts": 8`)
	out.Reset()

	require.NoError(t, (&ShowCmd{User: "u1", Month: "2026-03"}).Run(ctx))
	assert.Contains(t, out.String(), "u1 2026-03: 5 interactions, 6 prompts")
	assert.Contains(t, out.String(), "2026-03-02")

	assert.Error(t, (&StatsCmd{Start: "2026-04-01", End: "2026-03-01"}).Run(ctx))
}

func TestAdjustOnlyRaises(t *testing.T) {
	ctx, out := newTestContext(t, importFile)
	require.NoError(t, (&ImportCmd{File: "-"}).Run(ctx))
	out.Reset()

	require.NoError(t, (&AdjustCmd{User: "u1", Date: "2026-03-01", Interactions: 6, Prompts: 7}).Run(ctx))
	assert.Equal(t, "u1 2026-03-01: 6 interactions, 7 prompts\n", out.String())

	err := (&AdjustCmd{User: "u1", Date: "2026-03-01", Interactions: 2, Prompts: 7}).Run(ctx)
	assert.ErrorIs(t, err, usage.ErrCounterDecrease)

	err = (&AdjustCmd{User: "u1", Date: "2026-03-09", Interactions: 2, Prompts: 2}).Run(ctx)
	assert.ErrorIs(t, err, usage.ErrRecordNotFound)
}

func TestSeedSetPlanAndToken(t *testing.T) {
	ctx, out := newTestContext(t, "")

	require.NoError(t, (&SeedCmd{}).Run(ctx))
	assert.Equal(t, "seeded 3 plans\n", out.String())
	out.Reset()

	_, err := users.NewSQLiteRepository(ctx.SQLite).Create(context.Background(), users.NewUser{
		ID: "u1", Email: "u1@example.com", Plan: "Free",
	})
	require.NoError(t, err)

	require.NoError(t, (&SetPlanCmd{User: "u1", Plan: "plus"}).Run(ctx))
	assert.Equal(t, "u1 is now on Plus\n", out.String())
	out.Reset()

	assert.Error(t, (&SetPlanCmd{User: "u1", Plan: "Platinum"}).Run(ctx))

	require.NoError(t, (&TokenCmd{User: "u1", Email: "u1@example.com", Admin: true}).Run(ctx))

	claims, err := ctx.Tokens.Validate(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestTokenRequiresSecret(t *testing.T) {
	ctx, _ := newTestContext(t, "")
	ctx.Tokens = nil

	assert.Error(t, (&TokenCmd{User: "u1"}).Run(ctx))
}

func TestCommandLineParses(t *testing.T) {
	parser, err := kong.New(&CLI, kong.Vars{"version": "test"})
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"--driver", "sqlite", "adjust", "u1", "2026-03-01", "--interactions", "3", "--prompts", "4"})
	require.NoError(t, err)

	assert.Equal(t, "adjust <user> <date>", kctx.Command())
	assert.Equal(t, 3, CLI.Adjust.Interactions)
	assert.Equal(t, "2026-03-01", CLI.Adjust.Date)
}
