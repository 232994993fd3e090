package sqlitedb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "usage.db")

	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	// reopening applies the schema again without error
	again, err := Open(context.Background(), path)
	require.NoError(t, err)
	again.Close()
}

func TestSeedPlansIsIdempotent(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, Memory)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, SeedPlans(ctx, db, DevelopmentPlans()))
	require.NoError(t, SeedPlans(ctx, db, DevelopmentPlans()))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`).Scan(&count))
	assert.Equal(t, 3, count)

	var unlimited *int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT interactions_limit FROM plans WHERE id = 'plan_unlimited'`).Scan(&unlimited))
	assert.Nil(t, unlimited)
}

func TestUsageRowsAreUniquePerDay(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, Memory)
	require.NoError(t, err)
	defer db.Close()

	insert := `INSERT INTO usage_records (id, user_id, user_email, usage_date, interactions, prompts, created_at, updated_at)
		VALUES (?, 'u1', '', '2026-05-01', 1, 1, '', '')`

	_, err = db.ExecContext(ctx, insert, "a")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "b")
	assert.Error(t, err)
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 20, 10, 30, 0, 123456789, time.FixedZone("CEST", 2*3600))

	parsed, err := ParseTime(FormatTime(at))
	require.NoError(t, err)

	assert.True(t, at.Equal(parsed))
	assert.Equal(t, time.UTC, parsed.Location())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
