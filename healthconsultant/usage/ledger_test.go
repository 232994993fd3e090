package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/healthconsultant/server/healthconsultant/sqlitedb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestLedger(t *testing.T, start time.Time) (*Ledger, *fakeClock) {
	t.Helper()

	db, err := sqlitedb.Open(context.Background(), sqlitedb.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: start}
	store := NewSQLiteStore(db)
	store.now = clock.Now

	return NewLedger(store, WithClock(clock.Now)), clock
}

var (
	u1 = Identity{UserID: "user-1", Email: "u1@example.com"}
	u2 = Identity{UserID: "user-2", Email: "u2@example.com"}
)

func TestRecordAccumulatesWithinDay(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	prompts := []int{1, 3, 2, 1, 5}
	for _, p := range prompts {
		_, err := ledger.Record(ctx, u1, p)
		require.NoError(t, err)
	}

	rec, err := ledger.TodayRecord(ctx, u1.UserID)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, len(prompts), rec.Interactions)
	assert.Equal(t, 12, rec.Prompts)
	assert.Equal(t, "2026-03-10", rec.Date)
	assert.Equal(t, u1.Email, rec.UserEmail)
}

func TestRecordPromptOrderIndependent(t *testing.T) {
	ctx := context.Background()
	orders := [][]int{{1, 2, 7}, {7, 2, 1}, {2, 7, 1}}

	for _, order := range orders {
		ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

		for _, p := range order {
			_, err := ledger.Record(ctx, u1, p)
			require.NoError(t, err)
		}

		rec, err := ledger.TodayRecord(ctx, u1.UserID)
		require.NoError(t, err)
		assert.Equal(t, 10, rec.Prompts)
		assert.Equal(t, 3, rec.Interactions)
	}
}

func TestRecordSeparateDaysSeparateRows(t *testing.T) {
	ledger, clock := newTestLedger(t, time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := ledger.Record(ctx, u1, 1)
	require.NoError(t, err)

	clock.Set(time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC))

	_, err = ledger.Record(ctx, u1, 2)
	require.NoError(t, err)

	rows, err := ledger.History(ctx, u1.UserID, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2026-03-10", rows[0].Date)
	assert.Equal(t, 1, rows[0].Interactions)
	assert.Equal(t, "2026-03-11", rows[1].Date)
	assert.Equal(t, 1, rows[1].Interactions)
	assert.Equal(t, 2, rows[1].Prompts)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestRecordUsesUTCDay(t *testing.T) {
	// 01:30 in UTC+3 is still the previous day in UTC
	zone := time.FixedZone("UTC+3", 3*60*60)
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 11, 1, 30, 0, 0, zone))

	rec, err := ledger.Record(context.Background(), u1, 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", rec.Date)
}

func TestRecordValidation(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	tests := []struct {
		name     string
		identity Identity
		prompts  int
		want     error
	}{
		{"empty identity", Identity{}, 1, ErrInvalidIdentity},
		{"blank identity", Identity{UserID: "  "}, 1, ErrInvalidIdentity},
		{"zero prompts", u1, 0, ErrInvalidPromptUnits},
		{"negative prompts", u1, -2, ErrInvalidPromptUnits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Record(context.Background(), tt.identity, tt.prompts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecordConcurrentNoLostUpdates(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	const n = 40

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Record(ctx, u1, 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := ledger.TodayRecord(ctx, u1.UserID)
	require.NoError(t, err)
	assert.Equal(t, n, rec.Interactions)
	assert.Equal(t, 2*n, rec.Prompts)
}

func TestMonthlyAggregate(t *testing.T) {
	ledger, clock := newTestLedger(t, time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := ledger.Record(ctx, u1, 4)
	require.NoError(t, err)

	clock.Set(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	_, err = ledger.Record(ctx, u1, 1)
	require.NoError(t, err)

	clock.Set(time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC))
	_, err = ledger.Record(ctx, u1, 2)
	require.NoError(t, err)
	_, err = ledger.Record(ctx, u2, 9)
	require.NoError(t, err)

	march, err := ledger.MonthlyAggregate(ctx, u1.UserID, YearMonth{Year: 2026, Month: time.March})
	require.NoError(t, err)
	assert.Equal(t, Aggregate{TotalInteractions: 2, TotalPrompts: 3}, march)

	feb, err := ledger.MonthlyAggregate(ctx, u1.UserID, YearMonth{Year: 2026, Month: time.February})
	require.NoError(t, err)
	assert.Equal(t, Aggregate{TotalInteractions: 1, TotalPrompts: 4}, feb)
}

func TestMonthlyAggregateEmptyMonth(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	agg, err := ledger.MonthlyAggregate(context.Background(), "nobody", YearMonth{Year: 2025, Month: time.December})
	require.NoError(t, err)
	assert.Equal(t, Aggregate{}, agg)
}

func TestRecordIfBelowStopsAtLimit(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		adm, err := ledger.RecordIfBelow(ctx, u1, 1, 3)
		require.NoError(t, err)
		assert.True(t, adm.Admitted)
		assert.Equal(t, i, adm.Used)
		require.NotNil(t, adm.Record)
	}

	adm, err := ledger.RecordIfBelow(ctx, u1, 1, 3)
	require.NoError(t, err)
	assert.False(t, adm.Admitted)
	assert.Equal(t, 3, adm.Used)
	assert.Nil(t, adm.Record)

	rec, err := ledger.TodayRecord(ctx, u1.UserID)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Interactions)
}

func TestRecordIfBelowConcurrentNeverOvershoots(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	const (
		callers = 25
		limit   = 7
	)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adm, err := ledger.RecordIfBelow(ctx, u1, 1, limit)
			if !assert.NoError(t, err) {
				return
			}
			if adm.Admitted {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, admitted)

	agg, err := ledger.MonthlyAggregate(ctx, u1.UserID, ledger.CurrentMonth())
	require.NoError(t, err)
	assert.Equal(t, limit, agg.TotalInteractions)
}

func TestRecordIfBelowCountsWholeMonth(t *testing.T) {
	ledger, clock := newTestLedger(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := ledger.Record(ctx, u1, 1)
	require.NoError(t, err)

	clock.Set(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	adm, err := ledger.RecordIfBelow(ctx, u1, 1, 2)
	require.NoError(t, err)
	assert.True(t, adm.Admitted)
	assert.Equal(t, 2, adm.Used)

	adm, err = ledger.RecordIfBelow(ctx, u1, 1, 2)
	require.NoError(t, err)
	assert.False(t, adm.Admitted)

	// a new month starts from zero
	clock.Set(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	adm, err = ledger.RecordIfBelow(ctx, u1, 1, 2)
	require.NoError(t, err)
	assert.True(t, adm.Admitted)
	assert.Equal(t, 1, adm.Used)
}

// returns each time in turn, then keeps returning the last one
type steppingClock struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}

	return now
}

func TestRecordIfBelowAcrossMonthBoundary(t *testing.T) {
	ctx := context.Background()

	db, err := sqlitedb.Open(ctx, sqlitedb.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &steppingClock{times: []time.Time{
		time.Date(2026, 3, 31, 23, 59, 59, 999_000_000, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}}
	ledger := NewLedger(NewSQLiteStore(db), WithClock(clock.Now))

	_, err = ledger.Import(ctx, NewRecord{UserID: u1.UserID, Date: "2026-03-10", Interactions: 2})
	require.NoError(t, err)

	// the first clock read still says March, where the limit is already used
	adm, err := ledger.RecordIfBelow(ctx, u1, 1, 2)
	require.NoError(t, err)
	assert.False(t, adm.Admitted)
	assert.Equal(t, 2, adm.Used)
	assert.Equal(t, YearMonth{2026, time.March}, adm.Month)

	march, err := ledger.MonthlyAggregate(ctx, u1.UserID, YearMonth{2026, time.March})
	require.NoError(t, err)
	assert.Equal(t, 2, march.TotalInteractions)

	// later calls see April and start from zero
	adm, err = ledger.RecordIfBelow(ctx, u1, 1, 2)
	require.NoError(t, err)
	assert.True(t, adm.Admitted)
	assert.Equal(t, 1, adm.Used)
	assert.Equal(t, "2026-04-01", adm.Record.Date)
}

func TestGlobalStats(t *testing.T) {
	ledger, clock := newTestLedger(t, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := ledger.Record(ctx, u1, 1) // outside range
	require.NoError(t, err)

	clock.Set(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	_, err = ledger.Record(ctx, u1, 2)
	require.NoError(t, err)
	_, err = ledger.Record(ctx, u2, 3)
	require.NoError(t, err)

	clock.Set(time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC))
	_, err = ledger.Record(ctx, u2, 1)
	require.NoError(t, err)
	_, err = ledger.Record(ctx, u2, 1)
	require.NoError(t, err)

	stats, rows, err := ledger.GlobalStats(ctx, "2026-03-10", "2026-03-12")
	require.NoError(t, err)

	assert.Len(t, rows, 3)
	assert.Equal(t, 2, stats.UniqueUsers)
	assert.Equal(t, 4, stats.TotalInteractions)
	assert.Equal(t, 7, stats.TotalPrompts)
	assert.Equal(t, []DailyPoint{
		{Date: "2026-03-10", Interactions: 2, Prompts: 5},
		{Date: "2026-03-12", Interactions: 2, Prompts: 2},
	}, stats.ChartData)

	all, _, err := ledger.GlobalStats(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 5, all.TotalInteractions)
}

func TestGlobalStatsEmpty(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	stats, rows, err := ledger.GlobalStats(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, stats.UniqueUsers)
	assert.NotNil(t, stats.ChartData)
}

func TestGlobalStatsRangeValidation(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, _, err := ledger.GlobalStats(ctx, "2026-03-12", "2026-03-10")
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, _, err = ledger.GlobalStats(ctx, "03/10/2026", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestImportAndRaise(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	rec, err := ledger.Import(ctx, NewRecord{
		UserID:       u1.UserID,
		UserEmail:    u1.Email,
		Date:         "2026-01-05",
		Interactions: 4,
		Prompts:      6,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Interactions)

	_, err = ledger.Import(ctx, NewRecord{UserID: u1.UserID, Date: "2026-01-05", Interactions: 1})
	assert.ErrorIs(t, err, ErrDuplicateRecord)

	_, err = ledger.Raise(ctx, u1.UserID, "2026-01-05", 3, 6)
	assert.ErrorIs(t, err, ErrCounterDecrease)

	raised, err := ledger.Raise(ctx, u1.UserID, "2026-01-05", 5, 9)
	require.NoError(t, err)
	assert.Equal(t, 5, raised.Interactions)
	assert.Equal(t, 9, raised.Prompts)

	_, err = ledger.Raise(ctx, u1.UserID, "2026-01-06", 1, 1)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTodayRecordMissing(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	rec, err := ledger.TodayRecord(context.Background(), u1.UserID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
