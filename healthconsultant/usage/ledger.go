package usage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// accumulates per-day interaction and prompt counters per identity
type Ledger struct {
	store Store
	now   func() time.Time
}

type Option func(*Ledger)

// overrides the wall clock; the ledger always converts to UTC
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// creates a new usage ledger on top of store
func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// result of an admission-gated increment
type Admission struct {
	Admitted bool
	Used     int
	Record   *Record
	// the month Used was summed over
	Month YearMonth
}

// current UTC calendar day
func (l *Ledger) Today() string {
	return DateOf(l.now())
}

// current UTC calendar month
func (l *Ledger) CurrentMonth() YearMonth {
	return MonthOf(l.now())
}

// adds one interaction and promptUnits prompts to today's row for identity
func (l *Ledger) Record(ctx context.Context, identity Identity, promptUnits int) (*Record, error) {
	inc, err := l.increment(identity, promptUnits, l.now())
	if err != nil {
		return nil, err
	}

	rec, err := l.store.IncrementUsageRow(ctx, inc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return rec, nil
}

// records one interaction only while the identity has used fewer than limit
// interactions this month. the check and the increment are a single
// store operation, so concurrent callers never push usage past limit
func (l *Ledger) RecordIfBelow(ctx context.Context, identity Identity, promptUnits, limit int) (*Admission, error) {
	// one clock read: the row's day must fall inside the month that is summed
	now := l.now()

	inc, err := l.increment(identity, promptUnits, now)
	if err != nil {
		return nil, err
	}

	month := MonthOf(now)

	rec, used, admitted, err := l.store.IncrementUsageRowIfBelow(ctx, inc, month, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return &Admission{Admitted: admitted, Used: used, Record: rec, Month: month}, nil
}

// sums a user's daily rows inside month; no rows yields zeros
func (l *Ledger) MonthlyAggregate(ctx context.Context, userID string, month YearMonth) (Aggregate, error) {
	if strings.TrimSpace(userID) == "" {
		return Aggregate{}, ErrInvalidIdentity
	}

	// End is exclusive; the list filter is inclusive
	last, err := time.Parse(DateLayout, month.End())
	if err != nil {
		return Aggregate{}, err
	}

	rows, err := l.store.ListUsageRows(ctx, Filter{
		UserID:   userID,
		DateFrom: month.Start(),
		DateTo:   DateOf(last.AddDate(0, 0, -1)),
	})
	if err != nil {
		return Aggregate{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	var agg Aggregate
	for _, row := range rows {
		agg.TotalInteractions += row.Interactions
		agg.TotalPrompts += row.Prompts
	}

	return agg, nil
}

// totals, distinct users and a per-day series over an optional inclusive
// date range; empty bounds are open. also returns the rows it folded
func (l *Ledger) GlobalStats(ctx context.Context, startDate, endDate string) (*GlobalStats, []Record, error) {
	filter, err := rangeFilter(startDate, endDate)
	if err != nil {
		return nil, nil, err
	}

	rows, err := l.store.ListUsageRows(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return Summarize(rows), rows, nil
}

// today's row for a user, or nil when nothing was recorded yet
func (l *Ledger) TodayRecord(ctx context.Context, userID string) (*Record, error) {
	rec, err := l.store.FindUsageRow(ctx, userID, l.Today())
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return rec, nil
}

// a user's rows over an optional inclusive date range
func (l *Ledger) History(ctx context.Context, userID, startDate, endDate string) ([]Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidIdentity
	}

	filter, err := rangeFilter(startDate, endDate)
	if err != nil {
		return nil, err
	}

	filter.UserID = userID

	rows, err := l.store.ListUsageRows(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return rows, nil
}

// inserts a historical row; ErrDuplicateRecord when the day already exists
func (l *Ledger) Import(ctx context.Context, in NewRecord) (*Record, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, ErrInvalidIdentity
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	if in.Interactions < 0 || in.Prompts < 0 {
		return nil, ErrNegativeCounter
	}

	in.Date = date

	rec, err := l.store.InsertUsageRow(ctx, in)
	if errors.Is(err, ErrDuplicateRecord) {
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return rec, nil
}

// raises the counters of an existing day row; counters never go down
func (l *Ledger) Raise(ctx context.Context, userID, date string, interactions, prompts int) (*Record, error) {
	date, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	rec, err := l.store.FindUsageRow(ctx, userID, date)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if interactions < rec.Interactions || prompts < rec.Prompts {
		return nil, ErrCounterDecrease
	}

	updated, err := l.store.UpdateUsageRow(ctx, rec.ID, interactions, prompts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return updated, nil
}

// folds rows into totals and an ascending per-day series
func Summarize(rows []Record) *GlobalStats {
	stats := &GlobalStats{ChartData: []DailyPoint{}}
	users := make(map[string]struct{})
	byDate := make(map[string]*DailyPoint)

	for _, row := range rows {
		stats.TotalInteractions += row.Interactions
		stats.TotalPrompts += row.Prompts
		users[row.UserID] = struct{}{}

		point, ok := byDate[row.Date]
		if !ok {
			point = &DailyPoint{Date: row.Date}
			byDate[row.Date] = point
		}

		point.Interactions += row.Interactions
		point.Prompts += row.Prompts
	}

	stats.UniqueUsers = len(users)

	for _, point := range byDate {
		stats.ChartData = append(stats.ChartData, *point)
	}

	sort.Slice(stats.ChartData, func(i, j int) bool {
		return stats.ChartData[i].Date < stats.ChartData[j].Date
	})

	return stats
}

func (l *Ledger) increment(identity Identity, promptUnits int, now time.Time) (Increment, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return Increment{}, ErrInvalidIdentity
	}

	if promptUnits < 1 {
		return Increment{}, ErrInvalidPromptUnits
	}

	return Increment{
		UserID:    identity.UserID,
		UserEmail: identity.Email,
		Date:      DateOf(now),
		Prompts:   promptUnits,
	}, nil
}

func rangeFilter(startDate, endDate string) (Filter, error) {
	var filter Filter

	if startDate != "" {
		d, err := ParseDate(startDate)
		if err != nil {
			return Filter{}, err
		}

		filter.DateFrom = d
	}

	if endDate != "" {
		d, err := ParseDate(endDate)
		if err != nil {
			return Filter{}, err
		}

		filter.DateTo = d
	}

	if filter.DateFrom != "" && filter.DateTo != "" && filter.DateFrom > filter.DateTo {
		return Filter{}, ErrInvalidDateRange
	}

	return filter, nil
}
