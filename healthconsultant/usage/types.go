package usage

import (
	"errors"
	"fmt"
	"time"
)

// calendar day layout used for usage_date everywhere (UTC)
const DateLayout = "2006-01-02"

var (
	ErrRecordNotFound     = errors.New("usage record not found")
	ErrDuplicateRecord    = errors.New("usage record already exists for this user and date")
	ErrInvalidIdentity    = errors.New("identity is required")
	ErrInvalidPromptUnits = errors.New("prompt units must be a positive integer")
	ErrInvalidDateRange   = errors.New("start date must not be after end date")
	ErrInvalidDate        = errors.New("invalid date: expected YYYY-MM-DD")
	ErrNegativeCounter    = errors.New("usage counters must not be negative")
	ErrCounterDecrease    = errors.New("usage counters can only increase")

	// wraps every failure of the backing store so callers can tell metering
	// failures apart from validation errors
	ErrPersistence = errors.New("usage persistence failed")
)

// one row per user per calendar day
type Record struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	UserEmail    string    `json:"userEmail"`
	Date         string    `json:"date"`
	Interactions int       `json:"interactions"`
	Prompts      int       `json:"prompts"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// the authenticated principal usage is metered for
type Identity struct {
	UserID string
	Email  string
}

// input for InsertUsageRow; used by imports and backfills
type NewRecord struct {
	UserID       string
	UserEmail    string
	Date         string
	Interactions int
	Prompts      int
}

// input for the atomic upsert-and-increment: +1 interaction, +Prompts prompts
type Increment struct {
	UserID    string
	UserEmail string
	Date      string
	Prompts   int
}

// narrows ListUsageRows; empty fields are ignored, dates are inclusive
type Filter struct {
	UserID   string
	DateFrom string
	DateTo   string
}

// monthly fold over a user's daily rows
type Aggregate struct {
	TotalInteractions int `json:"totalInteractions"`
	TotalPrompts      int `json:"totalPrompts"`
}

type DailyPoint struct {
	Date         string `json:"date"`
	Interactions int    `json:"interactions"`
	Prompts      int    `json:"prompts"`
}

// operational totals for the admin dashboard
type GlobalStats struct {
	TotalInteractions int          `json:"totalInteractions"`
	TotalPrompts      int          `json:"totalPrompts"`
	UniqueUsers       int          `json:"uniqueUsers"`
	ChartData         []DailyPoint `json:"chartData"`
}

// a calendar month in UTC
type YearMonth struct {
	Year  int
	Month time.Month
}

// returns the UTC calendar month containing t
func MonthOf(t time.Time) YearMonth {
	t = t.UTC()
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// parses "YYYY-MM"
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q: %w", s, err)
	}

	return MonthOf(t), nil
}

// returns the month containing date (YYYY-MM-DD)
func MonthOfDate(date string) (YearMonth, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	return MonthOf(t), nil
}

// first day of the month
func (m YearMonth) Start() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// first day of the following month (exclusive bound)
func (m YearMonth) End() string {
	return time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// last day of the month (inclusive bound)
func (m YearMonth) Last() string {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// the month before m
func (m YearMonth) Previous() YearMonth {
	return MonthOf(time.Date(m.Year, m.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// reports whether date (YYYY-MM-DD) falls inside m
func (m YearMonth) Contains(date string) bool {
	return date >= m.Start() && date < m.End()
}

// returns t as a UTC calendar day
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// validates a YYYY-MM-DD string and returns it normalized
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	return t.Format(DateLayout), nil
}
