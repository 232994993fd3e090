package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearMonthBounds(t *testing.T) {
	tests := []struct {
		month    YearMonth
		start    string
		end      string
		previous string
	}{
		{YearMonth{2026, time.March}, "2026-03-01", "2026-04-01", "2026-02"},
		{YearMonth{2026, time.December}, "2026-12-01", "2027-01-01", "2026-11"},
		{YearMonth{2026, time.January}, "2026-01-01", "2026-02-01", "2025-12"},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.start, tt.month.Start())
			assert.Equal(t, tt.end, tt.month.End())
			assert.Equal(t, tt.previous, tt.month.Previous().String())
		})
	}
}

func TestYearMonthContains(t *testing.T) {
	m := YearMonth{2026, time.February}

	assert.True(t, m.Contains("2026-02-01"))
	assert.True(t, m.Contains("2026-02-28"))
	assert.False(t, m.Contains("2026-03-01"))
	assert.False(t, m.Contains("2026-01-31"))
	assert.Equal(t, "2026-02-28", m.Last())
	assert.Equal(t, "2028-02-29", YearMonth{2028, time.February}.Last())
}

func TestParseYearMonth(t *testing.T) {
	m, err := ParseYearMonth("2026-07")
	require.NoError(t, err)
	assert.Equal(t, YearMonth{2026, time.July}, m)

	_, err = ParseYearMonth("July 2026")
	assert.Error(t, err)
}

func TestMonthOfDate(t *testing.T) {
	m, err := MonthOfDate("2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, YearMonth{2026, time.March}, m)

	_, err = MonthOfDate("2026-03")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-07-04")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-04", d)

	_, err = ParseDate("2026-13-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
