package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLastCompletePeriodDaily(t *testing.T) {
	// Monday looks back to Friday
	assert.Equal(t, date(2026, time.March, 13), LastCompletePeriod(date(2026, time.March, 16), FrequencyDaily))
	// Midweek looks back one day
	assert.Equal(t, date(2026, time.March, 17), LastCompletePeriod(date(2026, time.March, 18), FrequencyDaily))
	// Sunday looks back to Friday
	assert.Equal(t, date(2026, time.March, 13), LastCompletePeriod(date(2026, time.March, 15), FrequencyDaily))
}

func TestLastCompletePeriodMonthly(t *testing.T) {
	assert.Equal(t, date(2026, time.February, 1), LastCompletePeriod(date(2026, time.March, 15), FrequencyMonthly))
	// Year boundary
	assert.Equal(t, date(2025, time.December, 1), LastCompletePeriod(date(2026, time.January, 3), FrequencyMonthly))
}

func TestLastCompletePeriodQuarterly(t *testing.T) {
	assert.Equal(t, date(2026, time.April, 1), LastCompletePeriod(date(2026, time.August, 29), FrequencyQuarterly))
	assert.Equal(t, date(2025, time.October, 1), LastCompletePeriod(date(2026, time.February, 10), FrequencyQuarterly))
}

func TestNextPeriod(t *testing.T) {
	daily := &Series{Frequency: FrequencyDaily}
	assert.Equal(t, date(2026, time.March, 14), daily.NextPeriod(date(2026, time.March, 13)))

	monthly := &Series{Frequency: FrequencyMonthly}
	assert.Equal(t, date(2026, time.April, 1), monthly.NextPeriod(date(2026, time.March, 1)))
	assert.Equal(t, date(2026, time.April, 1), monthly.NextPeriod(date(2026, time.March, 20)))

	quarterly := &Series{Frequency: FrequencyQuarterly}
	assert.Equal(t, date(2026, time.July, 1), quarterly.NextPeriod(date(2026, time.June, 1)))
	assert.Equal(t, date(2027, time.January, 1), quarterly.NextPeriod(date(2026, time.November, 15)))
}

func TestDefaultStart(t *testing.T) {
	now := date(2026, time.March, 16)

	s := &Series{DefaultLookbackDays: 30}
	assert.Equal(t, date(2026, time.February, 14), s.DefaultStart(now))

	pinned := &Series{DefaultLookbackDays: 30, HistoryStart: date(2018, time.May, 1)}
	assert.Equal(t, date(2018, time.May, 1), pinned.DefaultStart(now))
}

func TestPreviousBusinessDay(t *testing.T) {
	// Tuesday -> Monday
	assert.Equal(t, date(2026, time.March, 16), PreviousBusinessDay(date(2026, time.March, 17)))
	// Monday, Sunday, Saturday all -> Friday
	for d := 14; d <= 16; d++ {
		assert.Equal(t, date(2026, time.March, 13), PreviousBusinessDay(date(2026, time.March, d)))
	}
}

func TestQuarterStart(t *testing.T) {
	assert.Equal(t, date(2026, time.January, 1), QuarterStart(date(2026, time.February, 28)))
	assert.Equal(t, date(2026, time.April, 1), QuarterStart(date(2026, time.June, 30)))
	assert.Equal(t, date(2026, time.October, 1), QuarterStart(date(2026, time.December, 31)))
}

func TestConflictColumns(t *testing.T) {
	s := &Series{DateColumn: "date"}
	assert.Equal(t, []string{"date"}, s.ConflictColumns())

	s.DimensionColumn = "maturity"
	assert.Equal(t, []string{"date", "maturity"}, s.ConflictColumns())
}

func TestMaxDerivedPeriod(t *testing.T) {
	s := &Series{Derived: []DerivedField{
		{Column: "mom", SourceColumn: "v", PeriodMonths: 1},
		{Column: "yoy", SourceColumn: "v", PeriodMonths: 12},
	}}
	assert.Equal(t, 12, s.MaxDerivedPeriod())
	assert.True(t, s.HasDerived())

	assert.Equal(t, 0, (&Series{}).MaxDerivedPeriod())
}
