package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
)

func TestPlanSingleWindowWhenNoSpanLimit(t *testing.T) {
	s := &series.Series{Key: "test", Frequency: series.FrequencyDaily, DefaultLookbackDays: 30}
	now := day(2026, time.March, 16) // Monday

	windows := Plan(Watermark{Empty: true}, now, source.Constraints{}, s)

	require.Len(t, windows, 1)
	assert.Equal(t, day(2026, time.February, 14), windows[0].Start)
	assert.Equal(t, day(2026, time.March, 16), windows[0].End)
}

func TestPlanChunksLongGap(t *testing.T) {
	s := &series.Series{Key: "test", Frequency: series.FrequencyDaily, DefaultLookbackDays: 10}
	now := day(2026, time.June, 1) // Monday
	wm := Watermark{Time: now.AddDate(0, 0, -900)}

	windows := Plan(wm, now, source.Constraints{MaxSpanDays: 365}, s)

	require.Len(t, windows, 3)
	assert.Equal(t, wm.Time.AddDate(0, 0, 1), windows[0].Start)
	assert.Equal(t, 365, windows[0].Days())
	assert.Equal(t, 365, windows[1].Days())
	assert.Equal(t, now, windows[2].End)

	// Contiguous with no overlap
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].End.AddDate(0, 0, 1), windows[i].Start)
	}
}

func TestPlanNothingNewDaily(t *testing.T) {
	s := &series.Series{Key: "test", Frequency: series.FrequencyDaily, DefaultLookbackDays: 30}
	// Monday morning with Friday's close already stored
	now := day(2026, time.March, 16)
	wm := Watermark{Time: day(2026, time.March, 13)}

	windows := Plan(wm, now, source.Constraints{}, s)

	assert.Nil(t, windows)
}

func TestPlanNothingNewMonthly(t *testing.T) {
	s := &series.Series{Key: "test", Frequency: series.FrequencyMonthly, DefaultLookbackDays: 365}
	now := day(2026, time.March, 15)
	wm := Watermark{Time: day(2026, time.February, 1)}

	windows := Plan(wm, now, source.Constraints{}, s)

	assert.Nil(t, windows)
}

func TestPlanMonthlyResumesAtNextMonth(t *testing.T) {
	s := &series.Series{Key: "test", Frequency: series.FrequencyMonthly, DefaultLookbackDays: 365}
	now := day(2026, time.June, 15)
	wm := Watermark{Time: day(2026, time.March, 1)}

	windows := Plan(wm, now, source.Constraints{}, s)

	require.Len(t, windows, 1)
	assert.Equal(t, day(2026, time.April, 1), windows[0].Start)
	assert.Equal(t, now, windows[0].End)
}

func TestPlanQuarterly(t *testing.T) {
	s := &series.Series{Key: "test", Frequency: series.FrequencyQuarterly, DefaultLookbackDays: 10 * 365}
	now := day(2026, time.August, 29)

	// Q1 stored, Q2 complete, expect a window opening at Q2
	wm := Watermark{Time: day(2026, time.March, 1)}
	windows := Plan(wm, now, source.Constraints{}, s)
	require.Len(t, windows, 1)
	assert.Equal(t, day(2026, time.April, 1), windows[0].Start)

	// Q2 stored, Q3 still open, nothing to do
	wm = Watermark{Time: day(2026, time.June, 1)}
	assert.Nil(t, Plan(wm, now, source.Constraints{}, s))
}

func TestPlanHistoryStartWinsOverLookback(t *testing.T) {
	s := &series.Series{
		Key:                 "test",
		Frequency:           series.FrequencyDaily,
		DefaultLookbackDays: 30,
		HistoryStart:        day(2018, time.May, 1),
	}
	now := day(2026, time.March, 16)

	windows := Plan(Watermark{Empty: true}, now, source.Constraints{}, s)

	require.NotEmpty(t, windows)
	assert.Equal(t, day(2018, time.May, 1), windows[0].Start)
}

func TestPlanStartAfterTodayYieldsNothing(t *testing.T) {
	s := &series.Series{Key: "test", Frequency: series.FrequencyDaily, DefaultLookbackDays: 30}
	// Saturday with Friday already stored: next period is today+1
	now := day(2026, time.March, 14)
	wm := Watermark{Time: day(2026, time.March, 14)}

	assert.Nil(t, Plan(wm, now, source.Constraints{}, s))
}

func TestWindowDays(t *testing.T) {
	w := Window{Start: day(2026, time.January, 1), End: day(2026, time.January, 1)}
	assert.Equal(t, 1, w.Days())

	w = Window{Start: day(2026, time.January, 1), End: day(2026, time.December, 31)}
	assert.Equal(t, 365, w.Days())
}
