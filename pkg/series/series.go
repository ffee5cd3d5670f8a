// Package series defines the metadata that drives incremental
// collection: destination table shape, observation frequency, default
// history depth, and derived-field definitions. A Series describes WHAT
// a collector stores; the source adapter describes WHERE it comes from.
package series

import (
	"time"
)

// Frequency is the observation cadence of a series
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// DerivedField defines a trailing-window percentage change computed
// from stored history plus freshly fetched rows. The derived value for
// date d is (v[d] - v[d-period]) / v[d-period] * 100.
type DerivedField struct {
	// Column is the destination column for the derived value
	Column string
	// SourceColumn is the raw value column the change is computed from
	SourceColumn string
	// PeriodMonths is the trailing window (1 = MoM, 3 = QoQ, 12 = YoY)
	PeriodMonths int
}

// Series is a logical time series and its destination shape.
type Series struct {
	// Key is the stable series identifier (also the collector name)
	Key string
	// Table is the destination table name
	Table string
	// DateColumn is the unique date key column (usually "date")
	DateColumn string
	// DimensionColumn names the sub-dimension column ("maturity",
	// "ticker"); empty for one-dimensional series
	DimensionColumn string
	// Dimensions lists the expected dimension values, when known
	Dimensions []string
	// Frequency is the observation cadence
	Frequency Frequency
	// ValueColumns are the raw value columns every observation carries
	ValueColumns []string
	// Derived lists trailing-window derived fields, if any
	Derived []DerivedField
	// DefaultLookbackDays sizes the initial window when no history is
	// stored; ignored when HistoryStart is set
	DefaultLookbackDays int
	// HistoryStart pins the initial window to a fixed date ("all
	// available" series whose providers started publishing then)
	HistoryStart time.Time
}

// ConflictColumns returns the unique key columns for upserts
func (s *Series) ConflictColumns() []string {
	if s.DimensionColumn == "" {
		return []string{s.DateColumn}
	}
	return []string{s.DateColumn, s.DimensionColumn}
}

// HasDerived reports whether the series carries derived fields
func (s *Series) HasDerived() bool {
	return len(s.Derived) > 0
}

// MaxDerivedPeriod returns the longest trailing window in months
func (s *Series) MaxDerivedPeriod() int {
	max := 0
	for _, d := range s.Derived {
		if d.PeriodMonths > max {
			max = d.PeriodMonths
		}
	}
	return max
}

// DefaultStart returns the start of the initial fetch window for a
// series with no stored history.
func (s *Series) DefaultStart(now time.Time) time.Time {
	if !s.HistoryStart.IsZero() {
		return s.HistoryStart
	}
	return Day(now).AddDate(0, 0, -s.DefaultLookbackDays)
}

// NextPeriod returns the first date after w at the series cadence, the
// lower bound of an incremental fetch window.
func (s *Series) NextPeriod(w time.Time) time.Time {
	w = Day(w)
	switch s.Frequency {
	case FrequencyMonthly:
		return time.Date(w.Year(), w.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return QuarterStart(w).AddDate(0, 3, 0)
	default:
		return w.AddDate(0, 0, 1)
	}
}

// LastCompletePeriod returns the most recent period that should be
// fully published by the series' provider at time now. A watermark at
// or past this date means there is nothing new to fetch.
func LastCompletePeriod(now time.Time, f Frequency) time.Time {
	d := Day(now)
	switch f {
	case FrequencyMonthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	case FrequencyQuarterly:
		return QuarterStart(d).AddDate(0, -3, 0)
	default:
		return PreviousBusinessDay(d)
	}
}

// PreviousBusinessDay returns the latest weekday strictly before d.
// Market holidays are not modeled; a holiday simply yields an empty
// fetch from the provider.
func PreviousBusinessDay(d time.Time) time.Time {
	d = Day(d).AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// QuarterStart returns the first day of d's calendar quarter
func QuarterStart(d time.Time) time.Time {
	q := (int(d.Month()) - 1) / 3
	return time.Date(d.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// Day truncates a timestamp to midnight UTC
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
