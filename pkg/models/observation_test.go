package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestObservationKey(t *testing.T) {
	o := NewObservation(date(2026, time.March, 13), "fred")
	assert.Equal(t, "2026-03-13", o.Key())

	d := NewDimensionObservation(date(2026, time.March, 13), "10Y", "fred")
	assert.Equal(t, "2026-03-13|10Y", d.Key())
}

func TestObservationValues(t *testing.T) {
	o := NewObservation(date(2026, time.March, 13), "fred").
		SetValue("open", 1.5).
		SetValue("close", 2.5)

	v, ok := o.Value("close")
	require.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok = o.Value("volume")
	assert.False(t, ok)

	assert.Nil(t, o.Derived)
	o.SetDerived("yoy_change", 3.2)
	assert.Equal(t, 3.2, o.Derived["yoy_change"])
}

func TestDedupeObservationsLastWins(t *testing.T) {
	obs := []*Observation{
		NewObservation(date(2026, time.March, 12), "a").SetValue("v", 1),
		NewObservation(date(2026, time.March, 13), "a").SetValue("v", 2),
		NewObservation(date(2026, time.March, 12), "a").SetValue("v", 3),
	}

	out := DedupeObservations(obs)

	require.Len(t, out, 2)
	// The later duplicate replaces the earlier one in place
	assert.Equal(t, date(2026, time.March, 12), out[0].Date)
	v, _ := out[0].Value("v")
	assert.Equal(t, 3.0, v)
	assert.Equal(t, date(2026, time.March, 13), out[1].Date)
}

func TestDedupeObservationsKeepsDimensionsApart(t *testing.T) {
	obs := []*Observation{
		NewDimensionObservation(date(2026, time.March, 12), "2Y", "a"),
		NewDimensionObservation(date(2026, time.March, 12), "10Y", "a"),
	}

	assert.Len(t, DedupeObservations(obs), 2)
}
