// Package models provides the canonical data records for Harvest.
// Source adapters normalize wildly different payload shapes (JSON
// bodies, CSV downloads, scraped HTML) into Observation values; the
// sink persists them without knowing anything about their origin.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date key format used across the engine
const DateLayout = "2006-01-02"

// Observation is one (date, dimension) -> values tuple for a series.
// Uniqueness is per (series, date, dimension); insertion order is
// irrelevant.
type Observation struct {
	// Date is the observation date, midnight UTC
	Date time.Time
	// Dimension is the sub-dimension value (maturity, ticker); empty
	// for one-dimensional series
	Dimension string
	// Values holds the raw value columns
	Values map[string]float64
	// Derived holds trailing-window derived columns; a column is
	// absent (not zero) when its prior value could not be resolved
	Derived map[string]float64
	// Provider records which source adapter produced the row
	Provider string
}

// NewObservation creates an observation for a one-dimensional series
func NewObservation(date time.Time, provider string) *Observation {
	return &Observation{
		Date:     date,
		Values:   make(map[string]float64),
		Provider: provider,
	}
}

// NewDimensionObservation creates an observation carrying a dimension
func NewDimensionObservation(date time.Time, dimension, provider string) *Observation {
	o := NewObservation(date, provider)
	o.Dimension = dimension
	return o
}

// Key returns the uniqueness key within a series
func (o *Observation) Key() string {
	if o.Dimension == "" {
		return o.Date.Format(DateLayout)
	}
	return fmt.Sprintf("%s|%s", o.Date.Format(DateLayout), o.Dimension)
}

// SetValue sets a raw value column
func (o *Observation) SetValue(column string, v float64) *Observation {
	o.Values[column] = v
	return o
}

// SetDerived sets a derived column
func (o *Observation) SetDerived(column string, v float64) {
	if o.Derived == nil {
		o.Derived = make(map[string]float64)
	}
	o.Derived[column] = v
}

// Value looks up a raw value column
func (o *Observation) Value(column string) (float64, bool) {
	v, ok := o.Values[column]
	return v, ok
}

// DedupeObservations collapses duplicate keys, last seen wins. Some
// providers return the same date twice across overlapping pages; the
// uniqueness invariant makes the later row authoritative.
func DedupeObservations(obs []*Observation) []*Observation {
	if len(obs) < 2 {
		return obs
	}

	seen := make(map[string]int, len(obs))
	out := make([]*Observation, 0, len(obs))
	for _, o := range obs {
		key := o.Key()
		if idx, ok := seen[key]; ok {
			out[idx] = o
			continue
		}
		seen[key] = len(out)
		out = append(out, o)
	}
	return out
}
