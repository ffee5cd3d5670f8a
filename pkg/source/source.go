// Package source defines the uniform capability every provider adapter
// exposes: fetch raw observations in a date range, declare the
// provider's hard constraints, and map the provider's payload shape
// into canonical observations. One variant implementation exists per
// provider under pkg/source/<provider>.
package source

import (
	"context"
	"time"

	"github.com/quantfold/harvest/pkg/models"
	"github.com/quantfold/harvest/pkg/series"
)

// RawRow is one provider row before normalization. Keys and values are
// provider-shaped strings; the adapter's Normalize turns them into
// typed observations and drops what it cannot parse.
type RawRow map[string]string

// Constraints are a provider's hard request limits. The window planner
// sizes sub-windows by MaxSpanDays and the executor derives inter-call
// spacing from the rate fields.
type Constraints struct {
	// MaxSpanDays caps a single request's date range (0 = unlimited)
	MaxSpanDays int
	// CallsPerMinute is the provider's per-minute call limit (0 = unlimited)
	CallsPerMinute int
	// CallsPerDay is the provider's daily call quota; the collector
	// defers planned windows beyond it to the next run (0 = unlimited)
	CallsPerDay int
	// RequiresAPIKey marks providers that refuse unauthenticated calls
	RequiresAPIKey bool
}

// NormalizeResult carries canonical observations plus an accounting of
// raw rows that were dropped rather than failing the window.
type NormalizeResult struct {
	Observations []*models.Observation
	Dropped      int
	DropReasons  map[string]int
}

// Drop records one dropped raw row under a reason
func (r *NormalizeResult) Drop(reason string) {
	if r.DropReasons == nil {
		r.DropReasons = make(map[string]int)
	}
	r.DropReasons[reason]++
	r.Dropped++
}

// Adapter is the capability interface all provider adapters implement.
// Fetch and Normalize are split so the executor can retry transport
// failures without re-running parsing, and so tests can normalize
// captured payloads without a network.
type Adapter interface {
	// Name returns the provider name (e.g. "fred", "marketwatch")
	Name() string

	// Constraints returns the provider's hard request limits
	Constraints() Constraints

	// Fetch retrieves raw observations covering [start, end]. Providers
	// that cannot filter server-side may return surplus rows; the
	// collector clips to the window after normalization. Failures are
	// reported through the pkg/errors taxonomy so the executor can
	// distinguish retryable outages from malformed payloads.
	Fetch(ctx context.Context, start, end time.Time) ([]RawRow, error)

	// Normalize maps raw rows into canonical observations for the
	// series, dropping (and counting) unparseable rows.
	Normalize(rows []RawRow, s *series.Series) *NormalizeResult
}
