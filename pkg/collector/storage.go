package collector

import (
	"context"
	"time"

	"github.com/quantfold/harvest/pkg/store"
)

// Storage is the sink surface the engine needs. *store.Store satisfies it.
type Storage interface {
	Dry() bool
	MaxDate(ctx context.Context, table, dateColumn string) (time.Time, bool, error)
	MaxDatePerDimension(ctx context.Context, table, dateColumn, dimensionColumn string) (map[string]time.Time, error)
	ValuesSince(ctx context.Context, table, dateColumn, dimensionColumn string, valueColumns []string, since time.Time) ([]store.StoredRow, error)
	Upsert(ctx context.Context, batch store.UpsertBatch) (int, error)
}
