package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/quantfold/harvest/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dryStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), "", zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestDryStore(t *testing.T) {
	s := dryStore(t)
	ctx := context.Background()

	assert.True(t, s.Dry())
	require.NoError(t, s.Ping(ctx))

	_, ok, err := s.MaxDate(ctx, "t", "date")
	require.NoError(t, err)
	assert.False(t, ok)

	per, err := s.MaxDatePerDimension(ctx, "t", "date", "maturity")
	require.NoError(t, err)
	assert.Empty(t, per)

	rows, err := s.ValuesSince(ctx, "t", "date", "", []string{"value"}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDryStoreUpsertReportsWouldBeCount(t *testing.T) {
	s := dryStore(t)

	n, err := s.Upsert(context.Background(), UpsertBatch{
		Table:      "t",
		DateColumn: "date",
		Rows: []*models.Observation{
			models.NewObservation(date(2026, time.March, 12), "test").SetValue("value", 1),
			models.NewObservation(date(2026, time.March, 13), "test").SetValue("value", 2),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpsertEmptyBatch(t *testing.T) {
	n, err := dryStore(t).Upsert(context.Background(), UpsertBatch{Table: "t", DateColumn: "date"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBuildUpsertSingleDimension(t *testing.T) {
	batch := UpsertBatch{Table: "consumer_prices", DateColumn: "date"}
	obs := models.NewObservation(date(2026, time.March, 1), "test").SetValue("value", 101.5)
	obs.SetDerived("yoy_change", 2.5)

	sql, args := buildUpsert(batch, obs)

	assert.Equal(t,
		`INSERT INTO "consumer_prices" ("date", "value", "yoy_change", updated_at) `+
			`VALUES ($1, $2, $3, CURRENT_TIMESTAMP) `+
			`ON CONFLICT ("date") DO UPDATE SET `+
			`"value" = EXCLUDED."value", "yoy_change" = EXCLUDED."yoy_change", updated_at = CURRENT_TIMESTAMP`,
		sql)
	require.Len(t, args, 3)
	assert.Equal(t, obs.Date, args[0])
	assert.Equal(t, 101.5, args[1])
	assert.Equal(t, 2.5, args[2])
}

func TestBuildUpsertWithDimension(t *testing.T) {
	batch := UpsertBatch{Table: "treasury_yields", DateColumn: "date", DimensionColumn: "maturity"}
	obs := models.NewDimensionObservation(date(2026, time.March, 13), "10Y", "test").
		SetValue("yield_rate", 4.25)

	sql, args := buildUpsert(batch, obs)

	assert.Equal(t,
		`INSERT INTO "treasury_yields" ("date", "maturity", "yield_rate", updated_at) `+
			`VALUES ($1, $2, $3, CURRENT_TIMESTAMP) `+
			`ON CONFLICT ("date", "maturity") DO UPDATE SET `+
			`"yield_rate" = EXCLUDED."yield_rate", updated_at = CURRENT_TIMESTAMP`,
		sql)
	require.Len(t, args, 3)
	assert.Equal(t, "10Y", args[1])
}

func TestBuildUpsertColumnOrderIsStable(t *testing.T) {
	batch := UpsertBatch{Table: "prices", DateColumn: "date"}
	obs := models.NewObservation(date(2026, time.March, 13), "test").
		SetValue("open_price", 1).
		SetValue("close_price", 2).
		SetValue("high_price", 3).
		SetValue("low_price", 4)

	first, _ := buildUpsert(batch, obs)
	for i := 0; i < 10; i++ {
		again, _ := buildUpsert(batch, obs)
		assert.Equal(t, first, again)
	}
	assert.Contains(t, first, `"close_price", "high_price", "low_price", "open_price"`)
}
