package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/series"
)

func TestResolveDryStorageIsEmpty(t *testing.T) {
	r := NewResolver(&fakeStorage{dry: true}, zaptest.NewLogger(t))

	wm, err := r.Resolve(context.Background(), &series.Series{Key: "test", Table: "t", DateColumn: "date"})

	require.NoError(t, err)
	assert.True(t, wm.Empty)
}

func TestResolveSingleDimension(t *testing.T) {
	s := &series.Series{Key: "test", Table: "t", DateColumn: "date"}

	t.Run("no rows", func(t *testing.T) {
		r := NewResolver(&fakeStorage{}, zaptest.NewLogger(t))
		wm, err := r.Resolve(context.Background(), s)
		require.NoError(t, err)
		assert.True(t, wm.Empty)
	})

	t.Run("max date", func(t *testing.T) {
		max := day(2026, time.March, 13)
		r := NewResolver(&fakeStorage{maxDate: max, maxOk: true}, zaptest.NewLogger(t))
		wm, err := r.Resolve(context.Background(), s)
		require.NoError(t, err)
		assert.False(t, wm.Empty)
		assert.Equal(t, max, wm.Time)
	})
}

func TestResolveDimensionedTakesMinimum(t *testing.T) {
	s := &series.Series{
		Key:             "test",
		Table:           "t",
		DateColumn:      "date",
		DimensionColumn: "maturity",
		Dimensions:      []string{"2Y", "10Y"},
	}
	st := &fakeStorage{perDim: map[string]time.Time{
		"2Y":  day(2026, time.March, 13),
		"10Y": day(2026, time.March, 10),
	}}
	r := NewResolver(st, zaptest.NewLogger(t))

	wm, err := r.Resolve(context.Background(), s)

	require.NoError(t, err)
	assert.False(t, wm.Empty)
	assert.Equal(t, day(2026, time.March, 10), wm.Time)
}

func TestResolveMissingDimensionForcesBackfill(t *testing.T) {
	s := &series.Series{
		Key:             "test",
		Table:           "t",
		DateColumn:      "date",
		DimensionColumn: "maturity",
		Dimensions:      []string{"2Y", "10Y", "30Y"},
	}
	st := &fakeStorage{perDim: map[string]time.Time{
		"2Y":  day(2026, time.March, 13),
		"10Y": day(2026, time.March, 13),
	}}
	r := NewResolver(st, zaptest.NewLogger(t))

	wm, err := r.Resolve(context.Background(), s)

	require.NoError(t, err)
	assert.True(t, wm.Empty)
}

func TestResolveStorageErrorIsStorageUnavailable(t *testing.T) {
	st := &fakeStorage{maxErr: errors.New(errors.ErrorTypeStorageUnavailable, "connection refused")}
	r := NewResolver(st, zaptest.NewLogger(t))

	_, err := r.Resolve(context.Background(), &series.Series{Key: "test", Table: "t", DateColumn: "date"})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorageUnavailable))
}
