package collector

import (
	"context"
	"time"

	"github.com/quantfold/harvest/pkg/models"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
	"github.com/quantfold/harvest/pkg/store"
)

// fakeStorage is an in-memory Storage for engine tests
type fakeStorage struct {
	dry bool

	maxDate   time.Time
	maxOk     bool
	maxErr    error
	perDim    map[string]time.Time
	perDimErr error

	history    []store.StoredRow
	historyErr error

	upserts   []store.UpsertBatch
	upsertErr error
}

func (f *fakeStorage) Dry() bool { return f.dry }

func (f *fakeStorage) MaxDate(ctx context.Context, table, dateColumn string) (time.Time, bool, error) {
	return f.maxDate, f.maxOk, f.maxErr
}

func (f *fakeStorage) MaxDatePerDimension(ctx context.Context, table, dateColumn, dimensionColumn string) (map[string]time.Time, error) {
	return f.perDim, f.perDimErr
}

func (f *fakeStorage) ValuesSince(ctx context.Context, table, dateColumn, dimensionColumn string, valueColumns []string, since time.Time) ([]store.StoredRow, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var out []store.StoredRow
	for _, row := range f.history {
		if !row.Date.Before(since) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStorage) Upsert(ctx context.Context, batch store.UpsertBatch) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserts = append(f.upserts, batch)
	return len(batch.Rows), nil
}

func (f *fakeStorage) writtenRows() []*models.Observation {
	var out []*models.Observation
	for _, b := range f.upserts {
		out = append(out, b.Rows...)
	}
	return out
}

// fakeAdapter serves canned rows per fetch window
type fakeAdapter struct {
	name        string
	constraints source.Constraints
	fetch       func(ctx context.Context, start, end time.Time) ([]source.RawRow, error)
	fetchCalls  int
}

func (a *fakeAdapter) Name() string {
	if a.name == "" {
		return "fake"
	}
	return a.name
}

func (a *fakeAdapter) Constraints() source.Constraints { return a.constraints }

func (a *fakeAdapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	a.fetchCalls++
	if a.fetch == nil {
		return nil, nil
	}
	return a.fetch(ctx, start, end)
}

// Normalize expects rows of {"date", "value"} and fills every series
// value column with the parsed value
func (a *fakeAdapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}
	for _, row := range rows {
		date, err := source.ParseDate(row["date"], models.DateLayout)
		if err != nil {
			res.Drop("bad_date")
			continue
		}
		value, err := source.ParseFloat(row["value"])
		if err != nil {
			res.Drop("bad_value")
			continue
		}
		obs := models.NewDimensionObservation(date, row["dimension"], a.Name())
		for _, col := range s.ValueColumns {
			obs.SetValue(col, value)
		}
		res.Observations = append(res.Observations, obs)
	}
	return res
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rawRow(date string, value string) source.RawRow {
	return source.RawRow{"date": date, "value": value}
}
