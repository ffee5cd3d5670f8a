package collector

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/models"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

// Calculator computes derived percent-change columns from a value
// column and a trailing lookup window.
type Calculator struct {
	storage Storage
	logger  *zap.Logger
}

// NewCalculator creates a derived-field calculator
func NewCalculator(storage Storage, logger *zap.Logger) *Calculator {
	return &Calculator{storage: storage, logger: logger}
}

// Apply fills the derived fields of a fresh batch before it is written.
// The prior value for each observation is looked up first in the batch
// itself, then in storage. Observations without enough history keep
// their derived fields unset so the sink leaves those columns NULL.
func (c *Calculator) Apply(ctx context.Context, s *series.Series, fresh []*models.Observation) error {
	if !s.HasDerived() || len(fresh) == 0 {
		return nil
	}

	minDate := fresh[0].Date
	for _, obs := range fresh[1:] {
		if obs.Date.Before(minDate) {
			minDate = obs.Date
		}
	}
	since := minDate.AddDate(0, -s.MaxDerivedPeriod(), 0)

	index, err := c.historyIndex(ctx, s, since)
	if err != nil {
		return err
	}
	overlay(index, fresh)

	for _, obs := range fresh {
		c.fill(s, index, obs)
	}
	return nil
}

// Recompute rebuilds derived fields for the entire stored history of a
// series and writes them back. Returns the number of rows updated.
func (c *Calculator) Recompute(ctx context.Context, s *series.Series) (int, error) {
	if !s.HasDerived() {
		return 0, nil
	}
	if c.storage.Dry() {
		c.logger.Info("dry sink, nothing to recompute", zap.String("series", s.Key))
		return 0, nil
	}

	index, err := c.historyIndex(ctx, s, time.Time{})
	if err != nil {
		return 0, err
	}

	var updated []*models.Observation
	for dim, byDate := range index {
		for dateKey, cols := range byDate {
			date, perr := time.Parse(models.DateLayout, dateKey)
			if perr != nil {
				continue
			}
			obs := models.NewDimensionObservation(date, dim, "")
			for col, v := range cols {
				obs.SetValue(col, v)
			}
			c.fill(s, index, obs)
			if len(obs.Derived) > 0 {
				updated = append(updated, obs)
			}
		}
	}

	sort.Slice(updated, func(i, j int) bool {
		if updated[i].Date.Equal(updated[j].Date) {
			return updated[i].Dimension < updated[j].Dimension
		}
		return updated[i].Date.Before(updated[j].Date)
	})

	return c.storage.Upsert(ctx, store.UpsertBatch{
		Table:           s.Table,
		DateColumn:      s.DateColumn,
		DimensionColumn: s.DimensionColumn,
		Rows:            updated,
	})
}

// historyIndex loads stored source-column values since the given date
// into a dimension -> date -> column lookup. A zero since loads the
// full history.
func (c *Calculator) historyIndex(ctx context.Context, s *series.Series, since time.Time) (map[string]map[string]map[string]float64, error) {
	sourceCols := make(map[string]bool)
	for _, df := range s.Derived {
		sourceCols[df.SourceColumn] = true
	}
	cols := make([]string, 0, len(sourceCols))
	for col := range sourceCols {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	rows, err := c.storage.ValuesSince(ctx, s.Table, s.DateColumn, s.DimensionColumn, cols, since)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "loading derived-field history")
	}

	index := make(map[string]map[string]map[string]float64)
	for _, row := range rows {
		byDate, ok := index[row.Dimension]
		if !ok {
			byDate = make(map[string]map[string]float64)
			index[row.Dimension] = byDate
		}
		dateKey := row.Date.Format(models.DateLayout)
		vals, ok := byDate[dateKey]
		if !ok {
			vals = make(map[string]float64)
			byDate[dateKey] = vals
		}
		for col, v := range row.Values {
			vals[col] = v
		}
	}
	return index, nil
}

// overlay merges fresh observations into the index so same-batch rows
// can serve as each other's history. Fresh values win over stored ones.
func overlay(index map[string]map[string]map[string]float64, fresh []*models.Observation) {
	for _, obs := range fresh {
		byDate, ok := index[obs.Dimension]
		if !ok {
			byDate = make(map[string]map[string]float64)
			index[obs.Dimension] = byDate
		}
		dateKey := obs.Date.Format(models.DateLayout)
		vals, ok := byDate[dateKey]
		if !ok {
			vals = make(map[string]float64)
			byDate[dateKey] = vals
		}
		for col, v := range obs.Values {
			vals[col] = v
		}
	}
}

// fill computes each derived field of one observation from the index
func (c *Calculator) fill(s *series.Series, index map[string]map[string]map[string]float64, obs *models.Observation) {
	for _, df := range s.Derived {
		current, ok := obs.Value(df.SourceColumn)
		if !ok {
			continue
		}

		priorDate := obs.Date.AddDate(0, -df.PeriodMonths, 0).Format(models.DateLayout)
		byDate, ok := index[obs.Dimension]
		if !ok {
			continue
		}
		priorVals, ok := byDate[priorDate]
		if !ok {
			continue
		}
		prior, ok := priorVals[df.SourceColumn]
		if !ok || prior == 0 {
			continue
		}

		obs.SetDerived(df.Column, (current-prior)/prior*100)
	}
}
