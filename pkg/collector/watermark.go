package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/series"
)

// Watermark is the resolved high-water mark of a series in the sink
type Watermark struct {
	Time         time.Time
	Empty        bool
	PerDimension map[string]time.Time
}

// Resolver reads watermarks from storage
type Resolver struct {
	storage Storage
	logger  *zap.Logger
}

// NewResolver creates a watermark resolver backed by the given storage
func NewResolver(storage Storage, logger *zap.Logger) *Resolver {
	return &Resolver{storage: storage, logger: logger}
}

// Resolve returns the series watermark. For dimensioned series the
// watermark is the minimum across dimensions, so a lagging dimension
// pulls the whole series back rather than leaving gaps. A storage
// error is fatal for the run.
func (r *Resolver) Resolve(ctx context.Context, s *series.Series) (Watermark, error) {
	if r.storage.Dry() {
		r.logger.Debug("dry sink, treating series as empty", zap.String("series", s.Key))
		return Watermark{Empty: true}, nil
	}

	if s.DimensionColumn == "" {
		max, ok, err := r.storage.MaxDate(ctx, s.Table, s.DateColumn)
		if err != nil {
			return Watermark{}, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "resolving watermark")
		}
		if !ok {
			return Watermark{Empty: true}, nil
		}
		return Watermark{Time: max}, nil
	}

	per, err := r.storage.MaxDatePerDimension(ctx, s.Table, s.DateColumn, s.DimensionColumn)
	if err != nil {
		return Watermark{}, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "resolving per-dimension watermark")
	}
	if len(per) == 0 {
		return Watermark{Empty: true}, nil
	}

	// A known dimension with no rows at all means the series has a hole
	// only a full backfill can close.
	for _, dim := range s.Dimensions {
		if _, ok := per[dim]; !ok {
			r.logger.Info("dimension has no rows, forcing full backfill",
				zap.String("series", s.Key), zap.String("dimension", dim))
			return Watermark{Empty: true, PerDimension: per}, nil
		}
	}

	var min time.Time
	first := true
	for _, t := range per {
		if first || t.Before(min) {
			min = t
			first = false
		}
	}
	return Watermark{Time: min, PerDimension: per}, nil
}
