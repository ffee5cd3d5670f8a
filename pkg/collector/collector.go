// Package collector implements the incremental collection engine:
// resolve the sink watermark, plan contiguous sub-windows, fetch and
// normalize each window through a provider adapter, compute derived
// percent changes, and commit idempotent upserts. One run per series.
package collector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/clients"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/logger"
	"github.com/quantfold/harvest/pkg/metrics"
	"github.com/quantfold/harvest/pkg/models"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
	"github.com/quantfold/harvest/pkg/store"
)

// Collector drives one series through a full collection cycle
type Collector struct {
	series   *series.Series
	adapter  source.Adapter
	storage  Storage
	cfg      *config.Config
	resolver *Resolver
	executor *Executor
	calc     *Calculator
	metrics  *metrics.Collector
	log      *zap.Logger

	// now is swappable for deterministic window planning in tests
	now func() time.Time
}

// New wires a collector for one series. The provider's declared rate
// limit tightens the configured one when it is stricter.
func New(s *series.Series, adapter source.Adapter, storage Storage, cfg *config.Config, log *zap.Logger) *Collector {
	cpm := effectiveCallsPerMinute(cfg.Reliability.CallsPerMinute, adapter.Constraints().CallsPerMinute)
	limiter := clients.NewProviderLimiter(cpm)

	return &Collector{
		series:   s,
		adapter:  adapter,
		storage:  storage,
		cfg:      cfg,
		resolver: NewResolver(storage, log),
		executor: NewExecutor(cfg, limiter, log),
		calc:     NewCalculator(storage, log),
		metrics:  metrics.NewCollector(adapter.Name(), cfg.Name),
		log:      log,
		now:      time.Now,
	}
}

// Series returns the series definition this collector is bound to
func (c *Collector) Series() *series.Series {
	return c.series
}

// Provider returns the upstream provider name
func (c *Collector) Provider() string {
	return c.adapter.Name()
}

// Collect runs one collection cycle. It never returns an error: every
// outcome including total failure is folded into the result so callers
// can run many collectors and aggregate.
func (c *Collector) Collect(ctx context.Context) *CollectionResult {
	started := time.Now()
	res := &CollectionResult{Series: c.series.Key, Status: StatusOK}

	ctx = context.WithValue(ctx, logger.RunIDKey, uuid.New().String())
	ctx = context.WithValue(ctx, logger.SeriesKey, c.series.Key)
	ctx = context.WithValue(ctx, logger.ProviderKey, c.adapter.Name())

	if c.cfg.Timeouts.Run > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeouts.Run)
		defer cancel()
	}

	log := logger.WithContext(ctx)

	wm, err := c.resolver.Resolve(ctx, c.series)
	if err != nil {
		log.Error("watermark resolution failed", zap.Error(err))
		return c.finish(res, StatusFailed, err, started)
	}

	windows := Plan(wm, c.now(), c.adapter.Constraints(), c.series)
	if len(windows) == 0 {
		log.Info("no new data to collect",
			zap.Time("watermark", wm.Time),
			zap.Bool("empty", wm.Empty))
		return c.finish(res, StatusNoNewData, nil, started)
	}

	// Each sub-window costs at least one provider call; windows past
	// the daily quota are deferred to the next run, which resumes from
	// the advanced watermark.
	if quota := c.adapter.Constraints().CallsPerDay; quota > 0 && len(windows) > quota {
		res.NotAttempted = append(res.NotAttempted, windows[quota:]...)
		windows = windows[:quota]
		log.Warn("window plan exceeds daily call quota",
			zap.Int("quota", quota),
			zap.Int("deferred", len(res.NotAttempted)))
	}

	log.Info("planned collection windows",
		zap.Int("windows", len(windows)),
		zap.String("first", windows[0].String()),
		zap.String("last", windows[len(windows)-1].String()))

	report := c.executor.Execute(ctx, windows, func(ctx context.Context, w Window) error {
		return c.collectWindow(ctx, w, res)
	})

	res.Failures = report.Failures
	res.NotAttempted = append(res.NotAttempted, report.NotAttempted...)
	for range report.Failures {
		c.metrics.SubWindowFailed()
	}

	switch {
	case report.Fatal != nil && !res.Committed():
		return c.finish(res, StatusFailed, report.Fatal, started)
	case report.Fatal != nil || len(report.Failures) > 0:
		return c.finish(res, StatusPartialFailure, report.Fatal, started)
	default:
		return c.finish(res, StatusOK, nil, started)
	}
}

// collectWindow runs fetch, normalize, clip, dedupe, derive, and
// upsert for one sub-window, accumulating counts into the run result.
func (c *Collector) collectWindow(ctx context.Context, w Window, res *CollectionResult) error {
	log := logger.WithContext(ctx).With(zap.String("window", w.String()))

	fetchStart := time.Now()
	raw, err := c.adapter.Fetch(ctx, w.Start, w.End)
	c.metrics.RequestObserved(time.Since(fetchStart))
	if err != nil {
		return err
	}

	nr := c.adapter.Normalize(raw, c.series)
	obs := clip(nr.Observations, w)
	clipped := len(nr.Observations) - len(obs)
	obs = models.DedupeObservations(obs)

	res.RecordsFetched += len(obs)
	res.RecordsDropped += nr.Dropped
	c.metrics.Fetched(len(obs))
	for reason, n := range nr.DropReasons {
		c.metrics.Dropped(n, reason)
	}

	if len(obs) == 0 {
		log.Debug("window produced no observations",
			zap.Int("raw_rows", len(raw)),
			zap.Int("dropped", nr.Dropped))
		return nil
	}

	if err := c.calc.Apply(ctx, c.series, obs); err != nil {
		return err
	}

	written, err := c.storage.Upsert(ctx, store.UpsertBatch{
		Table:           c.series.Table,
		DateColumn:      c.series.DateColumn,
		DimensionColumn: c.series.DimensionColumn,
		Rows:            obs,
	})
	if err != nil {
		return err
	}

	res.RecordsWritten += written
	c.metrics.Written(written, c.storage.Dry())

	log.Info("window committed",
		zap.Int("records", written),
		zap.Int("dropped", nr.Dropped),
		zap.Int("clipped", clipped))
	return nil
}

// Recompute rebuilds every derived field of the series from stored
// history, independent of any watermark.
func (c *Collector) Recompute(ctx context.Context) *CollectionResult {
	started := time.Now()
	res := &CollectionResult{Series: c.series.Key, Status: StatusOK}

	ctx = context.WithValue(ctx, logger.SeriesKey, c.series.Key)
	ctx = context.WithValue(ctx, logger.ProviderKey, c.adapter.Name())

	n, err := c.calc.Recompute(ctx, c.series)
	if err != nil {
		logger.WithContext(ctx).Error("recompute failed", zap.Error(err))
		return c.finish(res, StatusFailed, err, started)
	}

	res.RecordsWritten = n
	c.metrics.Written(n, c.storage.Dry())
	return c.finish(res, StatusOK, nil, started)
}

func (c *Collector) finish(res *CollectionResult, status Status, err error, started time.Time) *CollectionResult {
	res.Status = status
	res.Err = err
	res.Elapsed = time.Since(started)
	c.metrics.RunCompleted(string(status), res.Elapsed)

	c.log.Info("collection run finished",
		zap.String("series", res.Series),
		zap.String("status", string(status)),
		zap.Int("fetched", res.RecordsFetched),
		zap.Int("written", res.RecordsWritten),
		zap.Int("dropped", res.RecordsDropped),
		zap.Int("failed_windows", len(res.Failures)),
		zap.Int("not_attempted", len(res.NotAttempted)),
		zap.Duration("elapsed", res.Elapsed))
	return res
}

// clip discards observations outside the inclusive window. Providers
// that ignore range parameters can over-return without double-writing.
func clip(obs []*models.Observation, w Window) []*models.Observation {
	kept := obs[:0:0]
	for _, o := range obs {
		if o.Date.Before(w.Start) || o.Date.After(w.End) {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

func effectiveCallsPerMinute(configured, declared int) int {
	if declared > 0 && (configured <= 0 || declared < configured) {
		return declared
	}
	return configured
}
