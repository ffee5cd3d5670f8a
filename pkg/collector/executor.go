package collector

import (
	"context"

	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/clients"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/errors"
)

// FetchFunc performs the fetch-normalize-write cycle for one sub-window
type FetchFunc func(ctx context.Context, w Window) error

// ExecutionReport is the outcome of walking a window plan
type ExecutionReport struct {
	Failures     []WindowFailure
	NotAttempted []Window
	Fatal        error
}

// Executor walks sub-windows sequentially, pacing requests through the
// provider rate limiter and retrying transient failures.
type Executor struct {
	limiter clients.RateLimiter
	retry   *RetryPolicy
	logger  *zap.Logger
}

// NewExecutor builds an executor from the reliability section of the config
func NewExecutor(cfg *config.Config, limiter clients.RateLimiter, logger *zap.Logger) *Executor {
	return &Executor{
		limiter: limiter,
		retry: &RetryPolicy{
			MaxAttempts:     cfg.Reliability.RetryAttempts,
			InitialDelay:    cfg.Reliability.RetryDelay,
			MaxDelay:        cfg.Reliability.MaxRetryDelay,
			Multiplier:      cfg.Reliability.RetryMultiplier,
			RandomizeFactor: 0.25,
		},
		logger: logger,
	}
}

// Execute runs fn over each window in order. A failed window does not
// stop the walk unless storage became unavailable or the run deadline
// passed. Cancellation leaves the remaining windows not-attempted.
func (e *Executor) Execute(ctx context.Context, windows []Window, fn FetchFunc) ExecutionReport {
	var report ExecutionReport

	for i, w := range windows {
		select {
		case <-ctx.Done():
			report.NotAttempted = append(report.NotAttempted, windows[i:]...)
			if ctx.Err() == context.DeadlineExceeded {
				report.Fatal = errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "run deadline exceeded")
			}
			return report
		default:
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				report.NotAttempted = append(report.NotAttempted, windows[i:]...)
				return report
			}
		}

		err := e.retry.ExecuteWithCondition(ctx, func() error {
			return fn(ctx, w)
		}, errors.IsRetryable)
		if err == nil {
			continue
		}

		e.logger.Warn("sub-window failed",
			zap.String("window", w.String()),
			zap.Error(err))
		report.Failures = append(report.Failures, WindowFailure{Window: w, Err: err})

		if errors.IsType(err, errors.ErrorTypeStorageUnavailable) {
			report.Fatal = err
			if i+1 < len(windows) {
				report.NotAttempted = append(report.NotAttempted, windows[i+1:]...)
			}
			return report
		}
	}

	return report
}
