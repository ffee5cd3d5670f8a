package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/errors"
)

func testConfig() *config.Config {
	cfg := config.NewConfig("test", "fake")
	cfg.Reliability.RetryAttempts = 3
	cfg.Reliability.RetryDelay = time.Millisecond
	cfg.Reliability.MaxRetryDelay = 5 * time.Millisecond
	cfg.Reliability.CallsPerMinute = 0
	return cfg
}

func testWindows(n int) []Window {
	windows := make([]Window, n)
	start := day(2026, time.January, 1)
	for i := range windows {
		windows[i] = Window{Start: start, End: start.AddDate(0, 0, 6)}
		start = start.AddDate(0, 0, 7)
	}
	return windows
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zaptest.NewLogger(t))

	calls := 0
	report := e.Execute(context.Background(), testWindows(1), func(ctx context.Context, w Window) error {
		calls++
		if calls < 3 {
			return errors.New(errors.ErrorTypeSourceUnavailable, "upstream hiccup")
		}
		return nil
	})

	assert.Equal(t, 3, calls)
	assert.Empty(t, report.Failures)
	assert.Nil(t, report.Fatal)
}

func TestExecuteDoesNotRetryPermanentFailures(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zaptest.NewLogger(t))

	calls := 0
	report := e.Execute(context.Background(), testWindows(1), func(ctx context.Context, w Window) error {
		calls++
		return errors.New(errors.ErrorTypeMalformedResponse, "unexpected payload shape")
	})

	assert.Equal(t, 1, calls)
	require.Len(t, report.Failures, 1)
	assert.True(t, errors.IsType(report.Failures[0].Err, errors.ErrorTypeMalformedResponse))
	assert.Nil(t, report.Fatal)
}

func TestExecuteContinuesPastFailedWindow(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zaptest.NewLogger(t))
	windows := testWindows(3)

	var attempted []Window
	report := e.Execute(context.Background(), windows, func(ctx context.Context, w Window) error {
		attempted = append(attempted, w)
		if w.Start.Equal(windows[1].Start) {
			return errors.New(errors.ErrorTypeMalformedResponse, "bad window")
		}
		return nil
	})

	assert.Len(t, attempted, 3)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, windows[1], report.Failures[0].Window)
	assert.Empty(t, report.NotAttempted)
	assert.Nil(t, report.Fatal)
}

func TestExecuteAbortsWhenStorageGoesAway(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zaptest.NewLogger(t))
	windows := testWindows(3)

	calls := 0
	report := e.Execute(context.Background(), windows, func(ctx context.Context, w Window) error {
		calls++
		return errors.New(errors.ErrorTypeStorageUnavailable, "pool closed")
	})

	assert.Equal(t, 1, calls)
	require.NotNil(t, report.Fatal)
	assert.True(t, errors.IsType(report.Fatal, errors.ErrorTypeStorageUnavailable))
	require.Len(t, report.Failures, 1)
	assert.Equal(t, windows[1:], report.NotAttempted)
}

func TestExecuteCancellationLeavesWindowsNotAttempted(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zaptest.NewLogger(t))
	windows := testWindows(3)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	report := e.Execute(ctx, windows, func(ctx context.Context, w Window) error {
		calls++
		cancel()
		return nil
	})

	assert.Equal(t, 1, calls)
	assert.Nil(t, report.Fatal)
	assert.Empty(t, report.Failures)
	assert.Equal(t, windows[1:], report.NotAttempted)
}

func TestExecuteDeadlineIsFatal(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zaptest.NewLogger(t))
	windows := testWindows(2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	report := e.Execute(ctx, windows, func(ctx context.Context, w Window) error {
		<-ctx.Done()
		return nil
	})

	require.NotNil(t, report.Fatal)
	assert.True(t, errors.IsType(report.Fatal, errors.ErrorTypeTimeout))
	assert.Equal(t, windows[1:], report.NotAttempted)
}

func TestRetryPolicyDelaysGrow(t *testing.T) {
	rp := &RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 100*time.Millisecond, rp.GetDelay(0))
	assert.Equal(t, 200*time.Millisecond, rp.GetDelay(1))
	assert.Equal(t, 400*time.Millisecond, rp.GetDelay(2))
	// Capped
	assert.Equal(t, time.Second, rp.GetDelay(5))
}
