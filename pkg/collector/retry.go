package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines retry behavior for sub-window fetches
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RandomizeFactor float64
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        60 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.25,
	}
}

// ExecuteWithCondition runs a function, retrying with exponential
// backoff only while shouldRetry accepts the error.
func (rp *RetryPolicy) ExecuteWithCondition(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	var lastErr error

	for attempt := 0; attempt < rp.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt == rp.MaxAttempts-1 {
			break
		}

		delay := rp.calculateDelay(attempt)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", rp.MaxAttempts, lastErr)
}

// calculateDelay calculates the delay for a given attempt
func (rp *RetryPolicy) calculateDelay(attempt int) time.Duration {
	// Base delay calculation with exponential backoff
	delay := float64(rp.InitialDelay) * math.Pow(rp.Multiplier, float64(attempt))

	// Apply max delay cap
	if delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}

	// Apply randomization factor (jitter)
	if rp.RandomizeFactor > 0 {
		delta := delay * rp.RandomizeFactor
		minDelay := delay - delta
		maxDelay := delay + delta

		delay = minDelay + (rand.Float64() * (maxDelay - minDelay))
	}

	return time.Duration(delay)
}

// GetDelay returns the delay for a specific attempt (for testing/preview)
func (rp *RetryPolicy) GetDelay(attempt int) time.Duration {
	return rp.calculateDelay(attempt)
}
