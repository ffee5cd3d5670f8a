// Package clients provides rate limiting implementations
package clients

import (
	"sync"
	"sync/atomic"
	"time"

	"context"
)

// NewProviderLimiter creates a rate limiter for a provider from its
// published calls-per-minute limit. A zero or negative limit yields an
// unlimited limiter.
func NewProviderLimiter(callsPerMinute int) RateLimiter {
	if callsPerMinute <= 0 {
		return NewTokenBucketRateLimiter(0, 1)
	}
	// Burst of 1 keeps calls evenly spaced, which is what unknown
	// per-provider concurrency limits require.
	return NewTokenBucketRateLimiter(float64(callsPerMinute)/60.0, 1)
}

// RateLimiter defines the interface for rate limiting implementations.
// It supports immediate checks and blocking waits.
type RateLimiter interface {
	// Allow checks if a request is allowed
	Allow() bool

	// Wait blocks until a request is allowed
	Wait(ctx context.Context) error

	// SetRate updates the rate limit
	SetRate(rate float64)

	// GetStats returns rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats provides detailed statistics about rate limiter
// performance and current state for monitoring and debugging.
type RateLimiterStats struct {
	Rate            float64       `json:"rate"`
	Burst           int           `json:"burst"`
	AllowedRequests int64         `json:"allowed_requests"`
	BlockedRequests int64         `json:"blocked_requests"`
	CurrentTokens   float64       `json:"current_tokens"`
	LastRefill      time.Time     `json:"last_refill"`
	AverageWaitTime time.Duration `json:"average_wait_time"`
}

// TokenBucketRateLimiter implements the token bucket algorithm for rate
// limiting. Tokens are added at a constant rate and consumed by
// requests. A rate of zero disables limiting.
type TokenBucketRateLimiter struct {
	rate     float64
	burst    int
	tokens   float64
	lastTime time.Time

	// Stats
	allowedRequests int64
	blockedRequests int64
	totalWaitTime   int64

	mu sync.Mutex
}

// NewTokenBucketRateLimiter creates a new token bucket rate limiter
// with the specified rate (tokens per second) and burst capacity.
func NewTokenBucketRateLimiter(rate float64, burst int) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		rate:     rate,
		burst:    burst,
		tokens:   float64(burst),
		lastTime: time.Now(),
	}
}

// Allow checks if a request is allowed immediately.
// Returns true if a token is available and consumes it, false otherwise.
func (tb *TokenBucketRateLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.rate <= 0 {
		atomic.AddInt64(&tb.allowedRequests, 1)
		return true
	}

	tb.refill()

	if tb.tokens >= 1.0 {
		tb.tokens--
		atomic.AddInt64(&tb.allowedRequests, 1)
		return true
	}

	atomic.AddInt64(&tb.blockedRequests, 1)
	return false
}

// Wait blocks until a request is allowed
func (tb *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	start := time.Now()

	for {
		tb.mu.Lock()

		if tb.rate <= 0 {
			atomic.AddInt64(&tb.allowedRequests, 1)
			tb.mu.Unlock()
			return nil
		}

		tb.refill()

		if tb.tokens >= 1.0 {
			tb.tokens--
			atomic.AddInt64(&tb.allowedRequests, 1)
			atomic.AddInt64(&tb.totalWaitTime, time.Since(start).Nanoseconds())
			tb.mu.Unlock()
			return nil
		}

		// Calculate wait time
		deficit := 1.0 - tb.tokens
		waitTime := time.Duration(deficit / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		timer := time.NewTimer(waitTime)

		select {
		case <-timer.C:
			continue
		case <-ctx.Done():
			timer.Stop()
			atomic.AddInt64(&tb.blockedRequests, 1)
			return ctx.Err()
		}
	}
}

// refill adds tokens based on elapsed time
func (tb *TokenBucketRateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastTime).Seconds()

	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}

	tb.lastTime = now
}

// SetRate updates the rate limit
func (tb *TokenBucketRateLimiter) SetRate(rate float64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.rate = rate
}

// GetStats returns rate limiter statistics
func (tb *TokenBucketRateLimiter) GetStats() RateLimiterStats {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	allowed := atomic.LoadInt64(&tb.allowedRequests)
	blocked := atomic.LoadInt64(&tb.blockedRequests)
	totalWait := atomic.LoadInt64(&tb.totalWaitTime)

	avgWait := time.Duration(0)
	if allowed > 0 {
		avgWait = time.Duration(totalWait / allowed)
	}

	return RateLimiterStats{
		Rate:            tb.rate,
		Burst:           tb.burst,
		AllowedRequests: allowed,
		BlockedRequests: blocked,
		CurrentTokens:   tb.tokens,
		LastRefill:      tb.lastTime,
		AverageWaitTime: avgWait,
	}
}
