package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// refillInterval is the window both buckets replenish over.
const refillInterval = time.Minute

// RateLimiter limits tokens and requests per minute for one model.
// A nil bucket means that dimension is unlimited.
type RateLimiter struct {
	TokensBucket   *TokenBucket
	RequestsBucket *TokenBucket
}

// Ensure RateLimiter implements Limiter.
var _ Limiter = (*RateLimiter)(nil)

// New creates a limiter with per-minute capacities. Zero disables a dimension.
func New(tokensPerMinute, requestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{}
	if tokensPerMinute > 0 {
		rl.TokensBucket = NewTokenBucket(tokensPerMinute, tokensPerMinute, refillInterval)
	}
	if requestsPerMinute > 0 {
		rl.RequestsBucket = NewTokenBucket(requestsPerMinute, requestsPerMinute, refillInterval)
	}
	return rl
}

// HasCapacity checks if tokens are available WITHOUT consuming them.
func (rl *RateLimiter) HasCapacity(numTokens int) bool {
	return rl.TokensBucket.HasCapacity(numTokens) && rl.RequestsBucket.HasCapacity(1)
}

// TryConsume atomically checks capacity and consumes tokens if available.
// Nothing is consumed unless both buckets have room.
func (rl *RateLimiter) TryConsume(numTokens int) bool {
	if !rl.HasCapacity(numTokens) {
		return false
	}
	return rl.TokensBucket.TryConsume(numTokens) && rl.RequestsBucket.TryConsume(1)
}

// Wait returns the time needed before numTokens could be consumed, applying
// any partial refill.
func (rl *RateLimiter) Wait(tokens int) time.Duration {
	return max(rl.TokensBucket.Wait(tokens), rl.RequestsBucket.Wait(1))
}

// TimeUntilAvailable returns how long until the specified tokens would be available.
// This does not modify state.
func (rl *RateLimiter) TimeUntilAvailable(tokens int) time.Duration {
	return max(rl.TokensBucket.TimeUntilAvailable(tokens), rl.RequestsBucket.TimeUntilAvailable(1))
}

// WaitAndConsume waits until tokens are available (up to maxWait), then consumes them.
// If maxWait is 0, there is no limit on how long to wait.
func (rl *RateLimiter) WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error {
	waitDuration := rl.TimeUntilAvailable(tokens)

	if waitDuration > 0 {
		if maxWait > 0 && waitDuration > maxWait {
			return fmt.Errorf("rate limit wait time %v exceeds max wait %v", waitDuration, maxWait)
		}

		timer := time.NewTimer(waitDuration)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if !rl.TryConsume(tokens) {
		return fmt.Errorf("failed to acquire tokens after waiting")
	}

	return nil
}

// TokenBucket implements a token bucket rate limit algorithm.
type TokenBucket struct {
	mu             sync.Mutex
	capacity       int
	remaining      int
	refillInterval time.Duration
	lastRefill     time.Time
}

// NewTokenBucket creates a new token bucket.
func NewTokenBucket(capacity int, initialTokens int, refillInterval time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:       capacity,
		remaining:      initialTokens,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
	}
}

// HasCapacity checks if tokens are available WITHOUT consuming them.
func (tb *TokenBucket) HasCapacity(tokens int) bool {
	if tb == nil {
		return true
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tokens <= tb.effectiveRemaining(time.Now())
}

// TryConsume atomically checks and consumes tokens.
func (tb *TokenBucket) TryConsume(tokens int) bool {
	if tb == nil {
		return true
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	if tokens <= tb.remaining {
		tb.remaining -= tokens
		return true
	}
	return false
}

// effectiveRemaining includes the partial refill since lastRefill. Caller holds mu.
func (tb *TokenBucket) effectiveRemaining(now time.Time) int {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed >= tb.refillInterval {
		return tb.capacity
	}
	if elapsed <= 0 {
		return tb.remaining
	}
	replenished := int(float64(tb.capacity) * (float64(elapsed) / float64(tb.refillInterval)))
	return min(tb.capacity, tb.remaining+replenished)
}

// refill credits whole tokens earned since lastRefill, advancing lastRefill
// only by the time those tokens account for. Caller holds mu.
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed >= tb.refillInterval {
		tb.remaining = tb.capacity
		tb.lastRefill = now
		return
	}
	earned := tb.effectiveRemaining(now) - tb.remaining
	if earned <= 0 {
		return
	}
	tb.remaining += earned
	if tb.remaining >= tb.capacity {
		tb.lastRefill = now
		return
	}
	perToken := float64(tb.refillInterval) / float64(tb.capacity)
	tb.lastRefill = tb.lastRefill.Add(time.Duration(float64(earned) * perToken))
}

// waitFor converts a token deficit into a duration with a 10% buffer. Caller holds mu.
func (tb *TokenBucket) waitFor(tokens, available int) time.Duration {
	if tokens <= available {
		return 0
	}
	refillRate := float64(tb.capacity) / float64(tb.refillInterval)
	wait := time.Duration(float64(tokens-available) / refillRate)
	return wait + wait/10
}

// TimeUntilAvailable returns how long until tokens would be available (read-only).
func (tb *TokenBucket) TimeUntilAvailable(tokens int) time.Duration {
	if tb == nil {
		return 0
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.waitFor(tokens, tb.effectiveRemaining(time.Now()))
}

// Wait applies the partial refill to the bucket and returns the remaining wait.
func (tb *TokenBucket) Wait(tokens int) time.Duration {
	if tb == nil {
		return 0
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	return tb.waitFor(tokens, tb.remaining)
}
