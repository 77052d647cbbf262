// Package ratelimiter provides per-model admission control for generation
// requests. Limiters never retry a request; they only decide whether one may
// start.
package ratelimiter

import (
	"context"
	"time"
)

// Limiter admits requests against a token and request budget. Each call to a
// consuming method accounts for one request of the given token cost.
type Limiter interface {
	// TryConsume admits the request now or reports false without side effects.
	TryConsume(cost int) bool

	// TimeUntilAvailable estimates when a request of cost would be admitted.
	TimeUntilAvailable(cost int) time.Duration

	// WaitAndConsume blocks until the request is admitted. It gives up when
	// ctx ends or the estimated wait exceeds maxWait (zero waits forever).
	WaitAndConsume(ctx context.Context, cost int, maxWait time.Duration) error
}
