package worker

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles article processing so a large import does not saturate
// the store
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter. A non-positive rate means unlimited.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the next unit of work may start
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether work may start now without waiting
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Unlimited reports whether the limiter never blocks
func (l *Limiter) Unlimited() bool {
	return l.limiter.Limit() == rate.Inf
}

// WaitWithDelay waits for clearance and then for an additional fixed delay
func (l *Limiter) WaitWithDelay(ctx context.Context, additionalDelay time.Duration) error {
	if err := l.Wait(ctx); err != nil {
		return err
	}

	if additionalDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(additionalDelay):
		}
	}

	return nil
}
