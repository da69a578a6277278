// Package ratelimit throttles requests to remote stores.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces requests to one remote endpoint. Besides the steady rate it
// honours pauses requested by the server, e.g. through a Retry-After header.
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu        sync.Mutex
	notBefore time.Time
}

// New creates a limiter allowing requestsPerSecond, with bursts up to the same size.
// Non-positive rates are raised to one request per second.
func New(name string, requestsPerSecond int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		name:    name,
	}
}

// Wait blocks until a pause has passed and the rate allows another request.
// Returns an error if the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if d := l.pauseRemaining(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit wait for %s: %w", l.name, ctx.Err())
		case <-timer.C:
		}
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Pause holds back further requests for d. A shorter pause never cuts an existing one short.
func (l *Limiter) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if until := time.Now().Add(d); until.After(l.notBefore) {
		l.notBefore = until
	}
}

func (l *Limiter) pauseRemaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Until(l.notBefore)
}

// Limit returns the steady rate in requests per second
func (l *Limiter) Limit() float64 {
	return float64(l.limiter.Limit())
}

// Name returns the name of this rate limiter.
func (l *Limiter) Name() string {
	return l.name
}
