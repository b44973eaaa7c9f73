// Package ratelimit throttles match requests per event.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

// RateLimiter keeps one token bucket per event. Buckets are created on first
// use and dropped by CleanupIdle.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*entry
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perSecond matches per event with the given burst.
// perSecond <= 0 disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*entry),
		now:      time.Now,
	}
}

// Enabled reports whether a limit is configured.
func (r *RateLimiter) Enabled() bool {
	return r != nil && r.limit > 0
}

// CheckMatchLimit consumes one token for event or returns
// domain.ErrRateLimitExceeded.
func (r *RateLimiter) CheckMatchLimit(event domain.Event) error {
	if !r.Enabled() {
		return nil // No limit configured
	}

	now := r.now()
	if !r.limiterFor(event.ID, now).AllowN(now, 1) {
		return domain.ErrRateLimitExceeded.WithError(
			fmt.Errorf("event %s: more than %.2f matches/s", event, float64(r.limit)))
	}
	return nil
}

// ResetLimit drops the bucket of event.
func (r *RateLimiter) ResetLimit(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, event.ID)
}

// CleanupIdle removes buckets unused for longer than idle and returns how many
// were removed.
func (r *RateLimiter) CleanupIdle(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(r.limiters, id)
			removed++
		}
	}
	return removed
}

func (r *RateLimiter) limiterFor(id string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.limiters[id]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[id] = e
	}
	e.lastSeen = now
	return e.limiter
}
