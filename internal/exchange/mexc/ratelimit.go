package mexc

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between outbound calls. All
// requests of one client share a single limiter, so the throttle applies
// across endpoints.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

// NewRateLimiter creates a limiter with the given minimum interval between calls.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{minInterval: minInterval}
}

// Wait blocks until at least minInterval has elapsed since the previous call.
func (r *RateLimiter) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elapsed := time.Since(r.last); elapsed < r.minInterval {
		time.Sleep(r.minInterval - elapsed)
	}
	r.last = time.Now()
}
