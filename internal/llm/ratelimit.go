package llm

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces a requests-per-minute ceiling on calls to a single
// provider, adapted from the teacher's internal/server/ratelimit.go
// (simplified from its per-user multi-quota tracker to one shared counter,
// since GIANT has one LLM provider per run, not per-request users). Calls
// are counted in fixed one-minute windows: the count resets only once a
// full minute has passed since the window opened, with no gradual refill,
// so up to twice the limit can pass across a window boundary.
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	windowStart       time.Time
	windowCount       int
}

// NewRateLimiter constructs a limiter; requestsPerMinute <= 0 disables
// limiting.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{requestsPerMinute: requestsPerMinute, windowStart: time.Now()}
}

// RateLimitError reports that the per-minute budget has been exhausted.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("llm: rate limit exceeded (limit: %d/min, retry after: %v)", e.Limit, e.RetryAfter)
}

// Allow checks whether a call may proceed now, incrementing the window
// counter if so.
func (rl *RateLimiter) Allow() error {
	if rl.requestsPerMinute <= 0 {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.windowStart) >= time.Minute {
		rl.windowStart = now
		rl.windowCount = 0
	}
	if rl.windowCount >= rl.requestsPerMinute {
		return &RateLimitError{Limit: rl.requestsPerMinute, RetryAfter: time.Minute - now.Sub(rl.windowStart)}
	}
	rl.windowCount++
	return nil
}
