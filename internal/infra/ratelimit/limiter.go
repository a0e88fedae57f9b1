package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one rate-limit check, with the counters the
// HTTP layer exposes as RateLimit-* headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter applies a fixed-window counter per key. Implementations must be
// safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}
