package ratelimit

import (
	"context"
	"time"
)

// Store counts hits per key within a fixed window.
type Store interface {
	// Increment adds one hit to key and returns the count in the current
	// window together with the time the window resets.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Result describes a single rate limit decision.
type Result struct {
	ResetAt    time.Time
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
	Allowed    bool
}

// Limiter enforces Limit hits per Window for each key.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// New creates a limiter over store.
func New(store Store, limit int64, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if l.limit <= 0 || l.window <= 0 {
		return Result{}, ErrInvalidConfig
	}

	count, resetAt, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		ResetAt:   resetAt,
		Allowed:   count <= l.limit,
	}
	if !res.Allowed {
		res.RetryAfter = max(time.Until(resetAt), 0)
	}
	return res, nil
}
