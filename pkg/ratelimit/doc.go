// Package ratelimit implements fixed-window request counting.
//
// A Limiter allows at most Limit hits per key within each Window. Counters
// live in a Store: Memory for single instances, Redis when several instances
// share the budget.
//
//	limiter := ratelimit.New(ratelimit.NewRedis(client, ratelimit.WithPrefix("api")), 100, time.Minute)
//	res, err := limiter.Allow(ctx, clientIP)
//	if err == nil && !res.Allowed {
//	    // reject, retry after res.RetryAfter
//	}
package ratelimit
