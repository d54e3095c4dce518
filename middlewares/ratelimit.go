package middlewares

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/ratelimit"
)

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// KeyFunc derives the limit key from the request. Defaults to the client IP.
	KeyFunc func(req *internal.Request) string

	// Headers toggles the X-RateLimit-* response headers.
	Headers bool
}

// RateLimitOption configures RateLimitConfig.
type RateLimitOption func(*RateLimitConfig)

// WithRateLimitKey sets the function deriving the limit key.
func WithRateLimitKey(fn func(req *internal.Request) string) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		if fn != nil {
			cfg.KeyFunc = fn
		}
	}
}

// WithoutRateLimitHeaders disables the X-RateLimit-* response headers.
func WithoutRateLimitHeaders() RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.Headers = false
	}
}

// RateLimit returns middleware rejecting requests over the limiter's quota
// with 429 Too Many Requests and a Retry-After header.
//
//	limiter := ratelimit.New(ratelimit.NewRedis(client), 100, time.Minute)
//	reg.Middleware("rate-limit", middlewares.RateLimit(limiter), 500, dispatch.Any("/api/*"))
func RateLimit(limiter *ratelimit.Limiter, opts ...RateLimitOption) internal.Factory {
	cfg := &RateLimitConfig{
		KeyFunc: ClientIP,
		Headers: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.Func(func(ctx context.Context, req *internal.Request, res *internal.Response, _ internal.Args) error {
		result, err := limiter.Allow(ctx, cfg.KeyFunc(req))
		if err != nil {
			return err
		}

		if cfg.Headers {
			res.SetHeader("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			res.SetHeader("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			res.SetHeader("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		}
		if result.Allowed {
			return nil
		}

		// Retry-After is rounded up to whole seconds.
		retry := int64((result.RetryAfter + time.Second - 1) / time.Second)
		res.SetHeader("Retry-After", strconv.FormatInt(retry, 10))
		return internal.ErrTooManyRequests("Too many requests", internal.WithData(map[string]int64{
			"limit":       result.Limit,
			"retry_after": retry,
		}))
	})
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(req *internal.Request) string {
	addr := req.HTTP().RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
