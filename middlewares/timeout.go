package middlewares

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/logger"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// TimeoutError reports a request that ran past its deadline.
// It renders as 504 GatewayTimeout and matches context.DeadlineExceeded.
type TimeoutError struct {
	Duration time.Duration // the timeout that was exceeded
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s", e.Duration)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

func (e *TimeoutError) StatusCode() int { return http.StatusGatewayTimeout }

func (e *TimeoutError) ErrorName() string { return "GatewayTimeout" }

// IsTimeoutError returns true if the error is a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// AsTimeoutError extracts the TimeoutError from an error if present.
func AsTimeoutError(err error) (*TimeoutError, bool) {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

type timeoutConfig struct {
	logger  *slog.Logger
	timeout time.Duration
}

// TimeoutOption configures Timeout.
type TimeoutOption func(*timeoutConfig)

// WithTimeoutLogger logs a warning for every request that timed out.
func WithTimeoutLogger(log *slog.Logger) TimeoutOption {
	return func(c *timeoutConfig) {
		if log != nil {
			c.logger = log
		}
	}
}

// Timeout returns a middleware putting a deadline on the request context for
// every later stage. The deadline is cancelled once those stages finished.
// When a later stage fails because the deadline passed, the request fails
// with a *TimeoutError instead.
//
// Handlers keep running past the deadline unless they watch ctx.Done().
// A non-positive timeout selects DefaultTimeout.
//
//	reg.Middleware("timeout", middlewares.Timeout(5*time.Second), 950)
func Timeout(timeout time.Duration, opts ...TimeoutOption) internal.Factory {
	cfg := timeoutConfig{
		logger:  logger.NewNope(),
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timeout <= 0 {
		cfg.timeout = DefaultTimeout
	}

	return internal.Func(func(ctx context.Context, req *internal.Request, _ *internal.Response, _ internal.Args) error {
		te := &TimeoutError{Duration: cfg.timeout}
		deadline, cancel := context.WithTimeoutCause(req.Context(), cfg.timeout, te)
		defer cancel()
		req.SetContext(deadline)

		err := internal.Next(ctx)
		if err == nil || !errors.Is(err, context.DeadlineExceeded) || context.Cause(deadline) != te {
			return err
		}

		cfg.logger.WarnContext(deadline, "request timeout",
			slog.String("method", req.Method()),
			slog.String("path", req.Path()),
			slog.Duration("timeout", cfg.timeout),
		)
		return te
	})
}
