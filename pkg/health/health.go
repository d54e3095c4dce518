package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 5 * time.Second

// Probe statuses.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// CheckFunc reports a dependency as healthy by returning nil.
type CheckFunc func(ctx context.Context) error

// Check is a named health check. Results are reported in declaration order.
type Check struct {
	Fn    CheckFunc
	Title string
}

// Report is the probe response body.
type Report struct {
	Status string   `json:"status"`
	Checks []Result `json:"checks"`
}

// Result is the outcome of a single check.
type Result struct {
	Title  string `json:"title"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type config struct {
	logger  *slog.Logger
	gate    func() bool
	timeout time.Duration
	verbose bool
}

// Option configures the probe handlers.
type Option func(*config)

// WithTimeout bounds the total time spent running checks.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger logs failing checks.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGate holds the readiness probe at 503 while ready returns false.
func WithGate(ready func() bool) Option {
	return func(c *config) {
		c.gate = ready
	}
}

// WithErrors includes check error messages in the report.
func WithErrors() Option {
	return func(c *config) {
		c.verbose = true
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes checks concurrently and aggregates their results.
// A check that panics or exceeds the timeout is reported as DOWN.
func Run(ctx context.Context, checks []Check, opts ...Option) Report {
	return run(ctx, checks, newConfig(opts...))
}

func run(ctx context.Context, checks []Check, cfg *config) Report {
	report := Report{Status: StatusUp, Checks: make([]Result, len(checks))}
	if len(checks) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	errs := make([]error, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			errs[i] = runOne(ctx, check.Fn)
			return nil
		})
	}
	_ = g.Wait()

	for i, check := range checks {
		res := Result{Title: check.Title, Status: StatusUp}
		if err := errs[i]; err != nil {
			res.Status = StatusDown
			report.Status = StatusDown
			if cfg.verbose {
				res.Error = err.Error()
			}
			cfg.logger.WarnContext(ctx, "health check failed",
				slog.String("check", check.Title),
				slog.String("error", err.Error()),
			)
		}
		report.Checks[i] = res
	}
	return report
}

func runOne(ctx context.Context, fn CheckFunc) (err error) {
	if fn == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- errors.New("health: check panicked")
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		return errors.Join(ErrCheckTimeout, ctx.Err())
	}
}
