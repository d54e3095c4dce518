package internal

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for slow request warnings and error reporting.
// A *slog.Logger bound on the request scope under LoggerKey takes precedence.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithErrorHandler replaces the default Funnel.
// An ErrorHandler bound on the request scope under ErrorHandlerKey takes precedence.
//
// Example:
//
//	dispatch.WithErrorHandler(func(ctx context.Context, err error, req *dispatch.Request, res *dispatch.Response) error {
//	    return res.Text(http.StatusTeapot, err.Error())
//	})
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.errorHandler = h
		}
	}
}

// WithDevelopment exposes server error messages in error responses.
// Production is the default.
func WithDevelopment(enabled bool) Option {
	return func(d *Dispatcher) {
		d.development = enabled
	}
}

// WithServerTiming attaches a Server-Timing header with the recorded spans to
// responses that have not been sent when the pipeline finishes.
func WithServerTiming(enabled bool) Option {
	return func(d *Dispatcher) {
		d.serverTiming = enabled
	}
}

// WithSlowThreshold sets the duration above which a request is logged as slow.
// Defaults to 300ms.
func WithSlowThreshold(threshold time.Duration) Option {
	return func(d *Dispatcher) {
		if threshold > 0 {
			d.slowThreshold = threshold
		}
	}
}

// WithBodyLimit sets the maximum accepted request body size in bytes.
// Defaults to 10MB.
func WithBodyLimit(limit int64) Option {
	return func(d *Dispatcher) {
		if limit > 0 {
			d.bodyLimit = limit
		}
	}
}

// WithTracer mirrors pipeline spans as OpenTelemetry spans.
//
// Example:
//
//	dispatch.WithTracer(otel.Tracer("dispatch"))
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// WithMetrics exports stage durations and request counts.
//
// Example:
//
//	m, err := dispatch.NewMetrics(prometheus.DefaultRegisterer)
//	if err != nil { ... }
//	dispatch.NewDispatcher(reg, root, nil, dispatch.WithMetrics(m))
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}
