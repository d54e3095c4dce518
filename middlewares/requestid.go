package middlewares

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/logger"
)

// maxRequestIDLen caps IDs accepted from clients.
const maxRequestIDLen = 128

type requestIDKey struct{}

// DefaultRequestIDHeaders are the request headers searched, in order, for an incoming ID.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

type requestIDConfig struct {
	generate       func() string
	responseHeader string
	headers        []string
}

// RequestIDOption configures RequestID.
type RequestIDOption func(*requestIDConfig)

// WithRequestIDHeaders replaces the headers searched for an incoming ID.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(c *requestIDConfig) { c.headers = headers }
}

// WithRequestIDGenerator replaces uuid.NewString as the ID source.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(c *requestIDConfig) {
		if gen != nil {
			c.generate = gen
		}
	}
}

// WithRequestIDResponseHeader sets the response header echoing the ID. Empty disables the echo.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(c *requestIDConfig) { c.responseHeader = header }
}

// RequestID returns a middleware that gives every request an ID, taken from
// the first searched header holding an acceptable value or generated.
// The ID is stored in the request context and echoed in the response.
//
// Give it a high priority so later stages and their logs see the ID:
//
//	reg.Middleware("request-id", middlewares.RequestID(), 1000)
func RequestID(opts ...RequestIDOption) internal.Factory {
	return internal.HTTPMiddleware(RequestIDHandler(opts...))
}

// RequestIDHandler is RequestID as net/http middleware, for example to wrap a whole App.
func RequestIDHandler(opts ...RequestIDOption) func(http.Handler) http.Handler {
	cfg := requestIDConfig{
		generate:       uuid.NewString,
		responseHeader: "X-Request-ID",
		headers:        DefaultRequestIDHeaders,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cfg.incoming(r.Header)
			if id == "" {
				id = cfg.generate()
			}
			if cfg.responseHeader != "" {
				w.Header().Set(cfg.responseHeader, id)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

func (c requestIDConfig) incoming(h http.Header) string {
	for _, name := range c.headers {
		if v := h.Get(name); validRequestID(v) {
			return v
		}
	}
	return ""
}

// validRequestID accepts non-empty printable ASCII up to maxRequestIDLen bytes.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDExtractor adds "request_id" to records logged with a request context.
//
//	log := logger.New(logger.WithExtractors(middlewares.RequestIDExtractor()))
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := GetRequestID(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}
