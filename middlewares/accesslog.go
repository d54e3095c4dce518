package middlewares

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
)

// AccessLog returns a middleware that logs one line per request.
// Register it with a negative priority so it runs after the route:
//
//	reg.Middleware("access-log", middlewares.AccessLog(log), -1000)
//
// Requests that failed are logged by the error handler instead, since
// post-middleware does not run once a stage returned an error.
func AccessLog(log *slog.Logger) internal.Factory {
	return func(r internal.Resolver) (internal.Handler, error) {
		req, err := internal.Resolve[*internal.Request](r, internal.RequestKey)
		if err != nil {
			return nil, err
		}
		res, err := internal.Resolve[*internal.Response](r, internal.ResponseKey)
		if err != nil {
			return nil, err
		}

		h := &accessLog{log: log, req: req, res: res}
		if session, err := internal.Resolve[*internal.Session](r, internal.SessionKey); err == nil {
			h.elapsed = session.Elapsed
		}
		return h, nil
	}
}

type accessLog struct {
	log     *slog.Logger
	req     *internal.Request
	res     *internal.Response
	elapsed func() time.Duration
}

func (h *accessLog) Handle(_ context.Context, _ internal.Args) error {
	ctx := h.req.Context()
	attrs := []slog.Attr{
		slog.String("method", h.req.Method()),
		slog.String("path", h.req.Path()),
		slog.Int("status", h.res.StatusCode()),
		slog.Int64("bytes", h.res.Size()),
	}
	if route := h.res.HandledBy(); route != "" {
		attrs = append(attrs, slog.String("route", route))
	}
	if h.elapsed != nil {
		attrs = append(attrs, slog.Duration("duration", h.elapsed()))
	}
	if id := GetRequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}

	h.log.LogAttrs(ctx, slog.LevelInfo, "request", attrs...)
	return nil
}
