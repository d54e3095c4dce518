package internal

import (
	"context"
	"net/http"
)

// HTTPMiddleware adapts net/http middleware for use as a dispatch middleware.
//
// When the wrapped middleware calls next, the rest of the pipeline runs right
// there, with the request and the response writer next received. Context
// values, deadlines, header changes and writer wrappers therefore apply to
// every later stage, and deferred calls in the middleware run after them.
// Failures of later stages that write through a wrapped writer are rendered
// through that writer. A middleware that writes a response instead of calling
// next absorbs the request.
//
// Used as a route handler, reaching next only adopts the request.
//
// Example:
//
//	reg.Middleware("real-ip", dispatch.HTTPMiddleware(middleware.RealIP), 100)
func HTTPMiddleware(mw func(http.Handler) http.Handler) Factory {
	return Func(func(ctx context.Context, req *Request, res *Response, _ Args) error {
		k := continuationFrom(ctx)
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if k == nil {
				req.replace(r)
				return
			}
			_ = k.run(w, r)
		})
		mw(next).ServeHTTP(res.Writer(), req.HTTP())
		if k != nil {
			k.wait()
		}
		return nil
	})
}
