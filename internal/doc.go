// Package internal implements the dispatch engine. Import
// "github.com/dmitrymomot/dispatch" instead, which re-exports the public API.
//
// # Declarations
//
// A Registry collects route, middleware and parameter declarations keyed by
// handler ID. Declarations for the same route ID merge, so a route's method,
// path, cache policy and parameters may be declared in any order:
//
//	reg := dispatch.NewRegistry()
//	reg.Route("users.show", showUser,
//	    dispatch.Get("/users/{id}"),
//	    dispatch.Path(0, "id", parse.Int64()),
//	    dispatch.Cache(dispatch.CachePrivate, time.Minute),
//	)
//	reg.Middleware("request-id", middlewares.RequestID(), 100)
//
// Middleware with priority >= 0 runs before routing, highest first; negative
// priorities run after the route. Route middleware attached with Use runs in
// declared order between routing and the handler.
//
// # Pipeline
//
// A Dispatcher seals the registry and serves requests:
//
//	scope creation -> scope initializer -> pre-middleware -> route match
//	-> cache policy -> route middleware -> parameter binding -> handler
//	-> post-middleware -> not-found guard -> error funnel -> finalization
//
// Every request gets a child Container of the root scope holding the Request,
// Response and instrumentation Session. Handlers are built per request by
// their Factory from that scope. Errors and panics from any stage reach the
// error handler exactly once; the default Funnel renders them as JSON or a
// small HTML page.
//
// # Instrumentation
//
// Each stage is timed as a Span. Requests slower than the threshold are
// logged with a breakdown, spans can be exposed as a Server-Timing header,
// mirrored to an OpenTelemetry tracer and exported as Prometheus metrics.
package internal
