// Package dispatch is a declarative HTTP request dispatch engine.
//
// Routes and middleware are declared up front in a [Registry]. Each
// declaration names a [Factory] that builds its [Handler] from the per-request
// dependency scope, and lists the parameters the handler receives as
// positional [Args]. A [Dispatcher] seals the registry and serves requests.
//
// # Declaring Routes
//
//	reg := dispatch.NewRegistry()
//
//	reg.Route("users.show", dispatch.Func(func(ctx context.Context, req *dispatch.Request, res *dispatch.Response, args dispatch.Args) error {
//	    user, err := users.Find(ctx, dispatch.Arg[int64](args, 0))
//	    if err != nil {
//	        return err
//	    }
//	    return res.JSON(http.StatusOK, user)
//	}),
//	    dispatch.Get("/users/{id}"),
//	    dispatch.Path(0, "id", parse.Int64()),
//	    dispatch.Query(1, "fields", parse.Optional(parse.Strings())),
//	)
//
// Routes are matched in registration order; the first one whose method,
// pattern and optional [Match] predicate accept the request handles it.
// Declaring the same route ID twice merges the declarations.
//
// # Middleware
//
// Global middleware runs for every request whose method and path match.
// Priority decides where it runs: zero and above before the route, highest
// first; negative after the route, closest to zero first.
//
//	reg.Middleware("auth", dispatch.Func(authenticate), 100,
//	    dispatch.Any("/api/*"),
//	    dispatch.Header(0, "Authorization", parse.String()),
//	)
//	reg.Middleware("access-log", middlewares.AccessLog(log), -100)
//
// Route middleware is attached with [Use] and runs after global
// pre-middleware, in the listed order. A middleware that writes the response
// ends the request early; post-middleware still runs.
//
// # Pipeline
//
//	scope -> init -> pre-middleware -> route middleware -> route
//	      -> post-middleware -> 404 guard -> error handler -> finalize
//
// Every failure, panic included, is handed to the error handler once. The
// default [Funnel] renders JSON or a minimal HTML page, masks 401 details and
// redacts server errors unless [WithDevelopment] is set.
//
// # Scopes
//
// Each request gets a child [Container] of the root scope, seeded with the
// [Request] and [Response]. A [ScopeInitializer] can bind request-scoped
// services; they never leak into sibling requests.
//
// # Instrumentation
//
// Every stage is timed by a [Session]. Spans can be exported as a
// Server-Timing header, OpenTelemetry spans and Prometheus histograms, and
// requests slower than the configured threshold are logged.
//
// # Running
//
// [App] mounts a dispatcher next to liveness and readiness probes and runs
// the server with graceful shutdown on SIGINT/SIGTERM:
//
//	app := dispatch.NewApp(handler,
//	    dispatch.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
//	err := app.Run(
//	    dispatch.Address(cfg.Address),
//	    dispatch.Logger(log),
//	    dispatch.ShutdownHook(redis.Shutdown(client)),
//	)
package dispatch
