package internal

import (
	"net"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/dispatch/pkg/health"
)

// Default probe paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// App serves a dispatcher next to health probes and an optional metrics
// endpoint, and owns the server lifecycle. The readiness probe answers 503
// until startup hooks have finished.
type App struct {
	router        chi.Router
	handler       http.Handler
	gatherer      prometheus.Gatherer
	ready         *atomic.Bool
	livenessPath  string
	readinessPath string
	metricsPath   string
	middlewares   []func(http.Handler) http.Handler
	checks        []health.Check
	healthOpts    []health.Option
}

// AppOption configures an App.
type AppOption func(*App)

// WithHealthPaths overrides the probe paths. Empty values keep the defaults.
func WithHealthPaths(liveness, readiness string) AppOption {
	return func(a *App) {
		if liveness != "" {
			a.livenessPath = liveness
		}
		if readiness != "" {
			a.readinessPath = readiness
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel on every readiness probe.
//
// Example:
//
//	dispatch.WithReadinessCheck("redis", redis.Healthcheck(client))
func WithReadinessCheck(title string, fn health.CheckFunc) AppOption {
	return func(a *App) {
		a.checks = append(a.checks, health.Check{Title: title, Fn: fn})
	}
}

// WithHealthOptions passes options to the readiness probe.
func WithHealthOptions(opts ...health.Option) AppOption {
	return func(a *App) {
		a.healthOpts = append(a.healthOpts, opts...)
	}
}

// WithMetricsEndpoint exposes g at path in the Prometheus text format.
// A nil gatherer uses prometheus.DefaultGatherer.
func WithMetricsEndpoint(path string, g prometheus.Gatherer) AppOption {
	return func(a *App) {
		if g == nil {
			g = prometheus.DefaultGatherer
		}
		a.metricsPath = path
		a.gatherer = g
	}
}

// WithHTTPMiddleware wraps the whole App, probes included, with net/http middleware.
//
// Example:
//
//	dispatch.WithHTTPMiddleware(middleware.RealIP, middleware.Compress(5))
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) AppOption {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// NewApp mounts handler, usually a Dispatcher, under "/".
func NewApp(handler http.Handler, opts ...AppOption) *App {
	a := &App{
		router:        chi.NewRouter(),
		handler:       handler,
		ready:         new(atomic.Bool),
		livenessPath:  defaultLivenessPath,
		readinessPath: defaultReadinessPath,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.setupRoutes()
	return a
}

func (a *App) setupRoutes() {
	for _, mw := range a.middlewares {
		a.router.Use(mw)
	}

	a.router.Get(a.livenessPath, health.LivenessHandler())
	a.router.Get(a.readinessPath, health.ReadinessHandler(a.checks,
		append([]health.Option{health.WithGate(a.Ready)}, a.healthOpts...)...))

	if a.metricsPath != "" {
		a.router.Handle(a.metricsPath, promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}

	if a.handler != nil {
		a.router.Handle("/*", a.handler)
	}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Ready reports whether startup finished.
func (a *App) Ready() bool {
	return a.ready.Load()
}

// SetReady opens or closes the readiness gate. Run opens it after the
// startup hooks succeed and closes it when shutdown begins.
func (a *App) SetReady(ready bool) {
	a.ready.Store(ready)
}

// Run starts the HTTP server and blocks until shutdown.
//
// Example:
//
//	err := app.Run(
//	    dispatch.Address(cfg.Address),
//	    dispatch.Logger(log),
//	    dispatch.ShutdownHook(redis.Shutdown(client)),
//	)
func (a *App) Run(opts ...RunOption) error {
	return runServer(runtimeConfig{
		runConfig: buildRunConfig(opts...),
		handler:   a,
		onReady:   func(net.Addr) { a.SetReady(true) },
		onStop:    func() { a.SetReady(false) },
	})
}
