package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/health"
)

// Type aliases - public API
type (
	// Registry holds route, middleware and parameter declarations.
	Registry = internal.Registry

	// RouteDeclaration is the stored metadata of a route handler.
	RouteDeclaration = internal.RouteDeclaration

	// MiddlewareDeclaration is the stored metadata of a global middleware.
	MiddlewareDeclaration = internal.MiddlewareDeclaration

	// MiddlewareRef attaches a middleware to a single route.
	MiddlewareRef = internal.MiddlewareRef

	// ParameterDeclaration binds one positional argument to a request value.
	ParameterDeclaration = internal.ParameterDeclaration

	// DeclOption configures a route or middleware declaration.
	DeclOption = internal.DeclOption

	// Method is the HTTP method a declaration applies to.
	Method = internal.Method

	// Source identifies where a parameter value is read from.
	Source = internal.Source

	// Parser coerces and validates a raw parameter value.
	Parser = internal.Parser

	// Args holds bound parameters in positional order.
	Args = internal.Args

	// Handler is the unit of work invoked for routes and middleware.
	Handler = internal.Handler

	// Factory builds a Handler against the request scope.
	Factory = internal.Factory

	// HandlerFunc is a function form of Handler.
	HandlerFunc = internal.HandlerFunc

	// Base gives handler structs access to the request and response.
	Base = internal.Base

	// ErrorHandler translates a pipeline failure into a response.
	ErrorHandler = internal.ErrorHandler

	// ScopeInitializer binds request-scoped services before middleware runs.
	ScopeInitializer = internal.ScopeInitializer

	// Container is a dependency scope.
	Container = internal.Container

	// Resolver is the read side of a scope handed to factories.
	Resolver = internal.Resolver

	// Provider builds a bound value on demand.
	Provider = internal.Provider

	// Token is a unique binding key.
	Token = internal.Token

	// Request is the request side of a dispatched request.
	Request = internal.Request

	// Response is the response side of a dispatched request.
	Response = internal.Response

	// ResponseWriter tracks whether the response has been committed.
	ResponseWriter = internal.ResponseWriter

	// CacheKind names a Cache-Control policy.
	CacheKind = internal.CacheKind

	// CachePolicy is a Cache-Control policy with an optional max age.
	CachePolicy = internal.CachePolicy

	// Dispatcher runs the request pipeline.
	Dispatcher = internal.Dispatcher

	// Option configures a Dispatcher.
	Option = internal.Option

	// Session records the timing spans of one request.
	Session = internal.Session

	// SessionOption configures a Session.
	SessionOption = internal.SessionOption

	// Span is one timed pipeline stage.
	Span = internal.Span

	// Metrics exports pipeline timings to Prometheus.
	Metrics = internal.Metrics

	// Funnel is the default error handler.
	Funnel = internal.Funnel

	// ErrorLogger receives failures that must reach operators.
	ErrorLogger = internal.ErrorLogger

	// ErrorPayload is the wire representation of a failed request.
	ErrorPayload = internal.ErrorPayload

	// HTTPError is an error with an HTTP status code.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// ValidationError reports a parameter that could not be bound.
	ValidationError = internal.ValidationError

	// ValidationReason tells a missing parameter from a malformed one.
	ValidationReason = internal.ValidationReason

	// PanicError wraps a value recovered from a panicking stage.
	PanicError = internal.PanicError

	// App serves a dispatcher next to health probes and owns the server lifecycle.
	App = internal.App

	// AppOption configures an App.
	AppOption = internal.AppOption

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// Hook is a startup or shutdown callback.
	Hook = internal.Hook
)

// Methods
const (
	MethodGet    = internal.MethodGet
	MethodPost   = internal.MethodPost
	MethodPut    = internal.MethodPut
	MethodDelete = internal.MethodDelete
	MethodPatch  = internal.MethodPatch
	MethodHead   = internal.MethodHead
	MethodAll    = internal.MethodAll
)

// Parameter sources
const (
	SourceQuery    = internal.SourceQuery
	SourceQueryAll = internal.SourceQueryAll
	SourcePath     = internal.SourcePath
	SourceBody     = internal.SourceBody
	SourceBodyAll  = internal.SourceBodyAll
	SourceHeader   = internal.SourceHeader
	SourceCookie   = internal.SourceCookie
)

// Cache policies
const (
	CacheNoStore   = internal.CacheNoStore
	CacheNoCache   = internal.CacheNoCache
	CachePrivate   = internal.CachePrivate
	CachePublic    = internal.CachePublic
	CacheImmutable = internal.CacheImmutable
)

// Validation reasons
const (
	ReasonMissing   = internal.ReasonMissing
	ReasonMalformed = internal.ReasonMalformed
)

// Span groups
const (
	GroupIoC          = internal.GroupIoC
	GroupGlobal       = internal.GroupGlobal
	GroupMiddleware   = internal.GroupMiddleware
	GroupRoute        = internal.GroupRoute
	GroupErrorHandler = internal.GroupErrorHandler
)

// Well-known scope keys
var (
	RequestKey      = internal.RequestKey
	ResponseKey     = internal.ResponseKey
	SessionKey      = internal.SessionKey
	ErrorHandlerKey = internal.ErrorHandlerKey
	LoggerKey       = internal.LoggerKey
	ErrorLoggerKey  = internal.ErrorLoggerKey
)

// Errors
var (
	ErrInvalidRegistry = internal.ErrInvalidRegistry
	ErrRegistrySealed  = internal.ErrRegistrySealed
	ErrInvalidPattern  = internal.ErrInvalidPattern
	ErrScopeClosed     = internal.ErrScopeClosed
	ErrNotBound        = internal.ErrNotBound
	ErrWrongType       = internal.ErrWrongType
)

// Registry

// NewRegistry creates an empty registry.
//
// Example:
//
//	reg := dispatch.NewRegistry()
//	reg.Route("users.show", dispatch.Func(showUser),
//	    dispatch.Get("/users/{id}"),
//	    dispatch.Path(0, "id", parse.Int64()),
//	)
//	reg.Middleware("auth", dispatch.Func(authenticate), 100)
func NewRegistry() *Registry {
	return internal.NewRegistry()
}

// Ref builds a route-level middleware reference with its own parameters.
func Ref(id string, factory Factory, params ...DeclOption) MiddlewareRef {
	return internal.Ref(id, factory, params...)
}

// Declaration options

func Get(path string) DeclOption    { return internal.Get(path) }
func Post(path string) DeclOption   { return internal.Post(path) }
func Put(path string) DeclOption    { return internal.Put(path) }
func Patch(path string) DeclOption  { return internal.Patch(path) }
func Delete(path string) DeclOption { return internal.Delete(path) }
func Head(path string) DeclOption   { return internal.Head(path) }
func Any(path string) DeclOption    { return internal.Any(path) }

// Use attaches route-level middleware, run in order before the route handler.
func Use(refs ...MiddlewareRef) DeclOption {
	return internal.Use(refs...)
}

// Match adds a predicate that must accept the request for the route to match.
// A rejected request falls through to later routes.
func Match(fn func(*Request) bool) DeclOption {
	return internal.Match(fn)
}

// Cache sets an explicit Cache-Control policy for a route.
func Cache(kind CacheKind, maxAge time.Duration) DeclOption {
	return internal.Cache(kind, maxAge)
}

// Param adds a parameter declaration as is.
func Param(p ParameterDeclaration) DeclOption {
	return internal.Param(p)
}

// Query binds the named query parameter. Repeated keys yield []string.
func Query(index int, name string, p Parser) DeclOption {
	return internal.Query(index, name, p)
}

// QueryAll binds the whole query string as url.Values.
func QueryAll(index int, p Parser) DeclOption {
	return internal.QueryAll(index, p)
}

// Path binds the named path parameter.
func Path(index int, name string, p Parser) DeclOption {
	return internal.Path(index, name, p)
}

// BodyField binds the named field of the parsed body.
func BodyField(index int, name string, p Parser) DeclOption {
	return internal.BodyField(index, name, p)
}

// Body binds the whole parsed body.
func Body(index int, p Parser) DeclOption {
	return internal.Body(index, p)
}

// Header binds a request header, matched case-insensitively.
func Header(index int, name string, p Parser) DeclOption {
	return internal.Header(index, name, p)
}

// Cookie binds the named cookie value.
func Cookie(index int, name string, p Parser) DeclOption {
	return internal.Cookie(index, name, p)
}

// Handlers

// Func adapts a HandlerFunc into a Factory.
func Func(fn HandlerFunc) Factory {
	return internal.Func(fn)
}

// Instance returns a Factory that always yields h.
func Instance(h Handler) Factory {
	return internal.Instance(h)
}

// HTTPMiddleware adapts net/http middleware for use as a dispatch middleware.
//
// Example:
//
//	reg.Middleware("real-ip", dispatch.HTTPMiddleware(middleware.RealIP), 100)
func HTTPMiddleware(mw func(http.Handler) http.Handler) Factory {
	return internal.HTTPMiddleware(mw)
}

// Next runs the rest of the pipeline from inside a middleware and returns its error.
// Without a call to Next the rest runs after the middleware returns.
func Next(ctx context.Context) error {
	return internal.Next(ctx)
}

// NewBase resolves the request and response bound on r.
func NewBase(r Resolver) (Base, error) {
	return internal.NewBase(r)
}

// Arg returns the argument at position i converted to T, or the zero value.
func Arg[T any](a Args, i int) T {
	return internal.Arg[T](a, i)
}

// ArgOK is like Arg but reports whether a value of type T was present.
func ArgOK[T any](a Args, i int) (T, bool) {
	return internal.ArgOK[T](a, i)
}

// Extract builds the positional arguments for decls from req.
func Extract(req *Request, decls []ParameterDeclaration) (Args, error) {
	return internal.Extract(req, decls)
}

// Scopes

// NewContainer creates a root scope.
func NewContainer() *Container {
	return internal.NewContainer()
}

// NewToken creates a binding key. Two tokens with the same name are distinct.
func NewToken(name string) *Token {
	return internal.NewToken(name)
}

// Resolve resolves key from r and asserts the result to T.
//
// Example:
//
//	users, err := dispatch.Resolve[*UserRepo](r, usersKey)
func Resolve[T any](r Resolver, key any) (T, error) {
	return internal.Resolve[T](r, key)
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](r Resolver, key any) T {
	return internal.MustResolve[T](r, key)
}

// ScopeFrom returns the request scope stored in ctx.
func ScopeFrom(ctx context.Context) (*Container, bool) {
	return internal.ScopeFrom(ctx)
}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope *Container) context.Context {
	return internal.WithScope(ctx, scope)
}

// CreateRequestScope creates the per-request scope seeded with req and res.
func CreateRequestScope(root *Container, req *Request, res *Response) *Container {
	return internal.CreateRequestScope(root, req, res)
}

// Request and response

// NewRequest wraps r. A non-positive bodyLimit selects the default of 10MB.
func NewRequest(r *http.Request, bodyLimit int64) *Request {
	return internal.NewRequest(r, bodyLimit)
}

// NewResponse wraps w.
func NewResponse(w http.ResponseWriter) *Response {
	return internal.NewResponse(w)
}

// NewResponseWriter creates a new ResponseWriter.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return internal.NewResponseWriter(w)
}

// DefaultCachePolicy returns the policy applied when a route declares none.
func DefaultCachePolicy(method string) CachePolicy {
	return internal.DefaultCachePolicy(method)
}

// Pipeline

// NewDispatcher validates and seals reg and compiles its declarations.
//
// Example:
//
//	d, err := dispatch.NewDispatcher(reg, root, initScope,
//	    dispatch.WithLogger(log),
//	    dispatch.WithServerTiming(true),
//	)
func NewDispatcher(reg *Registry, root *Container, init ScopeInitializer, opts ...Option) (*Dispatcher, error) {
	return internal.NewDispatcher(reg, root, init, opts...)
}

// NewHandler builds a Dispatcher and returns it as an http.Handler.
func NewHandler(reg *Registry, root *Container, init ScopeInitializer, opts ...Option) (http.Handler, error) {
	return internal.NewHandler(reg, root, init, opts...)
}

// WithLogger sets the logger for slow request warnings and error reporting.
func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

// WithErrorHandler replaces the default error funnel.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithDevelopment exposes server error messages in error responses.
func WithDevelopment(enabled bool) Option {
	return internal.WithDevelopment(enabled)
}

// WithServerTiming attaches a Server-Timing header with the recorded spans.
func WithServerTiming(enabled bool) Option {
	return internal.WithServerTiming(enabled)
}

// WithSlowThreshold sets the duration above which a request is logged as slow.
func WithSlowThreshold(threshold time.Duration) Option {
	return internal.WithSlowThreshold(threshold)
}

// WithBodyLimit sets the maximum accepted request body size in bytes.
func WithBodyLimit(limit int64) Option {
	return internal.WithBodyLimit(limit)
}

// WithTracer mirrors pipeline spans as OpenTelemetry spans.
func WithTracer(t trace.Tracer) Option {
	return internal.WithTracer(t)
}

// WithMetrics exports stage durations and request counts.
func WithMetrics(m *Metrics) Option {
	return internal.WithMetrics(m)
}

// NewMetrics creates the dispatch collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	return internal.NewMetrics(reg)
}

// Instrumentation

// NewSession starts a timing session.
func NewSession(opts ...SessionOption) *Session {
	return internal.NewSession(opts...)
}

// TraceWith mirrors session spans as OpenTelemetry spans.
func TraceWith(t trace.Tracer) SessionOption {
	return internal.TraceWith(t)
}

// ObserveWith reports every recorded span duration to fn.
func ObserveWith(fn func(group string, d time.Duration)) SessionOption {
	return internal.ObserveWith(fn)
}

// ConsoleReport renders spans as aligned human readable lines.
func ConsoleReport(spans []Span) []string {
	return internal.ConsoleReport(spans)
}

// ServerTimingReport renders spans as a Server-Timing header value.
func ServerTimingReport(spans []Span) string {
	return internal.ServerTimingReport(spans)
}

// Errors

// SlogErrorLogger reports failures through log.
func SlogErrorLogger(log *slog.Logger) ErrorLogger {
	return internal.SlogErrorLogger(log)
}

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

func WithName(name string) HTTPErrorOption { return internal.WithName(name) }
func WithData(data any) HTTPErrorOption    { return internal.WithData(data) }
func WithError(err error) HTTPErrorOption  { return internal.WithError(err) }

var (
	ErrBadRequest            = internal.ErrBadRequest
	ErrUnauthorized          = internal.ErrUnauthorized
	ErrForbidden             = internal.ErrForbidden
	ErrNotFound              = internal.ErrNotFound
	ErrMethodNotAllowed      = internal.ErrMethodNotAllowed
	ErrNotAcceptable         = internal.ErrNotAcceptable
	ErrConflict              = internal.ErrConflict
	ErrPreconditionFailed    = internal.ErrPreconditionFailed
	ErrRequestEntityTooLarge = internal.ErrRequestEntityTooLarge
	ErrUnsupportedMediaType  = internal.ErrUnsupportedMediaType
	ErrTooManyRequests       = internal.ErrTooManyRequests
	ErrServerError           = internal.ErrServerError
	ErrNotImplemented        = internal.ErrNotImplemented
	ErrServiceUnavailable    = internal.ErrServiceUnavailable
	ErrGatewayTimeout        = internal.ErrGatewayTimeout
)

// MissingParam reports a required parameter that was absent.
func MissingParam(label string) *ValidationError {
	return internal.MissingParam(label)
}

// MalformedParam reports a parameter that failed coercion or validation.
func MalformedParam(label string, err error) *ValidationError {
	return internal.MalformedParam(label, err)
}

// IsHTTPError reports whether err carries an HTTPError.
func IsHTTPError(err error) bool {
	return internal.IsHTTPError(err)
}

// AsHTTPError extracts the HTTPError from an error chain if present.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// AsValidationError extracts the ValidationError from an error chain if present.
func AsValidationError(err error) *ValidationError {
	return internal.AsValidationError(err)
}

// AsPanicError extracts the PanicError from an error chain if present.
func AsPanicError(err error) *PanicError {
	return internal.AsPanicError(err)
}

// App

// NewApp mounts handler under "/" next to health probes.
//
// Example:
//
//	app := dispatch.NewApp(handler,
//	    dispatch.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	    dispatch.WithMetricsEndpoint("/metrics", nil),
//	)
//	err := app.Run(dispatch.Address(":8080"), dispatch.Logger(log))
func NewApp(handler http.Handler, opts ...AppOption) *App {
	return internal.NewApp(handler, opts...)
}

// WithHealthPaths overrides the probe paths. Empty values keep the defaults.
func WithHealthPaths(liveness, readiness string) AppOption {
	return internal.WithHealthPaths(liveness, readiness)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(title string, fn health.CheckFunc) AppOption {
	return internal.WithReadinessCheck(title, fn)
}

// WithHealthOptions passes options to the readiness probe.
func WithHealthOptions(opts ...health.Option) AppOption {
	return internal.WithHealthOptions(opts...)
}

// WithMetricsEndpoint exposes g at path. A nil gatherer uses the default one.
func WithMetricsEndpoint(path string, g prometheus.Gatherer) AppOption {
	return internal.WithMetricsEndpoint(path, g)
}

// WithHTTPMiddleware wraps the whole App with net/http middleware.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) AppOption {
	return internal.WithHTTPMiddleware(mw...)
}

// Run options

// Address sets the HTTP server address.
// Defaults to ":8080".
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Logger sets the server lifecycle logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout bounds graceful shutdown of the server and its hooks.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function run before the readiness probe reports ready.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function run after the server stopped.
// Hooks run in reverse registration order.
//
// Example:
//
//	dispatch.ShutdownHook(redis.Shutdown(client))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets the base context for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}
