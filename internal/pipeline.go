package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/dispatch/pkg/logger"
)

const (
	defaultSlowThreshold = 300 * time.Millisecond
	panicStackSize       = 4096
)

// Span groups recorded by the pipeline.
const (
	GroupIoC          = "ioc"
	GroupGlobal       = "global"
	GroupMiddleware   = "middleware"
	GroupRoute        = "route"
	GroupErrorHandler = "error-handler"
)

type compiledMiddleware struct {
	matcher *pathMatcher
	factory Factory
	id      string
	params  []ParameterDeclaration
}

type compiledRoute struct {
	matcher *pathMatcher
	decl    RouteDeclaration
	params  []ParameterDeclaration
	chain   []compiledMiddleware
}

// Dispatcher runs the request pipeline over a sealed Registry.
// It is safe for concurrent use.
type Dispatcher struct {
	root          *Container
	init          ScopeInitializer
	errorHandler  ErrorHandler
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *Metrics
	routes        []compiledRoute
	pre           []compiledMiddleware
	post          []compiledMiddleware
	slowThreshold time.Duration
	bodyLimit     int64
	development   bool
	serverTiming  bool
}

// NewDispatcher validates and seals reg and compiles its declarations.
// root is the parent of every request scope (a fresh container when nil).
// init, if not nil, runs once per request right after the scope is created.
func NewDispatcher(reg *Registry, root *Container, init ScopeInitializer, opts ...Option) (*Dispatcher, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidRegistry)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	reg.Seal()

	if root == nil {
		root = NewContainer()
	}

	d := &Dispatcher{
		root:          root,
		init:          init,
		logger:        logger.NewNope(),
		slowThreshold: defaultSlowThreshold,
		bodyLimit:     defaultBodyLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.errorHandler == nil {
		funnel := &Funnel{Logger: SlogErrorLogger(d.logger), Development: d.development}
		d.errorHandler = funnel.Handle
	}

	var err error
	if d.pre, err = compileMiddleware(reg, reg.PreMiddleware()); err != nil {
		return nil, err
	}
	if d.post, err = compileMiddleware(reg, reg.PostMiddleware()); err != nil {
		return nil, err
	}
	for _, decl := range reg.Routes() {
		m, err := compileMatcher(decl.Method, decl.Path)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", decl.ID, err)
		}
		rt := compiledRoute{matcher: m, decl: decl, params: reg.Parameters(decl.ID)}
		for _, ref := range decl.Middlewares {
			rt.chain = append(rt.chain, compiledMiddleware{
				factory: ref.Factory,
				id:      ref.ID,
				params:  reg.Parameters(ref.ID),
			})
		}
		d.routes = append(d.routes, rt)
	}

	return d, nil
}

func compileMiddleware(reg *Registry, decls []MiddlewareDeclaration) ([]compiledMiddleware, error) {
	out := make([]compiledMiddleware, 0, len(decls))
	for _, decl := range decls {
		m, err := compileMatcher(decl.Method, decl.Path)
		if err != nil {
			return nil, fmt.Errorf("middleware %q: %w", decl.ID, err)
		}
		out = append(out, compiledMiddleware{
			matcher: m,
			factory: decl.Factory,
			id:      decl.ID,
			params:  reg.Parameters(decl.ID),
		})
	}
	return out, nil
}

// NewHandler builds a Dispatcher and returns it as an http.Handler.
func NewHandler(reg *Registry, root *Container, init ScopeInitializer, opts ...Option) (http.Handler, error) {
	d, err := NewDispatcher(reg, root, init, opts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ServeHTTP runs the pipeline: scope, instrumentation, scope init, pre-middleware,
// route, post-middleware, not-found guard, error funnel and finalization.
// Every request reaches finalization; panics never escape.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := NewRequest(r, d.bodyLimit)
	res := NewResponse(w)
	scope := CreateRequestScope(d.root, req, res)
	defer scope.Close()

	sessionOpts := make([]SessionOption, 0, 2)
	if d.tracer != nil {
		sessionOpts = append(sessionOpts, TraceWith(d.tracer))
	}
	if d.metrics != nil {
		sessionOpts = append(sessionOpts, ObserveWith(d.metrics.observeStage))
	}
	session := NewSession(sessionOpts...)
	scope.BindValue(SessionKey, session)
	stopTotal := session.Start("total")

	p := &pass{d: d, s: session, scope: scope, req: req, res: res}
	if err := p.run(); err != nil {
		p.fail(err)
	}
	// A middleware may have cancelled the context it handed on; values stay.
	d.finish(context.WithoutCancel(req.Context()), session, stopTotal, scope, req, res)
}

// pass carries one request through the pipeline stages.
// Stages read the context from req each time, so values added by an earlier
// stage reach later ones.
type pass struct {
	d     *Dispatcher
	s     *Session
	scope *Container
	req   *Request
	res   *Response
}

func (p *pass) run() error {
	if p.d.init != nil {
		err := p.s.Auto(p.req.Context(), "init", GroupIoC, func(ctx context.Context) error {
			return guard(func() error { return p.d.init(ctx, p.scope) })
		})
		if err != nil {
			return err
		}
	}
	return p.pre(0)
}

// pre runs pre-middleware from i on, then the route and post-middleware.
// A sent response skips the remaining pre-middleware and the route.
func (p *pass) pre(i int) error {
	if i < len(p.d.pre) && !p.res.HeadersSent() {
		mw := &p.d.pre[i]
		return p.stage(
			func(ctx context.Context) error { return p.global(ctx, mw) },
			func() error { return p.pre(i + 1) },
		)
	}
	if !p.res.HeadersSent() {
		if err := p.route(); err != nil {
			return err
		}
	}
	return p.post(0)
}

// post runs post-middleware from i on, then the not-found guard.
func (p *pass) post(i int) error {
	if i < len(p.d.post) {
		mw := &p.d.post[i]
		return p.stage(
			func(ctx context.Context) error { return p.global(ctx, mw) },
			func() error { return p.post(i + 1) },
		)
	}
	if !p.res.HeadersSent() && p.res.HandledBy() == "" {
		return ErrNotFound("Not Found")
	}
	return nil
}

// stage runs the middleware fn with rest reachable through Next. rest runs
// once: inside fn if the middleware reaches it, otherwise after fn returns
// unless fn failed.
func (p *pass) stage(fn func(ctx context.Context) error, rest func() error) error {
	k := newContinuation(p.through(rest))
	err := fn(withContinuation(p.req.Context(), k))
	if ran, restErr := k.result(); ran {
		if err != nil {
			return err
		}
		return restErr
	}
	if err != nil {
		return err
	}
	return rest()
}

// through runs rest with the request and writer a middleware passed on.
// When that writer wraps the response, a failure of rest is funneled through
// it, since the middleware may buffer or transform what it receives.
func (p *pass) through(rest func() error) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		p.req.replace(r)
		restore, swapped := p.res.writeThrough(w)
		defer restore()

		err := rest()
		if err != nil && swapped {
			p.fail(err)
			return nil
		}
		return err
	}
}

func (p *pass) fail(err error) {
	p.d.fail(context.WithoutCancel(p.req.Context()), p.s, p.scope, err, p.req, p.res)
}

// global runs a global middleware if its method and path match the request.
// Path parameters captured by the middleware pattern are visible while it runs.
func (p *pass) global(ctx context.Context, mw *compiledMiddleware) error {
	params, ok := mw.matcher.match(p.req.Method(), p.req.Path())
	if !ok {
		return nil
	}

	prev := p.req.Params()
	p.req.setParams(params)
	defer p.req.setParams(prev)

	return p.s.Auto(ctx, mw.id, GroupGlobal, func(ctx context.Context) error {
		return guard(func() error { return invoke(ctx, p.scope, p.req, mw.factory, mw.params) })
	})
}

// route dispatches to the first declaration, in registration order, whose
// pattern and optional matcher accept the request.
func (p *pass) route() error {
	for i := range p.d.routes {
		rt := &p.d.routes[i]
		params, ok := rt.matcher.match(p.req.Method(), p.req.Path())
		if !ok {
			continue
		}
		p.req.setParams(params)

		if rt.decl.Matcher != nil {
			var accepted bool
			if err := guard(func() error { accepted = rt.decl.Matcher(p.req); return nil }); err != nil {
				return err
			}
			if !accepted {
				continue
			}
		}

		p.res.claim(rt.decl.ID)
		policy := DefaultCachePolicy(p.req.Method())
		if rt.decl.Cache != nil {
			policy = *rt.decl.Cache
		}
		p.res.SetCacheControl(policy)
		return p.chain(rt, 0)
	}

	p.req.setParams(nil)
	return nil
}

// chain runs the route middleware from i on, then the handler. A sent
// response ends the chain.
func (p *pass) chain(rt *compiledRoute, i int) error {
	if p.res.HeadersSent() {
		return nil
	}
	if i == len(rt.chain) {
		return p.s.Auto(p.req.Context(), rt.decl.ID, GroupRoute, func(ctx context.Context) error {
			return guard(func() error { return invoke(ctx, p.scope, p.req, rt.decl.Factory, rt.params) })
		})
	}

	mw := &rt.chain[i]
	return p.stage(
		func(ctx context.Context) error {
			return p.s.Auto(ctx, mw.id, GroupMiddleware, func(ctx context.Context) error {
				return guard(func() error { return invoke(ctx, p.scope, p.req, mw.factory, mw.params) })
			})
		},
		func() error { return p.chain(rt, i+1) },
	)
}

// invoke binds parameters, builds the handler in scope and runs it.
// Binding happens first so invalid input never reaches a factory.
func invoke(ctx context.Context, scope *Container, req *Request, factory Factory, params []ParameterDeclaration) error {
	args, err := Extract(req, params)
	if err != nil {
		return err
	}
	h, err := factory(scope)
	if err != nil {
		return err
	}
	return h.Handle(ctx, args)
}

// fail hands err to the error handler exactly once.
func (d *Dispatcher) fail(ctx context.Context, s *Session, scope *Container, err error, req *Request, res *Response) {
	handler := d.resolveErrorHandler(scope)

	herr := s.Auto(ctx, "error-handler", GroupErrorHandler, func(ctx context.Context) error {
		return guard(func() error { return handler(ctx, err, req, res) })
	})
	if herr == nil {
		return
	}

	d.loggerFor(scope).ErrorContext(ctx, "error handler failed",
		slog.Any("error", herr),
		slog.Any("cause", err),
	)
	if !res.HeadersSent() {
		_ = res.Text(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func (d *Dispatcher) resolveErrorHandler(scope *Container) ErrorHandler {
	if !scope.IsBound(ErrorHandlerKey) {
		return d.errorHandler
	}
	v, err := scope.Resolve(ErrorHandlerKey)
	if err != nil {
		return d.errorHandler
	}
	switch h := v.(type) {
	case ErrorHandler:
		return h
	case func(context.Context, error, *Request, *Response) error:
		return h
	default:
		return d.errorHandler
	}
}

func (d *Dispatcher) loggerFor(scope *Container) *slog.Logger {
	if scope.IsBound(LoggerKey) {
		if l, err := Resolve[*slog.Logger](scope, LoggerKey); err == nil && l != nil {
			return l
		}
	}
	return d.logger
}

// finish closes the total span, reports slow requests and ends the response.
func (d *Dispatcher) finish(ctx context.Context, s *Session, stopTotal func() Span, scope *Container, req *Request, res *Response) {
	total := stopTotal()
	s.Finish()

	slow := total.Duration > d.slowThreshold
	if slow {
		d.loggerFor(scope).WarnContext(ctx, "slow request",
			slog.String("method", req.Method()),
			slog.String("url", req.URL().String()),
			slog.Int64("took_ms", total.Duration.Milliseconds()),
			slog.Any("spans", ConsoleReport(s.Logs())),
		)
	}

	if !res.HeadersSent() {
		if d.serverTiming {
			res.Header().Set("Server-Timing", ServerTimingReport(s.Logs()))
		}
		_ = res.End()
	}

	if d.metrics != nil {
		d.metrics.observeRequest(req.Method(), res.StatusCode(), slow)
	}
}

// guard converts a panic in fn into a *PanicError.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func guard(fn func() error) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if e, ok := rec.(error); ok && errors.Is(e, http.ErrAbortHandler) {
			panic(rec)
		}
		stack := make([]byte, panicStackSize)
		stack = stack[:runtime.Stack(stack, false)]
		err = &PanicError{Value: rec, Stack: stack}
	}()
	return fn()
}
