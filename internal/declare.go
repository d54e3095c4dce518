package internal

import "time"

// declaration collects the fields set by DeclOptions before they reach the registry.
type declaration struct {
	matcher     func(*Request) bool
	cache       *CachePolicy
	method      Method
	path        string
	middlewares []MiddlewareRef
	params      []ParameterDeclaration
}

// DeclOption configures a route or middleware declaration.
// Route-only options (Use, Match, Cache) are ignored for middleware.
type DeclOption func(*declaration)

// Route declares a route handler. Calling Route again with the same id merges
// the new options into the existing declaration.
//
// Example:
//
//	reg.Route("users.show", dispatch.Func(showUser),
//	    dispatch.Get("/users/{id}"),
//	    dispatch.Path(0, "id", parse.Int64()),
//	    dispatch.Header(1, "X-Tenant", parse.Optional(parse.String())),
//	)
func (r *Registry) Route(id string, factory Factory, opts ...DeclOption) {
	d := &declaration{}
	for _, opt := range opts {
		opt(d)
	}

	for _, ref := range d.middlewares {
		if !r.markRef(ref.ID) {
			continue
		}
		for _, p := range ref.Params {
			r.AddParameter(ref.ID, p)
		}
	}
	for _, p := range d.params {
		r.AddParameter(id, p)
	}

	r.Register(RouteDeclaration{
		ID:          id,
		Factory:     factory,
		Method:      d.method,
		Path:        d.path,
		Middlewares: d.middlewares,
		Matcher:     d.matcher,
		Cache:       d.cache,
	})
}

// Middleware declares a global middleware. It applies to every request whose
// method and path match (default: any method, "/*").
//
// Example:
//
//	reg.Middleware("auth", dispatch.Instance(auth), 100,
//	    dispatch.Any("/api/*"),
//	    dispatch.Header(0, "Authorization", parse.String()),
//	)
func (r *Registry) Middleware(id string, factory Factory, priority int, opts ...DeclOption) {
	d := &declaration{}
	for _, opt := range opts {
		opt(d)
	}

	for _, p := range d.params {
		r.AddParameter(id, p)
	}

	r.RegisterMiddleware(MiddlewareDeclaration{
		ID:       id,
		Factory:  factory,
		Priority: priority,
		Method:   d.method,
		Path:     d.path,
	})
}

// Ref builds a route-level middleware reference with its own parameters.
func Ref(id string, factory Factory, params ...DeclOption) MiddlewareRef {
	d := &declaration{}
	for _, opt := range params {
		opt(d)
	}
	return MiddlewareRef{ID: id, Factory: factory, Params: d.params}
}

func on(m Method, path string) DeclOption {
	return func(d *declaration) {
		d.method = m
		d.path = path
	}
}

func Get(path string) DeclOption    { return on(MethodGet, path) }
func Post(path string) DeclOption   { return on(MethodPost, path) }
func Put(path string) DeclOption    { return on(MethodPut, path) }
func Patch(path string) DeclOption  { return on(MethodPatch, path) }
func Delete(path string) DeclOption { return on(MethodDelete, path) }
func Head(path string) DeclOption   { return on(MethodHead, path) }
func Any(path string) DeclOption    { return on(MethodAll, path) }

// Use attaches route-level middleware, run in the given order after global
// pre-middleware and before the route handler.
func Use(refs ...MiddlewareRef) DeclOption {
	return func(d *declaration) {
		d.middlewares = append(d.middlewares, refs...)
	}
}

// Match adds a predicate that must accept the request for the route to match.
// A rejected request falls through to later routes.
func Match(fn func(*Request) bool) DeclOption {
	return func(d *declaration) {
		d.matcher = fn
	}
}

// Cache sets an explicit Cache-Control policy, replacing the method-based default.
func Cache(kind CacheKind, maxAge time.Duration) DeclOption {
	return func(d *declaration) {
		d.cache = &CachePolicy{Kind: kind, MaxAge: maxAge}
	}
}

// Param adds a parameter declaration as is.
func Param(p ParameterDeclaration) DeclOption {
	return func(d *declaration) {
		d.params = append(d.params, p)
	}
}

func param(index int, src Source, name string, p Parser) DeclOption {
	return Param(ParameterDeclaration{Index: index, Source: src, Name: name, Parser: p})
}

// Query binds the named query parameter. Repeated keys yield []string.
func Query(index int, name string, p Parser) DeclOption {
	return param(index, SourceQuery, name, p)
}

// QueryAll binds the whole query string as url.Values.
func QueryAll(index int, p Parser) DeclOption {
	return param(index, SourceQueryAll, "", p)
}

// Path binds the named path parameter.
func Path(index int, name string, p Parser) DeclOption {
	return param(index, SourcePath, name, p)
}

// BodyField binds the named field of the parsed body.
func BodyField(index int, name string, p Parser) DeclOption {
	return param(index, SourceBody, name, p)
}

// Body binds the whole parsed body.
func Body(index int, p Parser) DeclOption {
	return param(index, SourceBodyAll, "", p)
}

// Header binds a request header.
func Header(index int, name string, p Parser) DeclOption {
	return param(index, SourceHeader, name, p)
}

// Cookie binds the named cookie value.
func Cookie(index int, name string, p Parser) DeclOption {
	return param(index, SourceCookie, name, p)
}
