package internal

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Method is the HTTP method a declaration applies to.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
	MethodHead   Method = "HEAD"
	MethodAll    Method = "ALL"
)

func (m Method) valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodHead, MethodAll:
		return true
	}
	return false
}

const defaultMiddlewarePath = "/*"

// RouteDeclaration is the accumulated metadata of a single route handler.
type RouteDeclaration struct {
	Factory     Factory
	Matcher     func(*Request) bool
	Cache       *CachePolicy
	ID          string
	Method      Method
	Path        string
	Middlewares []MiddlewareRef
}

// MiddlewareRef attaches a middleware to a single route.
// Its parameters are registered under ID like any other declaration.
type MiddlewareRef struct {
	Factory Factory
	ID      string
	Params  []ParameterDeclaration
}

// MiddlewareDeclaration is a global middleware. Priority >= 0 runs before the
// route stage, priority < 0 after it.
type MiddlewareDeclaration struct {
	Factory  Factory
	ID       string
	Method   Method
	Path     string
	Priority int
}

// Registry accumulates route, middleware and parameter declarations.
// It is populated before serving and sealed by the dispatcher, after which
// it is read-only and safe for concurrent use.
type Registry struct {
	byID       map[string]int
	refs       map[string]struct{}
	params     map[string][]ParameterDeclaration
	routes     []RouteDeclaration
	middleware []MiddlewareDeclaration
	mu         sync.RWMutex
	sealed     bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]int),
		refs:   make(map[string]struct{}),
		params: make(map[string][]ParameterDeclaration),
	}
}

// Register adds a route declaration or merges it into an existing one with the same ID.
// Non-zero fields of decl overwrite the stored ones; the merged declaration keeps
// its original position in registration order.
func (r *Registry) Register(decl RouteDeclaration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustBeOpen()

	idx, ok := r.byID[decl.ID]
	if !ok {
		r.byID[decl.ID] = len(r.routes)
		r.routes = append(r.routes, decl)
		return
	}

	cur := &r.routes[idx]
	if decl.Factory != nil {
		cur.Factory = decl.Factory
	}
	if decl.Matcher != nil {
		cur.Matcher = decl.Matcher
	}
	if decl.Cache != nil {
		cur.Cache = decl.Cache
	}
	if decl.Method != "" {
		cur.Method = decl.Method
	}
	if decl.Path != "" {
		cur.Path = decl.Path
	}
	if len(decl.Middlewares) > 0 {
		cur.Middlewares = decl.Middlewares
	}
}

// RegisterMiddleware appends a global middleware declaration. Middleware is never merged.
func (r *Registry) RegisterMiddleware(decl MiddlewareDeclaration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustBeOpen()

	if decl.Path == "" || decl.Path == "*" {
		decl.Path = defaultMiddlewarePath
	}
	if decl.Method == "" {
		decl.Method = MethodAll
	}
	r.middleware = append(r.middleware, decl)
}

// AddParameter records a parameter binding for the route or middleware with the given ID.
func (r *Registry) AddParameter(id string, p ParameterDeclaration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustBeOpen()

	r.params[id] = append(r.params[id], p)
}

// markRef records a route middleware reference and reports whether it is new,
// so a reference shared by several routes registers its parameters once.
func (r *Registry) markRef(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustBeOpen()

	if _, ok := r.refs[id]; ok {
		return false
	}
	r.refs[id] = struct{}{}
	return true
}

// Routes returns route declarations in registration order.
func (r *Registry) Routes() []RouteDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.routes)
}

// Middlewares returns global middleware declarations in registration order.
func (r *Registry) Middlewares() []MiddlewareDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.middleware)
}

// PreMiddleware returns middleware with priority >= 0, highest priority first.
// Ties keep registration order.
func (r *Registry) PreMiddleware() []MiddlewareDeclaration {
	return r.partition(func(p int) bool { return p >= 0 })
}

// PostMiddleware returns middleware with priority < 0, highest priority first.
// Ties keep registration order.
func (r *Registry) PostMiddleware() []MiddlewareDeclaration {
	return r.partition(func(p int) bool { return p < 0 })
}

func (r *Registry) partition(keep func(priority int) bool) []MiddlewareDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]MiddlewareDeclaration, 0, len(r.middleware))
	for _, m := range r.middleware {
		if keep(m.Priority) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b MiddlewareDeclaration) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return out
}

// MetadataFor returns the route declaration registered under id.
func (r *Registry) MetadataFor(id string) (RouteDeclaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return RouteDeclaration{}, false
	}
	return r.routes[idx], true
}

// Parameters returns the parameter declarations of id ordered by index.
func (r *Registry) Parameters(id string) []ParameterDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.params[id])
	slices.SortStableFunc(out, func(a, b ParameterDeclaration) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return out
}

// Seal makes the registry read-only. Registering afterwards panics.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether the registry has been sealed.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

func (r *Registry) mustBeOpen() {
	if r.sealed {
		panic(ErrRegistrySealed)
	}
}

// Validate checks the declarations for problems that would otherwise surface
// at request time. All problems are reported together.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error

	for _, rt := range r.routes {
		if rt.ID == "" {
			errs = append(errs, errors.New("route without id"))
		}
		if rt.Factory == nil {
			errs = append(errs, fmt.Errorf("route %q: missing factory", rt.ID))
		}
		if !rt.Method.valid() {
			errs = append(errs, fmt.Errorf("route %q: invalid method %q", rt.ID, rt.Method))
		}
		if !strings.HasPrefix(rt.Path, "/") && rt.Path != "*" {
			errs = append(errs, fmt.Errorf("route %q: path %q must start with /", rt.ID, rt.Path))
		}
		if rt.Cache != nil && !rt.Cache.valid() {
			errs = append(errs, fmt.Errorf("route %q: invalid cache policy %q", rt.ID, rt.Cache.Kind))
		}
		for _, ref := range rt.Middlewares {
			if ref.Factory == nil {
				errs = append(errs, fmt.Errorf("route %q: middleware %q: missing factory", rt.ID, ref.ID))
			}
		}
	}

	for _, mw := range r.middleware {
		if mw.Factory == nil {
			errs = append(errs, fmt.Errorf("middleware %q: missing factory", mw.ID))
		}
		if !mw.Method.valid() {
			errs = append(errs, fmt.Errorf("middleware %q: invalid method %q", mw.ID, mw.Method))
		}
	}

	for _, id := range slices.Sorted(maps.Keys(r.params)) {
		params := r.params[id]
		seen := make(map[int]struct{}, len(params))
		for _, p := range params {
			if p.Index < 0 {
				errs = append(errs, fmt.Errorf("%q: negative parameter index %d", id, p.Index))
			}
			if _, dup := seen[p.Index]; dup {
				errs = append(errs, fmt.Errorf("%q: duplicate parameter index %d", id, p.Index))
			}
			seen[p.Index] = struct{}{}
			if !p.Source.valid() {
				errs = append(errs, fmt.Errorf("%q: parameter %d: unknown source", id, p.Index))
			} else if p.Source.named() && p.Name == "" {
				errs = append(errs, fmt.Errorf("%q: parameter %d: %s source requires a name", id, p.Index, p.Source))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidRegistry, errors.Join(errs...))
}
