package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Token is a unique binding key. Two tokens with the same name are distinct keys.
type Token struct {
	name string
}

// NewToken creates a binding key. The name is only used for diagnostics.
func NewToken(name string) *Token {
	return &Token{name: name}
}

func (t *Token) String() string {
	return t.name
}

// Well-known scope keys.
var (
	RequestKey      = NewToken("request")
	ResponseKey     = NewToken("response")
	SessionKey      = NewToken("instrumentation-session")
	ErrorHandlerKey = NewToken("error-handler")
	LoggerKey       = NewToken("logger")
	ErrorLoggerKey  = NewToken("error-logger")
)

// Resolver is the read side of a scope handed to factories.
type Resolver interface {
	Resolve(key any) (any, error)
	IsBound(key any) bool
}

// Provider builds a bound value on demand.
type Provider func(r Resolver) (any, error)

type binding struct {
	value     any
	err       error
	provider  Provider
	mu        sync.Mutex
	singleton bool
	resolved  bool
}

// Container is a dependency scope. Lookups fall back to the parent scope,
// bindings never leak upwards, so sibling scopes are isolated from each other.
type Container struct {
	parent   *Container
	bindings map[any]*binding
	id       string
	mu       sync.RWMutex
	closed   bool
}

// NewContainer creates a root scope.
func NewContainer() *Container {
	return &Container{
		bindings: make(map[any]*binding),
		id:       uuid.NewString(),
	}
}

// Child creates a scope whose lookups fall back to c.
func (c *Container) Child() *Container {
	child := NewContainer()
	child.parent = c
	return child
}

// ID returns the unique scope identifier.
func (c *Container) ID() string {
	return c.id
}

// Parent returns the enclosing scope, or nil for a root scope.
func (c *Container) Parent() *Container {
	return c.parent
}

// BindValue binds a constant value, shadowing any binding of key in parent scopes.
func (c *Container) BindValue(key, value any) {
	c.bind(key, &binding{value: value, resolved: true, singleton: true})
}

// BindFactory binds a provider invoked on every resolution against the resolving scope.
func (c *Container) BindFactory(key any, p Provider) {
	c.bind(key, &binding{provider: p})
}

// BindSingleton binds a provider invoked once, against this scope. The result
// (value or error) is cached for the lifetime of the scope.
func (c *Container) BindSingleton(key any, p Provider) {
	c.bind(key, &binding{provider: p, singleton: true})
}

func (c *Container) bind(key any, b *binding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.bindings[key] = b
}

// IsBound reports whether key is bound in this scope or any parent.
func (c *Container) IsBound(key any) bool {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		_, ok := cur.bindings[key]
		cur.mu.RUnlock()
		if ok {
			return true
		}
	}
	return false
}

// Resolve returns the value bound to key, searching parent scopes.
func (c *Container) Resolve(key any) (any, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrScopeClosed
	}

	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		b, ok := cur.bindings[key]
		cur.mu.RUnlock()
		if !ok {
			continue
		}
		if !b.singleton {
			return b.provider(c)
		}
		return b.get(cur)
	}

	return nil, fmt.Errorf("%w: %v", ErrNotBound, key)
}

func (b *binding) get(owner Resolver) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.resolved {
		b.value, b.err = b.provider(owner)
		b.resolved = true
	}
	return b.value, b.err
}

// Close drops all bindings. Resolving from a closed scope fails with ErrScopeClosed.
func (c *Container) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.bindings = make(map[any]*binding)
}

// Resolve resolves key from r and asserts the result to T.
func Resolve[T any](r Resolver, key any) (T, error) {
	var zero T
	v, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %v is %T, want %T", ErrWrongType, key, v, zero)
	}
	return t, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](r Resolver, key any) T {
	v, err := Resolve[T](r, key)
	if err != nil {
		panic(err)
	}
	return v
}

type scopeCtxKey struct{}

// ScopeFrom returns the request scope stored in ctx.
func ScopeFrom(ctx context.Context) (*Container, bool) {
	s, ok := ctx.Value(scopeCtxKey{}).(*Container)
	return s, ok
}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope *Container) context.Context {
	return context.WithValue(ctx, scopeCtxKey{}, scope)
}

// CreateRequestScope creates the per-request scope seeded with req and res.
// When the request already carries a scope (nested dispatch), the new scope is
// its child; otherwise it is a child of root.
func CreateRequestScope(root *Container, req *Request, res *Response) *Container {
	parent := root
	if s, ok := ScopeFrom(req.Context()); ok && s != nil {
		parent = s
	}
	if parent == nil {
		parent = NewContainer()
	}

	scope := parent.Child()
	scope.BindValue(RequestKey, req)
	scope.BindValue(ResponseKey, res)
	req.SetContext(WithScope(req.Context(), scope))
	return scope
}
