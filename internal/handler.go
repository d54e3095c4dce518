package internal

import "context"

// Handler is the unit of work the pipeline invokes for both routes and middleware.
// Args holds the declared parameters in positional order; undeclared positions are nil.
//
// Request-scoped collaborators (request, response, services bound on the scope)
// are injected through the Factory that builds the handler.
//
// Example:
//
//	type ShowUser struct {
//	    res   *dispatch.Response
//	    users *UserRepo
//	}
//
//	func (h *ShowUser) Handle(ctx context.Context, args dispatch.Args) error {
//	    user, err := h.users.Find(ctx, dispatch.Arg[int64](args, 0))
//	    if err != nil {
//	        return err
//	    }
//	    return h.res.JSON(http.StatusOK, user)
//	}
type Handler interface {
	Handle(ctx context.Context, args Args) error
}

// Factory builds a Handler against the per-request scope.
// It is called once per request that reaches the declaration.
type Factory func(r Resolver) (Handler, error)

// HandlerFunc is a function form of Handler receiving the request and response directly.
type HandlerFunc func(ctx context.Context, req *Request, res *Response, args Args) error

// boundFunc is a HandlerFunc closed over the request and response of one scope.
type boundFunc struct {
	fn  HandlerFunc
	req *Request
	res *Response
}

func (b *boundFunc) Handle(ctx context.Context, args Args) error {
	return b.fn(ctx, b.req, b.res, args)
}

// Func adapts a HandlerFunc into a Factory that resolves the request and
// response from the scope it is built in.
//
// Example:
//
//	reg.Route("health", dispatch.Func(func(ctx context.Context, req *dispatch.Request, res *dispatch.Response, _ dispatch.Args) error {
//	    return res.Text(http.StatusOK, "OK")
//	}), dispatch.Get("/ping"))
func Func(fn HandlerFunc) Factory {
	return func(r Resolver) (Handler, error) {
		req, err := Resolve[*Request](r, RequestKey)
		if err != nil {
			return nil, err
		}
		res, err := Resolve[*Response](r, ResponseKey)
		if err != nil {
			return nil, err
		}
		return &boundFunc{fn: fn, req: req, res: res}, nil
	}
}

// Instance returns a Factory that always yields h.
// Use it for stateless handlers shared across requests.
func Instance(h Handler) Factory {
	return func(Resolver) (Handler, error) {
		return h, nil
	}
}

// ErrorHandler translates a pipeline failure into a response.
// It is called at most once per request.
type ErrorHandler func(ctx context.Context, err error, req *Request, res *Response) error

// ScopeInitializer runs after the request scope is created and before any
// middleware, so it can bind request-scoped services.
type ScopeInitializer func(ctx context.Context, scope *Container) error
