package internal

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// pathMatcher matches a single declaration's method and path pattern.
// Patterns use chi syntax: "/users/{id}", "/files/*".
type pathMatcher struct {
	mux *chi.Mux
}

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// compileMatcher builds a matcher for method and pattern. A bare "*" matches every path.
func compileMatcher(method Method, pattern string) (m *pathMatcher, err error) {
	if pattern == "*" {
		pattern = "/*"
	}

	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, rec)
		}
	}()

	mux := chi.NewRouter()
	if method == MethodAll {
		mux.Handle(pattern, noop)
	} else {
		mux.Method(string(method), pattern, noop)
	}
	return &pathMatcher{mux: mux}, nil
}

// match reports whether method and path match, returning the captured path parameters.
func (m *pathMatcher) match(method, path string) (map[string]string, bool) {
	rctx := chi.NewRouteContext()
	if !m.mux.Match(rctx, method, path) {
		return nil, false
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		params[key] = rctx.URLParams.Values[i]
	}
	return params, true
}
