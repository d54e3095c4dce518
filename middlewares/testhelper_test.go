package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal"
)

type middleware struct {
	factory  internal.Factory
	id       string
	priority int
}

// serve registers route under GET /, plus the given middleware, and serves r.
func serve(t *testing.T, r *http.Request, route internal.HandlerFunc, mws ...middleware) *httptest.ResponseRecorder {
	t.Helper()

	reg := internal.NewRegistry()
	for _, mw := range mws {
		reg.Middleware(mw.id, mw.factory, mw.priority)
	}
	reg.Route("index", internal.Func(route), internal.Get("/"))

	h, err := internal.NewHandler(reg, nil, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func okRoute(_ context.Context, _ *internal.Request, res *internal.Response, _ internal.Args) error {
	return res.Text(http.StatusOK, "ok")
}
