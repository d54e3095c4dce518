package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/dispatch/middlewares"
)

func corsRequest(method, origin string) *http.Request {
	r := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("no origin passes through", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, corsRequest(http.MethodGet, ""), okRoute, middleware{id: "cors", factory: middlewares.CORS(), priority: 100})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard origin", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, corsRequest(http.MethodGet, "https://a.test"), okRoute, middleware{id: "cors", factory: middlewares.CORS(), priority: 100})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("preflight is answered without a route", func(t *testing.T) {
		t.Parallel()

		r := corsRequest(http.MethodOptions, "https://a.test")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := serve(t, r, okRoute, middleware{id: "cors", factory: middlewares.CORS(middlewares.WithMaxAge(time.Hour)), priority: 100})

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Equal(t, "Origin, Content-Type, Accept, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.Len(t, rec.Header().Values("Vary"), 3)
	})

	t.Run("specific origins with credentials", func(t *testing.T) {
		t.Parallel()

		mw := middleware{id: "cors", priority: 100, factory: middlewares.CORS(
			middlewares.WithAllowOrigins("https://app.test"),
			middlewares.WithAllowCredentials(),
			middlewares.WithExposeHeaders("X-Request-ID", "X-Total"),
		)}

		rec := serve(t, corsRequest(http.MethodGet, "https://app.test"), okRoute, mw)
		assert.Equal(t, "https://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "X-Request-ID, X-Total", rec.Header().Get("Access-Control-Expose-Headers"))

		rec = serve(t, corsRequest(http.MethodGet, "https://evil.test"), okRoute, mw)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("origin func", func(t *testing.T) {
		t.Parallel()

		mw := middleware{id: "cors", priority: 100, factory: middlewares.CORS(
			middlewares.WithAllowOriginFunc(func(origin string) bool {
				return strings.HasSuffix(origin, ".example.com")
			}),
			middlewares.WithAllowMethods(http.MethodGet),
			middlewares.WithAllowHeaders("X-Custom"),
		)}

		preflight := func(origin string) *http.Request {
			r := corsRequest(http.MethodOptions, origin)
			r.Header.Set("Access-Control-Request-Method", http.MethodGet)
			return r
		}

		rec := serve(t, preflight("https://a.example.com"), okRoute, mw)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://a.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "X-Custom", rec.Header().Get("Access-Control-Allow-Headers"))

		rec = serve(t, preflight("https://other.com"), okRoute, mw)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("plain options is not a preflight", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, corsRequest(http.MethodOptions, "https://a.test"), okRoute, middleware{id: "cors", factory: middlewares.CORS(), priority: 100})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
