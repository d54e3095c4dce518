package internal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/health"
)

func newTestApp(t *testing.T, opts ...internal.AppOption) *internal.App {
	t.Helper()

	reg := internal.NewRegistry()
	reg.Route("ping", textRoute("pong"), internal.Get("/ping"))
	return internal.NewApp(mustHandler(t, reg, nil), opts...)
}

func TestApp_Probes(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := do(app, http.MethodGet, "/health/live")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"UP","checks":[]}`, rec.Body.String())
	})

	t.Run("readiness gate", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := do(app, http.MethodGet, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "Server is not ready yet", rec.Body.String())

		app.SetReady(true)
		rec = do(app, http.MethodGet, "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"UP","checks":[]}`, rec.Body.String())
	})

	t.Run("readiness checks", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t,
			internal.WithHealthPaths("/live", "/ready"),
			internal.WithReadinessCheck("db", func(context.Context) error { return nil }),
			internal.WithReadinessCheck("cache", func(context.Context) error { return errors.New("refused") }),
			internal.WithHealthOptions(health.WithErrors()),
		)
		app.SetReady(true)

		rec := do(app, http.MethodGet, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"DOWN","checks":[
			{"title":"db","status":"UP"},
			{"title":"cache","status":"DOWN","error":"refused"}
		]}`, rec.Body.String())

		assert.Equal(t, http.StatusOK, do(app, http.MethodGet, "/live").Code)
	})

	t.Run("dispatcher behind probes", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		assert.Equal(t, "pong", do(app, http.MethodGet, "/ping").Body.String())
		assert.Equal(t, http.StatusNotFound, do(app, http.MethodGet, "/nope").Code)
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewRegistry()
		m, err := internal.NewMetrics(reg)
		require.NoError(t, err)

		r := internal.NewRegistry()
		r.Route("ping", textRoute("pong"), internal.Get("/ping"))
		app := internal.NewApp(mustHandler(t, r, nil, internal.WithMetrics(m)),
			internal.WithMetricsEndpoint("/metrics", reg),
		)

		do(app, http.MethodGet, "/ping")
		rec := do(app, http.MethodGet, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `dispatch_requests_total{code="200",method="GET"} 1`)
	})

	t.Run("http middleware wraps probes", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, internal.WithHTTPMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-App", "dispatch")
				next.ServeHTTP(w, r)
			})
		}))

		assert.Equal(t, "dispatch", do(app, http.MethodGet, "/health/live").Header().Get("X-App"))
		assert.Equal(t, "dispatch", do(app, http.MethodGet, "/ping").Header().Get("X-App"))
	})
}

func TestApp_Run(t *testing.T) {
	t.Parallel()

	t.Run("lifecycle", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var (
			mu    sync.Mutex
			steps []string
		)
		record := func(step string) {
			mu.Lock()
			defer mu.Unlock()
			steps = append(steps, step)
		}

		done := make(chan error, 1)
		go func() {
			done <- app.Run(
				internal.WithContext(ctx),
				internal.Address("127.0.0.1:0"),
				internal.ShutdownTimeout(time.Second),
				internal.StartupHook(func(context.Context) error {
					assert.False(t, app.Ready())
					record("startup")
					return nil
				}),
				internal.ShutdownHook(func(context.Context) error {
					assert.False(t, app.Ready())
					record("shutdown")
					return nil
				}),
			)
		}()

		require.Eventually(t, app.Ready, 2*time.Second, 10*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("server did not stop")
		}

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"startup", "shutdown"}, steps)
		assert.False(t, app.Ready())
	})

	t.Run("startup failure", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		boom := errors.New("migrations failed")
		var shutdownRan bool

		err := app.Run(
			internal.Address("127.0.0.1:0"),
			internal.StartupHook(func(context.Context) error { return boom }),
			internal.ShutdownHook(func(context.Context) error {
				shutdownRan = true
				return nil
			}),
		)

		require.ErrorIs(t, err, boom)
		assert.True(t, shutdownRan)
		assert.False(t, app.Ready())
	})

	t.Run("shutdown hooks run in reverse", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx, cancel := context.WithCancel(context.Background())
		first := errors.New("close db")
		second := errors.New("close cache")
		var order []string

		err := app.Run(
			internal.WithContext(ctx),
			internal.Address("127.0.0.1:0"),
			internal.StartupHook(func(context.Context) error {
				cancel()
				return nil
			}),
			internal.ShutdownHook(func(context.Context) error {
				order = append(order, "db")
				return first
			}),
			internal.ShutdownHook(func(context.Context) error {
				order = append(order, "cache")
				return second
			}),
		)

		require.ErrorIs(t, err, first)
		require.ErrorIs(t, err, second)
		assert.Equal(t, []string{"cache", "db"}, order)
	})

	t.Run("listen error", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		err := app.Run(internal.Address("256.0.0.1:bad"))
		require.Error(t, err)
	})
}

func TestApp_ServeHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newTestApp(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
