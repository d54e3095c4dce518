package middlewares_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/middlewares"
)

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("passes through when the route completes in time", func(t *testing.T) {
		t.Parallel()

		var hasDeadline bool
		rec := serve(t, httptest.NewRequest(http.MethodGet, "/", nil),
			func(ctx context.Context, _ *internal.Request, res *internal.Response, _ internal.Args) error {
				_, hasDeadline = ctx.Deadline()
				if err := ctx.Err(); err != nil {
					return err
				}
				return res.Text(http.StatusOK, "ok")
			},
			middleware{id: "timeout", factory: middlewares.Timeout(time.Second), priority: 100},
		)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
		assert.True(t, hasDeadline)
	})

	t.Run("returns 504 when the route exceeds the deadline", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&buf, nil))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept", "application/json")
		rec := serve(t, r,
			func(ctx context.Context, _ *internal.Request, _ *internal.Response, _ internal.Args) error {
				<-ctx.Done()
				return ctx.Err()
			},
			middleware{id: "timeout", factory: middlewares.Timeout(10*time.Millisecond, middlewares.WithTimeoutLogger(log)), priority: 100},
		)

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":504`)
		assert.Contains(t, buf.String(), `"msg":"request timeout"`)
	})

	t.Run("later middleware sees the deadline", func(t *testing.T) {
		t.Parallel()

		var seen bool
		inner := internal.Func(func(_ context.Context, req *internal.Request, _ *internal.Response, _ internal.Args) error {
			_, seen = req.Context().Deadline()
			return nil
		})
		rec := serve(t, httptest.NewRequest(http.MethodGet, "/", nil), okRoute,
			middleware{id: "timeout", factory: middlewares.Timeout(time.Second), priority: 100},
			middleware{id: "inner", factory: inner, priority: 10},
		)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, seen)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, httptest.NewRequest(http.MethodGet, "/", nil),
			func(context.Context, *internal.Request, *internal.Response, internal.Args) error {
				return internal.ErrConflict("already exists")
			},
			middleware{id: "timeout", factory: middlewares.Timeout(time.Second), priority: 100},
		)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("uses default timeout when zero provided", func(t *testing.T) {
		t.Parallel()

		var remaining time.Duration
		serve(t, httptest.NewRequest(http.MethodGet, "/", nil),
			func(ctx context.Context, _ *internal.Request, res *internal.Response, _ internal.Args) error {
				if dl, ok := ctx.Deadline(); ok {
					remaining = time.Until(dl)
				}
				return res.Text(http.StatusOK, "ok")
			},
			middleware{id: "timeout", factory: middlewares.Timeout(0), priority: 100},
		)

		assert.Greater(t, remaining, middlewares.DefaultTimeout-5*time.Second)
		assert.LessOrEqual(t, remaining, middlewares.DefaultTimeout)
	})
}

func TestTimeoutError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", &middlewares.TimeoutError{Duration: time.Second})

	require.True(t, middlewares.IsTimeoutError(err))
	te, ok := middlewares.AsTimeoutError(err)
	require.True(t, ok)
	assert.Equal(t, time.Second, te.Duration)
	assert.Equal(t, http.StatusGatewayTimeout, te.StatusCode())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "request timeout after 1s", te.Error())

	assert.False(t, middlewares.IsTimeoutError(errors.New("other")))
}
