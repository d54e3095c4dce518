package internal_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal"
)

type loggedError struct {
	err error
	url string
}

func recordingLogger(dst *[]loggedError) internal.ErrorLogger {
	return func(_ context.Context, err error, req *internal.Request) {
		*dst = append(*dst, loggedError{err: err, url: req.URL().String()})
	}
}

func newExchange(accept string) (*internal.Request, *internal.Response, *httptest.ResponseRecorder) {
	r := httptest.NewRequest(http.MethodGet, "/things", nil)
	if accept != "" {
		r.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	return internal.NewRequest(r, 0), internal.NewResponse(rec), rec
}

func TestFunnel_Payload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		dev  bool
		want internal.ErrorPayload
	}{
		{
			name: "http error",
			err:  internal.ErrNotFound("user not found"),
			want: internal.ErrorPayload{Code: 404, Name: "NotFound", Error: "user not found"},
		},
		{
			name: "http error with data",
			err:  internal.ErrConflict("taken", internal.WithName("EmailTaken"), internal.WithData(map[string]string{"field": "email"})),
			want: internal.ErrorPayload{Code: 409, Name: "EmailTaken", Error: "taken", Data: map[string]string{"field": "email"}},
		},
		{
			name: "wrapped validation error",
			err:  fmt.Errorf("bind: %w", internal.MissingParam("id")),
			want: internal.ErrorPayload{Code: 400, Name: "BadRequest", Error: "bind: id is missing", Data: map[string]string{"param": "id", "reason": "missing"}},
		},
		{
			name: "unauthorized is masked",
			err:  internal.ErrUnauthorized("token expired", internal.WithData("secret")),
			want: internal.ErrorPayload{Code: 401, Name: "Unauthorized", Error: "Not authorized"},
		},
		{
			name: "plain error is redacted",
			err:  errors.New("db down"),
			want: internal.ErrorPayload{Code: 500, Name: "Error", Error: "Server error"},
		},
		{
			name: "plain error in development",
			err:  errors.New("db down"),
			dev:  true,
			want: internal.ErrorPayload{Code: 500, Name: "Error", Error: "Error: db down"},
		},
		{
			name: "panic in development",
			err:  &internal.PanicError{Value: "nil map"},
			dev:  true,
			want: internal.ErrorPayload{Code: 500, Name: "Error", Error: "PanicError: panic: nil map"},
		},
		{
			name: "out of range code",
			err:  internal.NewHTTPError(302, "moved"),
			want: internal.ErrorPayload{Code: 500, Name: "Error", Error: "Server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := &internal.Funnel{Development: tt.dev}
			assert.Equal(t, tt.want, f.Payload(tt.err))
		})
	}
}

func TestFunnel_Handle(t *testing.T) {
	t.Parallel()

	t.Run("json for api clients", func(t *testing.T) {
		t.Parallel()

		var logged []loggedError
		f := &internal.Funnel{Logger: recordingLogger(&logged)}
		req, res, rec := newExchange("application/json")

		require.NoError(t, f.Handle(context.Background(), internal.ErrForbidden("nope"), req, res))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"code":403,"name":"Forbidden","error":"nope"}`, rec.Body.String())
		assert.Empty(t, logged)
	})

	t.Run("json without accept header", func(t *testing.T) {
		t.Parallel()

		f := &internal.Funnel{}
		req, res, rec := newExchange("")

		require.NoError(t, f.Handle(context.Background(), internal.ErrBadRequest("bad"), req, res))
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})

	t.Run("html page for browsers", func(t *testing.T) {
		t.Parallel()

		f := &internal.Funnel{}
		req, res, rec := newExchange("text/html")

		require.NoError(t, f.Handle(context.Background(), internal.ErrNotFound("<gone>"), req, res))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "<h1>404</h1>")
		assert.Contains(t, rec.Body.String(), "&lt;gone&gt;")
	})

	t.Run("server errors are logged", func(t *testing.T) {
		t.Parallel()

		var logged []loggedError
		f := &internal.Funnel{Logger: recordingLogger(&logged)}
		req, res, rec := newExchange("application/json")
		boom := errors.New("boom")

		require.NoError(t, f.Handle(context.Background(), boom, req, res))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "boom")
		require.Len(t, logged, 1)
		assert.ErrorIs(t, logged[0].err, boom)
		assert.Equal(t, "/things", logged[0].url)
	})

	t.Run("after headers sent only logs", func(t *testing.T) {
		t.Parallel()

		var logged []loggedError
		f := &internal.Funnel{Logger: recordingLogger(&logged)}
		req, res, rec := newExchange("application/json")
		require.NoError(t, res.Text(http.StatusOK, "partial"))

		require.NoError(t, f.Handle(context.Background(), internal.ErrBadRequest("late"), req, res))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "partial", rec.Body.String())
		require.Len(t, logged, 1)
	})

	t.Run("scope error logger takes precedence", func(t *testing.T) {
		t.Parallel()

		var fromFunnel, fromScope []loggedError
		f := &internal.Funnel{Logger: recordingLogger(&fromFunnel)}
		req, res, _ := newExchange("application/json")
		scope := internal.CreateRequestScope(internal.NewContainer(), req, res)
		scope.BindValue(internal.ErrorLoggerKey, recordingLogger(&fromScope))

		require.NoError(t, f.Handle(context.Background(), errors.New("boom"), req, res))
		assert.Empty(t, fromFunnel)
		assert.Len(t, fromScope, 1)
	})
}

func TestSlogErrorLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	req, _, _ := newExchange("")

	internal.SlogErrorLogger(log)(context.Background(), &internal.PanicError{Value: "x", Stack: []byte("goroutine 1")}, req)

	out := buf.String()
	assert.Contains(t, out, `"msg":"request failed"`)
	assert.Contains(t, out, `"method":"GET"`)
	assert.Contains(t, out, `"error":"panic: x"`)
	assert.Contains(t, out, `"stack":"goroutine 1"`)
}
