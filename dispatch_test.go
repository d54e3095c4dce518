package dispatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch"
	"github.com/dmitrymomot/dispatch/parse"
)

type createNote struct {
	Title string   `json:"title" validate:"required"`
	Tags  []string `json:"tags"`
}

var notesKey = dispatch.NewToken("notes")

type noteStore struct {
	notes map[int64]string
}

type showNote struct {
	dispatch.Base
	store *noteStore
}

func newShowNote(r dispatch.Resolver) (dispatch.Handler, error) {
	base, err := dispatch.NewBase(r)
	if err != nil {
		return nil, err
	}
	store, err := dispatch.Resolve[*noteStore](r, notesKey)
	if err != nil {
		return nil, err
	}
	return &showNote{Base: base, store: store}, nil
}

func (h *showNote) Handle(_ context.Context, args dispatch.Args) error {
	id := dispatch.Arg[int64](args, 0)
	title, ok := h.store.notes[id]
	if !ok {
		return dispatch.ErrNotFound("note not found")
	}
	return h.JSON(map[string]any{"id": id, "title": title})
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	root := dispatch.NewContainer()
	root.BindValue(notesKey, &noteStore{notes: map[int64]string{1: "first"}})

	reg := dispatch.NewRegistry()
	reg.Middleware("api-key", dispatch.Func(func(_ context.Context, _ *dispatch.Request, _ *dispatch.Response, args dispatch.Args) error {
		if dispatch.Arg[string](args, 0) != "secret" {
			return dispatch.ErrUnauthorized("bad key")
		}
		return nil
	}), 100, dispatch.Any("/api/*"), dispatch.Header(0, "X-API-Key", parse.Default(parse.String(), "")))

	reg.Route("notes.show", newShowNote,
		dispatch.Get("/api/notes/{id}"),
		dispatch.Path(0, "id", parse.Int64()),
	)
	reg.Route("notes.create", dispatch.Func(func(_ context.Context, _ *dispatch.Request, res *dispatch.Response, args dispatch.Args) error {
		note := dispatch.Arg[createNote](args, 0)
		return res.JSON(http.StatusCreated, map[string]any{"title": note.Title, "tags": len(note.Tags)})
	}),
		dispatch.Post("/api/notes"),
		dispatch.Body(0, parse.Model[createNote]()),
	)

	h, err := dispatch.NewHandler(reg, root, nil)
	require.NoError(t, err)
	return h
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		key      string
		wantCode int
		wantBody string
	}{
		{name: "show", method: http.MethodGet, target: "/api/notes/1", key: "secret", wantCode: http.StatusOK, wantBody: `{"id":1,"title":"first"}`},
		{name: "missing note", method: http.MethodGet, target: "/api/notes/2", key: "secret", wantCode: http.StatusNotFound, wantBody: `{"code":404,"name":"NotFound","error":"note not found"}`},
		{name: "bad id", method: http.MethodGet, target: "/api/notes/abc", key: "secret", wantCode: http.StatusBadRequest},
		{name: "no key", method: http.MethodGet, target: "/api/notes/1", wantCode: http.StatusUnauthorized, wantBody: `{"code":401,"name":"Unauthorized","error":"Not authorized"}`},
		{name: "create", method: http.MethodPost, target: "/api/notes", key: "secret", body: `{"title":"hello","tags":["a","b"]}`, wantCode: http.StatusCreated, wantBody: `{"title":"hello","tags":2}`},
		{name: "create invalid", method: http.MethodPost, target: "/api/notes", key: "secret", body: `{"tags":["a"]}`, wantCode: http.StatusBadRequest},
		{name: "unknown", method: http.MethodGet, target: "/elsewhere", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				r.Header.Set("Content-Type", "application/json")
			}
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
