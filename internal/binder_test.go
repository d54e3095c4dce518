package internal_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal"
)

func intParser(raw any, label string) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, internal.MissingParam(label)
	}
	return strconv.Atoi(s)
}

func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("positional with gaps", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/?b=2&a=1", nil)
		args, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{
			{Index: 3, Source: internal.SourceQuery, Name: "b"},
			{Index: 0, Source: internal.SourceQuery, Name: "a"},
		})
		require.NoError(t, err)
		require.Equal(t, 4, args.Len())
		assert.Equal(t, "1", args.At(0))
		assert.Nil(t, args.At(1))
		assert.Nil(t, args.At(2))
		assert.Equal(t, "2", args.At(3))
		assert.Nil(t, args.At(10))
	})

	t.Run("no declarations", func(t *testing.T) {
		t.Parallel()

		args, err := internal.Extract(internal.NewRequest(httptest.NewRequest(http.MethodGet, "/", nil), 0), nil)
		require.NoError(t, err)
		assert.Zero(t, args.Len())
	})

	t.Run("repeated query values", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/?tag=a&tag=b&one=x", nil)
		args, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{
			{Index: 0, Source: internal.SourceQuery, Name: "tag"},
			{Index: 1, Source: internal.SourceQuery, Name: "one"},
			{Index: 2, Source: internal.SourceQuery, Name: "none"},
			{Index: 3, Source: internal.SourceQueryAll},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, args.At(0))
		assert.Equal(t, "x", args.At(1))
		assert.Nil(t, args.At(2))
		assert.Equal(t, url.Values{"tag": {"a", "b"}, "one": {"x"}}, args.At(3))
	})

	t.Run("headers are case-insensitive", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header["x-raw-key"] = []string{"raw"}
		r.Header.Set("X-Tenant", "acme")

		args, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{
			{Index: 0, Source: internal.SourceHeader, Name: "x-tenant"},
			{Index: 1, Source: internal.SourceHeader, Name: "X-RAW-KEY"},
		})
		require.NoError(t, err)
		assert.Equal(t, "acme", args.At(0))
		assert.Equal(t, "raw", args.At(1))
	})

	t.Run("cookies", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "session", Value: "abc"})

		args, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{
			{Index: 0, Source: internal.SourceCookie, Name: "session"},
			{Index: 1, Source: internal.SourceCookie, Name: "missing"},
		})
		require.NoError(t, err)
		assert.Equal(t, "abc", args.At(0))
		assert.Nil(t, args.At(1))
	})

	t.Run("json body fields", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ann","age":30}`))
		r.Header.Set("Content-Type", "application/json")

		args, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{
			{Index: 0, Source: internal.SourceBody, Name: "name"},
			{Index: 1, Source: internal.SourceBody, Name: "age"},
			{Index: 2, Source: internal.SourceBodyAll},
		})
		require.NoError(t, err)
		assert.Equal(t, "ann", args.At(0))
		assert.Equal(t, float64(30), args.At(1))
		assert.Equal(t, map[string]any{"name": "ann", "age": float64(30)}, args.At(2))
	})

	t.Run("form body fields", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=ann&tag=a&tag=b"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		args, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{
			{Index: 0, Source: internal.SourceBody, Name: "name"},
			{Index: 1, Source: internal.SourceBody, Name: "tag"},
		})
		require.NoError(t, err)
		assert.Equal(t, "ann", args.At(0))
		assert.Equal(t, []string{"a", "b"}, args.At(1))
	})

	t.Run("malformed json body", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		r.Header.Set("Content-Type", "application/json")

		_, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{
			{Index: 0, Source: internal.SourceBody, Name: "name"},
		})
		herr := internal.AsHTTPError(err)
		require.NotNil(t, herr)
		assert.Equal(t, http.StatusBadRequest, herr.StatusCode())
	})

	t.Run("oversized body", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
		r.Header.Set("Content-Type", "text/plain")

		_, err := internal.Extract(internal.NewRequest(r, 16), []internal.ParameterDeclaration{
			{Index: 0, Source: internal.SourceBodyAll},
		})
		herr := internal.AsHTTPError(err)
		require.NotNil(t, herr)
		assert.Equal(t, http.StatusRequestEntityTooLarge, herr.StatusCode())
	})

	t.Run("parser receives label", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
		args, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{
			{Index: 0, Source: internal.SourceQuery, Name: "limit", Parser: intParser},
		})
		require.NoError(t, err)
		assert.Equal(t, 10, internal.Arg[int](args, 0))
	})

	t.Run("missing vs malformed", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
		decl := internal.ParameterDeclaration{Index: 2, Source: internal.SourceQuery, Name: "limit", Parser: intParser}

		_, err := internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{decl})
		verr := internal.AsValidationError(err)
		require.NotNil(t, verr)
		assert.Equal(t, internal.ReasonMalformed, verr.Reason)
		assert.Equal(t, "param[2]", verr.Param)
		assert.Equal(t, http.StatusBadRequest, verr.StatusCode())

		decl.Name = "other"
		decl.Label = "limit"
		_, err = internal.Extract(internal.NewRequest(r, 0), []internal.ParameterDeclaration{decl})
		verr = internal.AsValidationError(err)
		require.NotNil(t, verr)
		assert.Equal(t, internal.ReasonMissing, verr.Reason)
		assert.Equal(t, "limit is missing", verr.Error())
		assert.Equal(t, map[string]string{"param": "limit", "reason": "missing"}, verr.ErrorData())
	})
}

func TestArg(t *testing.T) {
	t.Parallel()

	args := internal.Args{"a", nil, 3}
	assert.Equal(t, "a", internal.Arg[string](args, 0))
	assert.Equal(t, "", internal.Arg[string](args, 1))
	assert.Equal(t, 0, internal.Arg[int](args, 0))

	v, ok := internal.ArgOK[int](args, 2)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = internal.ArgOK[int](args, 5)
	assert.False(t, ok)
}
