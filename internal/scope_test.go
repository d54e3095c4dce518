package internal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal"
)

func TestContainer(t *testing.T) {
	t.Parallel()

	t.Run("child falls back to parent", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		key := internal.NewToken("db")
		root.BindValue(key, "pool")

		child := root.Child()
		v, err := internal.Resolve[string](child, key)
		require.NoError(t, err)
		assert.Equal(t, "pool", v)
		assert.Same(t, root, child.Parent())
		assert.NotEqual(t, root.ID(), child.ID())
	})

	t.Run("siblings are isolated", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		key := internal.NewToken("user")
		a, b := root.Child(), root.Child()
		a.BindValue(key, "ann")

		assert.True(t, a.IsBound(key))
		assert.False(t, b.IsBound(key))
		assert.False(t, root.IsBound(key))

		_, err := b.Resolve(key)
		require.ErrorIs(t, err, internal.ErrNotBound)
	})

	t.Run("tokens with the same name are distinct", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		c.BindValue(internal.NewToken("x"), 1)
		assert.False(t, c.IsBound(internal.NewToken("x")))
	})

	t.Run("factory runs per resolution against resolving scope", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		name := internal.NewToken("name")
		greeting := internal.NewToken("greeting")
		root.BindFactory(greeting, func(r internal.Resolver) (any, error) {
			n, err := internal.Resolve[string](r, name)
			if err != nil {
				return nil, err
			}
			return "hello " + n, nil
		})

		a := root.Child()
		a.BindValue(name, "ann")
		b := root.Child()
		b.BindValue(name, "bob")

		assert.Equal(t, "hello ann", internal.MustResolve[string](a, greeting))
		assert.Equal(t, "hello bob", internal.MustResolve[string](b, greeting))
	})

	t.Run("singleton is cached in owning scope", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		key := internal.NewToken("counter")
		var calls atomic.Int32
		root.BindSingleton(key, func(internal.Resolver) (any, error) {
			return int(calls.Add(1)), nil
		})

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = root.Child().Resolve(key)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, 1, internal.MustResolve[int](root, key))
	})

	t.Run("singleton error is cached", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		key := internal.NewToken("broken")
		boom := errors.New("boom")
		var calls int
		c.BindSingleton(key, func(internal.Resolver) (any, error) {
			calls++
			return nil, boom
		})

		_, err := c.Resolve(key)
		require.ErrorIs(t, err, boom)
		_, err = c.Resolve(key)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		key := internal.NewToken("n")
		c.BindValue(key, 42)

		_, err := internal.Resolve[string](c, key)
		require.ErrorIs(t, err, internal.ErrWrongType)
		assert.Panics(t, func() { internal.MustResolve[string](c, key) })
	})

	t.Run("closed scope", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		key := internal.NewToken("k")
		c.BindValue(key, 1)
		c.Close()

		_, err := c.Resolve(key)
		require.ErrorIs(t, err, internal.ErrScopeClosed)
		assert.False(t, c.IsBound(key))
	})
}

func TestCreateRequestScope(t *testing.T) {
	t.Parallel()

	t.Run("seeds request and response", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		req := internal.NewRequest(httptest.NewRequest(http.MethodGet, "/", nil), 0)
		res := internal.NewResponse(httptest.NewRecorder())

		scope := internal.CreateRequestScope(root, req, res)
		assert.Same(t, root, scope.Parent())
		assert.Same(t, req, internal.MustResolve[*internal.Request](scope, internal.RequestKey))
		assert.Same(t, res, internal.MustResolve[*internal.Response](scope, internal.ResponseKey))

		fromCtx, ok := internal.ScopeFrom(req.Context())
		require.True(t, ok)
		assert.Same(t, scope, fromCtx)
	})

	t.Run("nests under the scope carried by the context", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		outer := root.Child()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(internal.WithScope(context.Background(), outer))

		scope := internal.CreateRequestScope(root, internal.NewRequest(r, 0), internal.NewResponse(httptest.NewRecorder()))
		assert.Same(t, outer, scope.Parent())
	})

	t.Run("nil root", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest(httptest.NewRequest(http.MethodGet, "/", nil), 0)
		scope := internal.CreateRequestScope(nil, req, internal.NewResponse(httptest.NewRecorder()))
		require.NotNil(t, scope.Parent())
	})
}
