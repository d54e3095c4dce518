package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/pkg/redis"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	t.Run("empty URL", func(t *testing.T) {
		t.Parallel()

		_, err := redis.Options(redis.Config{})
		require.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})

	t.Run("invalid scheme", func(t *testing.T) {
		t.Parallel()

		for _, url := range []string{"http://localhost:6379", "localhost:6379", "tcp://localhost:6379"} {
			_, err := redis.Options(redis.Config{URL: url})
			require.ErrorIs(t, err, redis.ErrFailedToParseURL, url)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		opts, err := redis.Options(redis.Config{URL: "redis://localhost:6379/2"})
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 10, opts.PoolSize)
		assert.Equal(t, 5*time.Second, opts.DialTimeout)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()

		opts, err := redis.Options(redis.Config{URL: "rediss://localhost:6380", PoolSize: 3, ReadTimeout: time.Second})
		require.NoError(t, err)
		assert.Equal(t, 3, opts.PoolSize)
		assert.Equal(t, time.Second, opts.ReadTimeout)
		assert.NotNil(t, opts.TLSConfig)
	})
}

func TestHealthcheckNilClient(t *testing.T) {
	t.Parallel()

	err := redis.Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, redis.ErrHealthcheckFailed)
}
