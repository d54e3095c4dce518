package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "ratelimit"

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithPrefix namespaces the counter keys.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// Redis is a Store shared across instances. Each window is a counter key
// created by INCR and expired with PEXPIRE on the first hit.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis store.
// The client should be obtained from pkg/redis.Open.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Increment(ctx context.Context, key string, d time.Duration) (int64, time.Time, error) {
	k := r.key(key)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.PExpireNX(ctx, k, d)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = d
	}
	return incr.Val(), time.Now().Add(remaining), nil
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}
