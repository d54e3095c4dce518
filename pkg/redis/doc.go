// Package redis opens go-redis clients for the rate limiter and health probes.
//
// Open parses a redis:// or rediss:// URL, applies pool settings from Config
// and retries the initial ping with linear backoff:
//
//	client, err := redis.Open(ctx, redis.Config{URL: os.Getenv("REDIS_URL")})
//	if err != nil {
//	    return err
//	}
//	app := dispatch.NewApp(handler,
//	    dispatch.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	    dispatch.WithShutdownHook(redis.Shutdown(client)),
//	)
package redis
