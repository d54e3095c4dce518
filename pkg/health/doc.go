// Package health serves liveness and readiness probes.
//
// Both handlers reply with JSON:
//
//	{"status":"UP","checks":[{"title":"redis","status":"UP"}]}
//
// The readiness probe runs its checks concurrently with a shared timeout and
// answers 503 with status DOWN when any check fails. A readiness gate can hold
// the probe at 503 until the application finished starting:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler([]health.Check{
//	    {Title: "redis", Fn: redis.Healthcheck(client)},
//	}, health.WithGate(app.Ready)))
package health
