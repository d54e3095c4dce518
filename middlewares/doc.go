// Package middlewares provides dispatch middleware for common cross-cutting concerns.
//
// Every middleware is a dispatch Factory registered on the Registry with a
// priority. Zero and above runs before the route, highest first; negative
// runs after it.
//
// # Request ID
//
// RequestID assigns a unique ID to each request. An ID already present in the
// X-Request-ID or X-Correlation-ID header is kept, otherwise a UUID is generated.
//
//	reg.Middleware("request-id", middlewares.RequestID(), 1000)
//
// Use RequestIDExtractor with the logger to add request_id to every log entry:
//
//	log := logger.New(logger.WithExtractors(middlewares.RequestIDExtractor()))
//
// # CORS
//
// CORS answers preflight requests and adds CORS headers to all responses.
//
//	reg.Middleware("cors", middlewares.CORS(
//	    middlewares.WithAllowOrigins("https://app.example.com"),
//	    middlewares.WithAllowCredentials(),
//	), 2000)
//
// # Rate Limit
//
// RateLimit rejects clients over quota with 429 Too Many Requests:
//
//	limiter := ratelimit.New(ratelimit.NewRedis(client), 100, time.Minute)
//	reg.Middleware("rate-limit", middlewares.RateLimit(limiter), 500, dispatch.Any("/api/*"))
//
// # Timeout
//
// Timeout puts a deadline on the request context of every later stage and
// fails requests that ran past it with 504 Gateway Timeout:
//
//	reg.Middleware("timeout", middlewares.Timeout(5*time.Second), 950)
//
// # Access Log
//
// AccessLog writes one line per successful request:
//
//	reg.Middleware("access-log", middlewares.AccessLog(log), -1000)
//
// # Recommended Order
//
//	reg.Middleware("cors", middlewares.CORS(), 2000)
//	reg.Middleware("request-id", middlewares.RequestID(), 1000)
//	reg.Middleware("timeout", middlewares.Timeout(5*time.Second), 950)
//	reg.Middleware("rate-limit", middlewares.RateLimit(limiter), 500)
//	reg.Middleware("access-log", middlewares.AccessLog(log), -1000)
package middlewares
