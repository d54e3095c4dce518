package middlewares

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
)

// DefaultCORSMaxAge is how long browsers may cache a preflight answer.
const DefaultCORSMaxAge = 12 * time.Hour

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOriginFunc, when set, replaces AllowOrigins.
	AllowOriginFunc func(origin string) bool
	// AllowOrigins lists accepted origins. "*" accepts any origin.
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        time.Duration
	// AllowCredentials echoes the request origin instead of "*".
	AllowCredentials bool
}

// DefaultCORSConfig returns the configuration CORS starts from.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       DefaultCORSMaxAge,
	}
}

// CORSOption configures CORSConfig.
type CORSOption func(*CORSConfig)

func WithAllowOrigins(origins ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowOrigins = origins }
}

func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowOriginFunc = fn }
}

func WithAllowMethods(methods ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowMethods = methods }
}

func WithAllowHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowHeaders = headers }
}

func WithExposeHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.ExposeHeaders = headers }
}

func WithAllowCredentials() CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowCredentials = true }
}

// WithMaxAge sets the preflight cache duration. Zero omits Access-Control-Max-Age.
func WithMaxAge(d time.Duration) CORSOption {
	return func(cfg *CORSConfig) { cfg.MaxAge = d }
}

// corsPolicy is a CORSConfig with its header values rendered once.
type corsPolicy struct {
	allow       func(origin string) bool
	methods     string
	headers     string
	expose      string
	maxAge      string
	echoOrigin  bool
	credentials bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		methods:     strings.Join(cfg.AllowMethods, ", "),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.FormatInt(int64(cfg.MaxAge/time.Second), 10)
	}

	wildcard := slices.Contains(cfg.AllowOrigins, "*")
	switch {
	case cfg.AllowOriginFunc != nil:
		p.allow = cfg.AllowOriginFunc
		p.echoOrigin = true
	case wildcard:
		p.allow = func(string) bool { return true }
		p.echoOrigin = cfg.AllowCredentials
	default:
		origins := slices.Clone(cfg.AllowOrigins)
		p.allow = func(origin string) bool { return slices.Contains(origins, origin) }
		p.echoOrigin = true
	}
	return p
}

// CORS returns a middleware adding CORS headers for accepted origins.
// A preflight request (OPTIONS with Access-Control-Request-Method) is
// answered with 204 and ends the request before routing. Requests from
// origins that are not accepted get no CORS headers and proceed normally.
//
//	reg.Middleware("cors", middlewares.CORS(middlewares.WithAllowOrigins("https://app.example.com")), 2000)
func CORS(opts ...CORSOption) internal.Factory {
	cfg := DefaultCORSConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := newCORSPolicy(cfg)

	return internal.Func(func(_ context.Context, req *internal.Request, res *internal.Response, _ internal.Args) error {
		origin := req.Header("Origin")
		if origin == "" || !p.allow(origin) {
			return nil
		}

		h := res.Header()
		h.Add("Vary", "Origin")
		if p.echoOrigin {
			h.Set("Access-Control-Allow-Origin", origin)
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		if p.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if p.expose != "" {
			h.Set("Access-Control-Expose-Headers", p.expose)
		}

		if req.Method() != http.MethodOptions || req.Header("Access-Control-Request-Method") == "" {
			return nil
		}

		h.Add("Vary", "Access-Control-Request-Method")
		h.Add("Vary", "Access-Control-Request-Headers")
		h.Set("Access-Control-Allow-Methods", p.methods)
		h.Set("Access-Control-Allow-Headers", p.headers)
		if p.maxAge != "" {
			h.Set("Access-Control-Max-Age", p.maxAge)
		}
		res.SetCacheControl(internal.CachePolicy{Kind: internal.CacheNoStore})
		return res.NoContent(http.StatusNoContent)
	})
}
