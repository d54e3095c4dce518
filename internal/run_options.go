package internal

import (
	"context"
	"log/slog"
	"time"
)

// Hook is a lifecycle callback run by App.Run.
type Hook func(ctx context.Context) error

// RunOption configures App.Run.
type RunOption func(*runConfig)

type runConfig struct {
	ctx             context.Context
	logger          *slog.Logger
	address         string
	startup         []Hook
	shutdown        []Hook
	shutdownTimeout time.Duration
}

func buildRunConfig(opts ...RunOption) *runConfig {
	cfg := &runConfig{
		ctx:             context.Background(),
		address:         defaultAddress,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Address sets the listen address (default ":8080").
func Address(addr string) RunOption {
	return func(c *runConfig) {
		if addr != "" {
			c.address = addr
		}
	}
}

// Logger sets the lifecycle logger. Lifecycle events are not logged without one.
func Logger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = l
	}
}

// ShutdownTimeout bounds the graceful shutdown, hooks included (default 30s).
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// StartupHook runs fn once the listener is open and before the readiness
// probe turns ready. Hooks run in order; the first failure aborts startup.
func StartupHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.startup = append(c.startup, fn)
		}
	}
}

// ShutdownHook runs fn after the server stopped accepting requests.
// Hooks run in reverse registration order, like deferred calls, and all of
// them run even if some fail.
//
//	dispatch.ShutdownHook(redis.Shutdown(client))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.shutdown = append(c.shutdown, fn)
		}
	}
}

// WithContext sets the parent context of the server.
// Cancelling it stops the server the same way SIGTERM does.
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}
