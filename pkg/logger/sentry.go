package logger

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig configures the Sentry sink of NewWithSentry.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	// MinLevel is the lowest level shipped to Sentry as a log. Zero means warn.
	MinLevel slog.Level `yaml:"-"`
}

// sentryLevels returns the levels kept as Sentry logs: every standard level
// from the floor up. Errors additionally become issues.
func (c SentryConfig) sentryLevels() []slog.Level {
	floor := c.MinLevel
	if floor == 0 {
		floor = slog.LevelWarn
	}
	var levels []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= floor {
			levels = append(levels, l)
		}
	}
	return levels
}

// NewWithSentry builds a logger writing to the configured writer and, when
// cfg.DSN is set, to Sentry. Without a DSN, or if Sentry fails to start, it
// behaves like New. Context extractors apply to both sinks.
func NewWithSentry(cfg SentryConfig, opts ...Option) *slog.Logger {
	o := newOptions(opts...)
	base := o.handler()
	if cfg.DSN == "" {
		return slog.New(WithContextAttrs(base, o.extractors...))
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	})
	if err != nil {
		slog.New(base).Error("sentry disabled", slog.String("error", err.Error()))
		return slog.New(WithContextAttrs(base, o.extractors...))
	}

	sink := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   cfg.sentryLevels(),
	}.NewSentryHandler(context.Background())

	return slog.New(WithContextAttrs(fanout{base, sink}, o.extractors...))
}
