package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Option configures the handler built by New and NewWithSentry.
type Option func(*options)

type options struct {
	writer     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
	level      slog.Level
	text       bool
}

func newOptions(opts ...Option) *options {
	o := &options{
		writer: os.Stdout,
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLevel sets the minimum level written.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithLevelName sets the minimum level from its name ("debug", "info", "warn", "error").
// Unknown names keep the current level.
func WithLevelName(name string) Option {
	return func(o *options) {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err == nil {
			o.level = level
		}
	}
}

// WithText switches the output format from JSON to logfmt-like text.
func WithText() Option {
	return func(o *options) {
		o.text = true
	}
}

// WithWriter sets the output destination. Defaults to stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithExtractors adds context extractors evaluated on every log call.
func WithExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		o.extractors = append(o.extractors, extractors...)
	}
}

// WithComponent adds a static "component" attribute to every record.
func WithComponent(name string) Option {
	return func(o *options) {
		if name != "" {
			o.attrs = append(o.attrs, slog.String("component", name))
		}
	}
}

func (o *options) handler() slog.Handler {
	ho := &slog.HandlerOptions{Level: o.level}
	var h slog.Handler
	if o.text {
		h = slog.NewTextHandler(o.writer, ho)
	} else {
		h = slog.NewJSONHandler(o.writer, ho)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	return h
}

// New creates a logger writing JSON to stdout at info level unless configured otherwise.
func New(opts ...Option) *slog.Logger {
	o := newOptions(opts...)
	return slog.New(WithContextAttrs(o.handler(), o.extractors...))
}
