package internal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span is one timed section of a request.
type Span struct {
	Err      error
	Label    string
	Group    string
	Start    time.Duration // offset from the session start
	Duration time.Duration
}

// Session records the spans of a single request. It is bound into the
// request scope under SessionKey and frozen by Finish.
type Session struct {
	started  time.Time
	tracer   trace.Tracer
	observe  func(group string, d time.Duration)
	id       string
	spans    []Span
	mu       sync.Mutex
	finished bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// TraceWith mirrors every Auto span as an OpenTelemetry span.
func TraceWith(t trace.Tracer) SessionOption {
	return func(s *Session) {
		s.tracer = t
	}
}

// ObserveWith calls fn with the group and duration of every recorded span.
func ObserveWith(fn func(group string, d time.Duration)) SessionOption {
	return func(s *Session) {
		s.observe = fn
	}
}

// NewSession starts an instrumentation session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		started: time.Now(),
		id:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the unique session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start opens a span and returns the function that closes it.
// Calling the stop function more than once records the span only once.
func (s *Session) Start(label string) func() Span {
	return s.startGroup(label, "")
}

func (s *Session) startGroup(label, group string) func() Span {
	begin := time.Now()
	var (
		once sync.Once
		span Span
	)
	return func() Span {
		once.Do(func() {
			span = Span{
				Label:    label,
				Group:    group,
				Start:    begin.Sub(s.started),
				Duration: time.Since(begin),
			}
			s.record(span)
		})
		return span
	}
}

// Auto runs fn inside a span. The span is recorded whether fn succeeds, fails
// or panics; fn's error is returned unchanged and panics are re-raised.
func (s *Session) Auto(ctx context.Context, label, group string, fn func(ctx context.Context) error) (err error) {
	var otelSpan trace.Span
	if s.tracer != nil {
		ctx, otelSpan = s.tracer.Start(ctx, label,
			trace.WithAttributes(attribute.String("dispatch.group", group)),
		)
	}

	begin := time.Now()
	defer func() {
		rec := recover()
		spanErr := err
		if rec != nil {
			spanErr = &PanicError{Value: rec}
		}

		s.record(Span{
			Label:    label,
			Group:    group,
			Start:    begin.Sub(s.started),
			Duration: time.Since(begin),
			Err:      spanErr,
		})

		if otelSpan != nil {
			if spanErr != nil {
				otelSpan.RecordError(spanErr)
				otelSpan.SetStatus(codes.Error, spanErr.Error())
			}
			otelSpan.End()
		}

		if rec != nil {
			panic(rec)
		}
	}()

	return fn(ctx)
}

func (s *Session) record(span Span) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.spans = append(s.spans, span)
	s.mu.Unlock()

	if s.observe != nil {
		s.observe(span.Group, span.Duration)
	}
}

// Logs returns the recorded spans in completion order.
func (s *Session) Logs() []Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Span, len(s.spans))
	copy(out, s.spans)
	return out
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.started)
}

// Finish freezes the session. Spans closed afterwards are dropped.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
}

// ConsoleReport renders spans as aligned human readable lines.
func ConsoleReport(spans []Span) []string {
	lines := make([]string, 0, len(spans))
	for _, sp := range spans {
		group := sp.Group
		if group == "" {
			group = "-"
		}
		line := fmt.Sprintf("%-14s %-32s +%8.2fms %8.2fms", group, sp.Label, ms(sp.Start), ms(sp.Duration))
		if sp.Err != nil {
			line += " error=" + sp.Err.Error()
		}
		lines = append(lines, line)
	}
	return lines
}

// ServerTimingReport renders spans as a Server-Timing header value.
//
//	total;dur=12.50, route_users.show;desc="route";dur=10.01
func ServerTimingReport(spans []Span) string {
	entries := make([]string, 0, len(spans))
	for _, sp := range spans {
		var b strings.Builder
		b.WriteString(timingToken(sp.Group, sp.Label))
		if sp.Group != "" {
			b.WriteString(`;desc="` + sp.Group + `"`)
		}
		b.WriteString(";dur=" + strconv.FormatFloat(ms(sp.Duration), 'f', 2, 64))
		entries = append(entries, b.String())
	}
	return strings.Join(entries, ", ")
}

// timingToken builds a metric name restricted to HTTP token characters.
func timingToken(group, label string) string {
	name := label
	if group != "" {
		name = group + "_" + label
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("!#$%&'*+-.^_`|~", r):
			return r
		default:
			return '_'
		}
	}, name)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
