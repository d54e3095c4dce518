package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
)

// ErrorLogger receives failures that must reach operators: 5xx errors and
// errors raised after the response was already sent.
type ErrorLogger func(ctx context.Context, err error, req *Request)

// SlogErrorLogger reports failures through log.
func SlogErrorLogger(log *slog.Logger) ErrorLogger {
	return func(ctx context.Context, err error, req *Request) {
		attrs := []slog.Attr{
			slog.String("method", req.Method()),
			slog.String("url", req.URL().String()),
			slog.Any("error", err),
		}
		var pe *PanicError
		if errors.As(err, &pe) && len(pe.Stack) > 0 {
			attrs = append(attrs, slog.String("stack", string(pe.Stack)))
		}
		log.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
	}
}

// ErrorPayload is the wire representation of a failed request.
type ErrorPayload struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error"`
	Name  string `json:"name"`
	Code  int    `json:"code"`
}

// Funnel is the default ErrorHandler. It renders errors as JSON or as a
// minimal HTML page depending on the Accept header.
type Funnel struct {
	// Logger receives 5xx errors and errors after headers were sent.
	// An ErrorLogger bound on the request scope under ErrorLoggerKey takes precedence.
	Logger ErrorLogger

	// Development exposes server error messages instead of a generic message.
	Development bool
}

// Handle implements ErrorHandler. Once headers are sent it only logs.
func (f *Funnel) Handle(ctx context.Context, err error, req *Request, res *Response) error {
	logErr := f.logger(req)

	if res.HeadersSent() {
		logErr(ctx, err, req)
		return nil
	}

	p := f.Payload(err)
	if p.Code >= http.StatusInternalServerError {
		logErr(ctx, err, req)
	}

	if req.Accepts("application/json") != "" {
		return res.JSON(p.Code, p)
	}
	return res.Render(ctx, p.Code, errorPage(p))
}

func (f *Funnel) logger(req *Request) ErrorLogger {
	if scope, ok := ScopeFrom(req.Context()); ok && scope.IsBound(ErrorLoggerKey) {
		v, _ := scope.Resolve(ErrorLoggerKey)
		switch l := v.(type) {
		case ErrorLogger:
			return l
		case func(context.Context, error, *Request):
			return l
		}
	}
	if f.Logger != nil {
		return f.Logger
	}
	return func(context.Context, error, *Request) {}
}

// Payload derives the user-facing payload for err.
// Errors exposing StatusCode() keep their status, name and data. Unauthorized
// errors are masked. Server errors are redacted unless Development is set.
func (f *Funnel) Payload(err error) ErrorPayload {
	p := ErrorPayload{
		Error: err.Error(),
		Code:  http.StatusInternalServerError,
		Name:  "Error",
	}

	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		p.Code = coded.StatusCode()
	}
	var named interface{ ErrorName() string }
	if errors.As(err, &named) {
		p.Name = named.ErrorName()
	}
	var detailed interface{ ErrorData() any }
	if errors.As(err, &detailed) {
		p.Data = detailed.ErrorData()
	}

	if p.Code < http.StatusBadRequest || p.Code > 599 {
		p.Code = http.StatusInternalServerError
	}

	switch {
	case p.Code == http.StatusUnauthorized:
		p.Error = "Not authorized"
		p.Data = nil
	case p.Code >= http.StatusInternalServerError:
		if f.Development {
			p.Error = p.Name + ": " + p.Error
		} else {
			p.Error = "Server error"
		}
		p.Name = "Error"
		p.Data = nil
	}

	return p
}

func errorPage(p ErrorPayload) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<html lang="en"><body><h1>`+strconv.Itoa(p.Code)+
			`</h1><hr/><h2>`+templ.EscapeString(p.Error)+`</h2></body></html>`)
		return err
	})
}
