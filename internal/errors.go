package internal

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the dispatch engine.
var (
	ErrInvalidRegistry = errors.New("dispatch: invalid registry")
	ErrRegistrySealed  = errors.New("dispatch: registry is sealed")
	ErrInvalidPattern  = errors.New("dispatch: invalid path pattern")
	ErrScopeClosed     = errors.New("dispatch: scope closed")
	ErrNotBound        = errors.New("dispatch: key not bound")
	ErrWrongType       = errors.New("dispatch: resolved value has unexpected type")
)

// errorNames maps status codes to the symbolic names used in error payloads.
var errorNames = map[int]string{
	http.StatusBadRequest:            "BadRequest",
	http.StatusUnauthorized:          "Unauthorized",
	http.StatusForbidden:             "Forbidden",
	http.StatusNotFound:              "NotFound",
	http.StatusMethodNotAllowed:      "MethodNotAllowed",
	http.StatusNotAcceptable:         "NotAcceptable",
	http.StatusConflict:              "Conflict",
	http.StatusPreconditionFailed:    "PreconditionFailed",
	http.StatusRequestEntityTooLarge: "RequestEntityTooLarge",
	http.StatusUnsupportedMediaType:  "UnsupportedMediaType",
	http.StatusTooManyRequests:       "TooManyRequests",
	http.StatusInternalServerError:   "ServerError",
	http.StatusNotImplemented:        "NotImplemented",
	http.StatusServiceUnavailable:    "ServiceUnavailable",
	http.StatusGatewayTimeout:        "GatewayTimeout",
}

// HTTPError is an error carrying everything the error funnel needs to render it:
// status code, symbolic name, user-facing message and optional structured detail.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Data is optional structured detail rendered as the "data" field.
	Data any

	// Name is the symbolic error name. Derived from Code when empty.
	Name string

	// Message is the user-facing error message.
	Message string

	// Code is the HTTP status code (e.g., 404, 500).
	Code int
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// ErrorName returns the symbolic name of the error.
func (e *HTTPError) ErrorName() string {
	if e.Name != "" {
		return e.Name
	}
	if name, ok := errorNames[e.Code]; ok {
		return name
	}
	return "Error"
}

// ErrorData returns the structured detail attached to the error.
func (e *HTTPError) ErrorData() any {
	return e.Data
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithName(name string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Name = name
	}
}

func WithData(data any) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Data = data
	}
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// Convenience constructors for the error taxonomy.

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, message, opts...)
}

func ErrNotAcceptable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotAcceptable, message, opts...)
}

func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusConflict, message, opts...)
}

func ErrPreconditionFailed(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusPreconditionFailed, message, opts...)
}

func ErrRequestEntityTooLarge(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusRequestEntityTooLarge, message, opts...)
}

func ErrUnsupportedMediaType(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnsupportedMediaType, message, opts...)
}

func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusTooManyRequests, message, opts...)
}

func ErrServerError(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

func ErrNotImplemented(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotImplemented, message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message, opts...)
}

func ErrGatewayTimeout(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusGatewayTimeout, message, opts...)
}

// ValidationReason distinguishes absent input from input that failed coercion.
type ValidationReason string

const (
	ReasonMissing   ValidationReason = "missing"
	ReasonMalformed ValidationReason = "malformed"
)

// ValidationError reports a parameter that could not be bound.
// It renders as a 400 BadRequest.
type ValidationError struct {
	Err    error
	Param  string
	Reason ValidationReason
}

// MissingParam reports a required parameter that was absent.
func MissingParam(label string) *ValidationError {
	return &ValidationError{Param: label, Reason: ReasonMissing}
}

// MalformedParam reports a parameter that was present but failed coercion or validation.
func MalformedParam(label string, err error) *ValidationError {
	return &ValidationError{Param: label, Reason: ReasonMalformed, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Reason == ReasonMissing || e.Err == nil {
		return fmt.Sprintf("%s is %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("%s is %s: %v", e.Param, e.Reason, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

func (e *ValidationError) ErrorName() string {
	return errorNames[http.StatusBadRequest]
}

func (e *ValidationError) ErrorData() any {
	return map[string]string{
		"param":  e.Param,
		"reason": string(e.Reason),
	}
}

// PanicError wraps a value recovered from a panicking pipeline stage.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) StatusCode() int {
	return http.StatusInternalServerError
}

func (e *PanicError) ErrorName() string {
	return "PanicError"
}

// Helper functions for error inspection.

func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// AsHTTPError extracts the HTTPError from an error chain if present.
// Returns nil if the error is not an HTTPError.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}

// AsValidationError extracts the ValidationError from an error chain if present.
func AsValidationError(err error) *ValidationError {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	return nil
}

// AsPanicError extracts the PanicError from an error chain if present.
func AsPanicError(err error) *PanicError {
	var pErr *PanicError
	if errors.As(err, &pErr) {
		return pErr
	}
	return nil
}
