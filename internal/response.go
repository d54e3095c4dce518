package internal

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/dispatch/pkg/jsoncodec"
)

// Response is the response side of a dispatched request.
// The Cache-Control policy is held here and written once, together with Date,
// right before the header.
type Response struct {
	w         *ResponseWriter
	cache     atomic.Pointer[string]
	handledBy string
	status    int
}

// NewResponse wraps w. A *ResponseWriter from an outer dispatch is reused,
// so nested dispatch shares a single commit state.
func NewResponse(w http.ResponseWriter) *Response {
	res := &Response{status: http.StatusOK}
	res.w = res.track(w)
	return res
}

// track wraps w so Cache-Control and Date are written right before its header.
func (r *Response) track(w http.ResponseWriter) *ResponseWriter {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	rw.OnBeforeWrite(func() { r.emitHeaders(rw.Header()) })
	return rw
}

func (r *Response) emitHeaders(h http.Header) {
	if cc := r.CacheControl(); cc != "" {
		h.Set("Cache-Control", cc)
	}
	if h.Get("Date") == "" {
		h.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
}

// writeThrough sends everything written to the response through w until
// restore is called. Nothing changes, and swapped is false, when w already is
// the response's writer or the header went out.
func (r *Response) writeThrough(w http.ResponseWriter) (restore func(), swapped bool) {
	prev := r.w
	if w == nil || w == http.ResponseWriter(prev) || prev.Written() {
		return func() {}, false
	}
	r.w = r.track(w)
	return func() { r.w = prev }, true
}

// Writer returns the tracking writer, usable wherever an http.ResponseWriter is expected.
func (r *Response) Writer() *ResponseWriter {
	return r.w
}

func (r *Response) Header() http.Header {
	return r.w.Header()
}

// SetHeader sets a response header. Cache-Control is routed through the
// response's cache policy so it is emitted exactly once.
func (r *Response) SetHeader(key, value string) {
	if http.CanonicalHeaderKey(key) == "Cache-Control" {
		r.cache.Store(&value)
		return
	}
	r.w.Header().Set(key, value)
}

// CacheControl returns the Cache-Control value that will be sent.
func (r *Response) CacheControl() string {
	if cc := r.cache.Load(); cc != nil {
		return *cc
	}
	return ""
}

// SetCacheControl replaces the cache policy. It has no effect once headers are sent.
func (r *Response) SetCacheControl(p CachePolicy) {
	cc := p.String()
	r.cache.Store(&cc)
}

// SetStatus sets the status used by End when nothing else was written.
func (r *Response) SetStatus(code int) {
	r.status = code
}

// StatusCode returns the status sent, or the pending status if the header is not sent yet.
func (r *Response) StatusCode() int {
	if r.w.Written() {
		return r.w.Status()
	}
	return r.status
}

// Size returns the number of body bytes written.
func (r *Response) Size() int64 {
	return r.w.Size()
}

// HeadersSent reports whether the response header has been committed.
func (r *Response) HeadersSent() bool {
	return r.w.Written()
}

// HandledBy returns the ID of the route that claimed the request, or "".
func (r *Response) HandledBy() string {
	return r.handledBy
}

func (r *Response) claim(id string) {
	r.handledBy = id
}

func (r *Response) JSON(code int, v any) error {
	data, err := jsoncodec.Marshal(v)
	if err != nil {
		return err
	}
	return r.Blob(code, "application/json; charset=utf-8", data)
}

func (r *Response) Text(code int, s string) error {
	return r.Blob(code, "text/plain; charset=utf-8", []byte(s))
}

func (r *Response) HTML(code int, s string) error {
	return r.Blob(code, "text/html; charset=utf-8", []byte(s))
}

// Blob writes data with the given content type.
func (r *Response) Blob(code int, contentType string, data []byte) error {
	r.w.Header().Set("Content-Type", contentType)
	r.w.WriteHeader(code)
	_, err := r.w.Write(data)
	return err
}

// Stream copies src to the response.
func (r *Response) Stream(code int, contentType string, src io.Reader) error {
	r.w.Header().Set("Content-Type", contentType)
	r.w.WriteHeader(code)
	_, err := io.Copy(r.w, src)
	return err
}

// Render renders a templ component as HTML.
func (r *Response) Render(ctx context.Context, code int, component templ.Component) error {
	r.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	r.w.WriteHeader(code)
	return component.Render(ctx, r.w)
}

// Redirect sends a redirect to location. Non-3xx codes fall back to 302 Found.
func (r *Response) Redirect(code int, location string) error {
	if code < http.StatusMultipleChoices || code > http.StatusPermanentRedirect {
		code = http.StatusFound
	}
	r.w.Header().Set("Location", location)
	r.w.WriteHeader(code)
	return nil
}

func (r *Response) NoContent(code int) error {
	r.w.WriteHeader(code)
	return nil
}

// End finalizes the response, sending the pending status if nothing was written.
func (r *Response) End() error {
	r.w.WriteHeader(r.status)
	return nil
}
