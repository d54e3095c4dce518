package internal

import (
	"bufio"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
)

// ResponseWriter records what reached the client: the committed status, the
// body size and whether the header went out. Hooks registered with
// OnBeforeWrite run once, right before the header is sent.
type ResponseWriter struct {
	http.ResponseWriter
	hooksMu sync.Mutex
	hooks   []func()
	size    atomic.Int64
	status  atomic.Int32
	written atomic.Bool
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	rw := &ResponseWriter{ResponseWriter: w}
	rw.status.Store(http.StatusOK)
	return rw
}

// OnBeforeWrite queues fn to run before the header is sent.
// Hooks queued after the header went out never run.
func (w *ResponseWriter) OnBeforeWrite(fn func()) {
	w.hooksMu.Lock()
	defer w.hooksMu.Unlock()
	if w.written.Load() {
		return
	}
	w.hooks = append(w.hooks, fn)
}

// WriteHeader sends the header once; later calls are no-ops.
func (w *ResponseWriter) WriteHeader(code int) {
	w.hooksMu.Lock()
	if !w.written.CompareAndSwap(false, true) {
		w.hooksMu.Unlock()
		return
	}
	hooks := w.hooks
	w.hooks = nil
	w.hooksMu.Unlock()

	w.status.Store(int32(code))
	for _, fn := range hooks {
		fn()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	n, err := w.ResponseWriter.Write(b)
	w.size.Add(int64(n))
	return n, err
}

// Status is the committed status code, 200 until the header is sent.
func (w *ResponseWriter) Status() int { return int(w.status.Load()) }

// Size is the number of body bytes written.
func (w *ResponseWriter) Size() int64 { return w.size.Load() }

// Written reports whether the header has been sent.
func (w *ResponseWriter) Written() bool { return w.written.Load() }

func (w *ResponseWriter) Flush() {
	w.WriteHeader(http.StatusOK)
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection over; the response counts as written afterwards.
func (w *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	w.written.Store(true)
	return h.Hijack()
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
