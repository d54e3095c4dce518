package internal

import (
	"context"
	"net/http"
	"sync/atomic"
)

type continuationKey struct{}

// continuation is the rest of the pipeline as seen from one middleware.
// It runs at most once.
type continuation struct {
	next    func(w http.ResponseWriter, r *http.Request) error
	done    chan struct{}
	err     error
	started atomic.Bool
}

func newContinuation(next func(http.ResponseWriter, *http.Request) error) *continuation {
	return &continuation{next: next, done: make(chan struct{})}
}

func withContinuation(ctx context.Context, k *continuation) context.Context {
	return context.WithValue(ctx, continuationKey{}, k)
}

func continuationFrom(ctx context.Context) *continuation {
	k, _ := ctx.Value(continuationKey{}).(*continuation)
	return k
}

// run runs the rest of the pipeline. A nil w or r keeps the current ones.
// Only the first call runs anything; later calls return nil.
func (k *continuation) run(w http.ResponseWriter, r *http.Request) error {
	if !k.started.CompareAndSwap(false, true) {
		return nil
	}
	defer close(k.done)
	k.err = k.next(w, r)
	return k.err
}

// wait blocks until a started run finishes, which matters when it was
// started from another goroutine.
func (k *continuation) wait() {
	if k.started.Load() {
		<-k.done
	}
}

// result reports whether the rest of the pipeline ran, and its error.
func (k *continuation) result() (bool, error) {
	if !k.started.Load() {
		return false, nil
	}
	<-k.done
	return true, k.err
}

// Next runs the rest of the pipeline from inside a middleware and returns its
// error, so the middleware can wrap later stages the way net/http middleware
// wraps next. A middleware that never calls Next has the rest run after it
// returns without an error. Next returns nil without running anything when
// ctx carries no pipeline or the rest already ran.
//
// Example:
//
//	func(ctx context.Context, req *dispatch.Request, res *dispatch.Response, _ dispatch.Args) error {
//	    start := time.Now()
//	    err := dispatch.Next(ctx)
//	    res.Header().Set("X-Took", time.Since(start).String())
//	    return err
//	}
func Next(ctx context.Context) error {
	k := continuationFrom(ctx)
	if k == nil {
		return nil
	}
	return k.run(nil, nil)
}
