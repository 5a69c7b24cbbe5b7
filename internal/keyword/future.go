package keyword

import (
	"context"
	"errors"
	"fmt"
)

// ErrHandlerPanic wraps a panic raised inside a handler.
var ErrHandlerPanic = errors.New("keyword: handler panicked")

// Future is the eventual outcome of a handler call. Synchronous and
// asynchronous handlers both surface as a Future so the dispatcher awaits one
// abstraction.
type Future[R any] struct {
	done  chan struct{}
	value R
	ok    bool
	err   error
}

// Go runs fn on a new goroutine and returns its Future. A panic in fn is
// recovered and reported as [ErrHandlerPanic].
func Go[R any](ctx context.Context, fn func(ctx context.Context) (R, bool, error)) *Future[R] {
	f := &Future[R]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.ok, f.err = call(ctx, fn)
	}()
	return f
}

// Completed returns an already resolved Future.
func Completed[R any](value R, ok bool, err error) *Future[R] {
	f := &Future[R]{done: make(chan struct{}), value: value, ok: ok, err: err}
	close(f.done)
	return f
}

// Done is closed once the outcome is available.
func (f *Future[R]) Done() <-chan struct{} { return f.done }

// Await blocks until the outcome is available or ctx ends. ok is false when
// the handler recognised its arguments but had no answer.
func (f *Future[R]) Await(ctx context.Context) (value R, ok bool, err error) {
	select {
	case <-f.done:
		return f.value, f.ok, f.err
	case <-ctx.Done():
		var zero R
		return zero, false, ctx.Err()
	}
}

func call[R any](ctx context.Context, fn func(ctx context.Context) (R, bool, error)) (value R, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			value, ok, err = zero, false, fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn(ctx)
}
