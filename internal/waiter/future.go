package waiter

import (
	"context"
	"sync"
)

// Future is a single-value result that completes exactly once.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	ok    bool
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete resolves the future. Later calls are ignored and report false.
func (f *Future[T]) complete(value T, ok bool, err error) bool {
	completed := false
	f.once.Do(func() {
		f.value, f.ok, f.err = value, ok, err
		close(f.done)
		completed = true
	})
	return completed
}

// Done is closed once the future has a result.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future completes or ctx is done. ok is false when
// the deadline elapsed before a matching event arrived. Giving up on ctx does
// not remove the subscription; only its deadline does.
func (f *Future[T]) Await(ctx context.Context) (value T, ok bool, err error) {
	select {
	case <-f.done:
		return f.value, f.ok, f.err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}
