package waiter

import (
	"context"
	"time"
)

type options struct {
	timeout   time.Duration
	onTimeout func()
}

// Option configures a subscription.
type Option func(*options)

// WithTimeout sets the subscription deadline. Zero or negative means the
// subscription waits until it matches.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// OnTimeout runs fn once if the deadline passes before a match. Only used by
// WaitFor.
func OnTimeout(fn func()) Option {
	return func(o *options) { o.onTimeout = fn }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// matcher adapts a typed predicate. Events of another Go type never match.
func matcher[E Event](cond func(E) bool) func(Event) (bool, error) {
	return func(ev Event) (matched bool, err error) {
		e, ok := ev.(E)
		if !ok {
			return false, nil
		}
		defer func() {
			if r := recover(); r != nil {
				matched, err = false, &PanicError{Value: r}
			}
		}()
		return cond(e), nil
	}
}

// WaitFor runs action with the first event under tag that satisfies cond,
// then forgets the subscription. The action runs on its own goroutine, so it
// may itself wait for further events. A panicking cond counts as no match; a
// panicking action is logged and still counts as matched.
func WaitFor[E Event](w *Waiter, tag Tag, cond func(E) bool, action func(E), opts ...Option) error {
	o := buildOptions(opts)
	sub := w.newSubscription(tag)
	sub.match = matcher(cond)
	sub.fire = func(ev Event) {
		go w.safely(sub, "action", func() { action(ev.(E)) })
	}
	sub.expire = func() {
		if o.onTimeout != nil {
			w.safely(sub, "timeout", o.onTimeout)
		}
	}
	return w.add(sub, o.timeout)
}

// Receive returns a future resolved with the first event under tag that
// satisfies cond. It resolves without a value once the deadline passes, and
// with an error if cond panics.
func Receive[E Event](w *Waiter, tag Tag, cond func(E) bool, opts ...Option) *Future[E] {
	o := buildOptions(opts)
	f := newFuture[E]()
	var zero E

	sub := w.newSubscription(tag)
	sub.match = matcher(cond)
	sub.fire = func(ev Event) { f.complete(ev.(E), true, nil) }
	sub.fail = func(err error) { f.complete(zero, false, err) }
	sub.expire = func() { f.complete(zero, false, nil) }

	if err := w.add(sub, o.timeout); err != nil {
		f.complete(zero, false, err)
	}
	return f
}

// DelayUntil blocks until an event under tag satisfies cond (true) or the
// deadline passes (false). Without a timeout it only returns on a match, a
// predicate failure or ctx being done.
func DelayUntil[E Event](ctx context.Context, w *Waiter, tag Tag, cond func(E) bool, opts ...Option) (bool, error) {
	_, ok, err := Receive(w, tag, cond, opts...).Await(ctx)
	return ok, err
}
