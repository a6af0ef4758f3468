// Package waiter lets any component suspend until an asynchronous event
// matching a predicate arrives, or a deadline passes.
//
// Three forms are offered on top of one subscription store:
//
//	// fire an action once
//	waiter.WaitFor(w, events.TagMessage, isYes, confirm, waiter.WithTimeout(time.Minute), waiter.OnTimeout(cancel))
//
//	// wait for a value
//	msg, ok, err := waiter.Receive(w, events.TagMessage, isYes, waiter.WithTimeout(time.Minute)).Await(ctx)
//
//	// wait for a yes/no
//	ok, err := waiter.DelayUntil(ctx, w, events.TagMessage, isYes, waiter.WithTimeout(time.Minute))
//
// Producers call Dispatch from any goroutine. Every subscription registered
// under one of the event's tags is offered the event, in registration order,
// and each subscription completes at most once: either on its first match or
// on its deadline, never both.
//
// Close stops accepting events. Subscriptions still pending at that point are
// abandoned: their futures never complete and their timeouts never run.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the size of the dispatch worker pool.
const DefaultWorkers = 3

const queueSize = 256

// ErrClosed is returned once the waiter has been closed.
var ErrClosed = errors.New("waiter: closed")

// Tag names an event type.
type Tag string

// Event is anything that can be dispatched. Tags returns the exact tag of the
// event first, followed by the fixed family of broader tags it also counts as.
type Event interface {
	Tags() []Tag
}

// PanicError carries a value recovered from a panicking predicate.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("waiter: predicate panicked: %v", e.Value)
}

// Waiter matches dispatched events against registered subscriptions.
type Waiter struct {
	logger *zap.Logger

	sets sync.Map // Tag -> *subscriptionSet

	queue     chan Event
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	workers   *errgroup.Group
}

// New starts a waiter with the given number of dispatch workers.
func New(workers int, logger *zap.Logger) *Waiter {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Waiter{
		logger:  logger.Named("waiter"),
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
		workers: new(errgroup.Group),
	}
	for i := 0; i < workers; i++ {
		w.workers.Go(w.work)
	}
	return w
}

// Dispatch queues ev for matching. It blocks only while the queue is full.
func (w *Waiter) Dispatch(ctx context.Context, ev Event) error {
	if w.closed.Load() {
		return ErrClosed
	}
	select {
	case w.queue <- ev:
		return nil
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of subscriptions waiting on tag.
func (w *Waiter) Pending(tag Tag) int {
	v, ok := w.sets.Load(tag)
	if !ok {
		return 0
	}
	return v.(*subscriptionSet).len()
}

// Close stops the workers and every pending deadline. It is safe to call more
// than once.
func (w *Waiter) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.done)
		w.sets.Range(func(_, v any) bool {
			for _, sub := range v.(*subscriptionSet).snapshot() {
				sub.stopTimer()
			}
			return true
		})
		w.logger.Debug("Waiter closed")
	})
	return w.workers.Wait()
}

func (w *Waiter) work() error {
	for {
		select {
		case <-w.done:
			return nil
		case ev := <-w.queue:
			w.handle(ev)
		}
	}
}

func (w *Waiter) handle(ev Event) {
	tags := ev.Tags()
	seen := make(map[Tag]struct{}, len(tags))
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		if v, ok := w.sets.Load(tag); ok {
			w.offer(v.(*subscriptionSet), ev)
		}
	}
}

// offer hands ev to every subscription of set. Removal from the set is the
// claim: only the goroutine that removed a subscription completes it.
func (w *Waiter) offer(set *subscriptionSet, ev Event) {
	for _, sub := range set.snapshot() {
		matched, err := sub.match(ev)
		if err != nil {
			if sub.fail == nil {
				w.logger.Warn("Subscription predicate failed", zap.String("id", sub.id), zap.String("tag", string(sub.tag)), zap.Error(err))
				continue
			}
			if set.remove(sub) {
				sub.stopTimer()
				sub.fail(err)
			}
			continue
		}
		if !matched || !set.remove(sub) {
			continue
		}
		sub.stopTimer()
		w.logger.Debug("Subscription matched", zap.String("id", sub.id), zap.String("tag", string(sub.tag)),
			zap.Duration("waited", time.Since(sub.created)))
		sub.fire(ev)
	}
}

func (w *Waiter) set(tag Tag) *subscriptionSet {
	if v, ok := w.sets.Load(tag); ok {
		return v.(*subscriptionSet)
	}
	v, _ := w.sets.LoadOrStore(tag, &subscriptionSet{})
	return v.(*subscriptionSet)
}

func (w *Waiter) newSubscription(tag Tag) *subscription {
	return &subscription{
		id:      uuid.NewString(),
		tag:     tag,
		created: time.Now(),
	}
}

func (w *Waiter) add(sub *subscription, timeout time.Duration) error {
	if w.closed.Load() {
		return ErrClosed
	}
	set := w.set(sub.tag)
	set.add(sub)
	w.logger.Debug("Adding subscription", zap.String("id", sub.id), zap.String("tag", string(sub.tag)), zap.Duration("timeout", timeout))

	if timeout > 0 {
		sub.timer.Store(time.AfterFunc(timeout, func() {
			if set.remove(sub) {
				w.logger.Debug("Subscription timed out", zap.String("id", sub.id), zap.String("tag", string(sub.tag)))
				sub.expire()
			}
		}))
		if w.closed.Load() {
			sub.stopTimer()
		}
	}
	return nil
}

// safely runs a user callback, logging instead of propagating a panic.
func (w *Waiter) safely(sub *subscription, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Subscription "+what+" panicked", zap.String("id", sub.id), zap.String("tag", string(sub.tag)), zap.Any("panic", r))
		}
	}()
	fn()
}
