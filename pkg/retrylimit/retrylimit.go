// Package retrylimit paces outbound calls with an adaptive rate limit and
// retries failed calls with exponential backoff.
//
//	lim := retrylimit.NewLimiter(5, 1, 20)
//	err := retrylimit.Do(ctx, lim, retrylimit.DefaultPolicy(), func(ctx context.Context) error {
//	    return send(ctx)
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// recoverAfter is how long the limiter waits after being throttled before it
// raises the rate again.
const recoverAfter = 10 * time.Second

// Limiter is a token bucket whose rate rises on success and halves when the
// remote side throttles us. It is safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	bucket    *rate.Limiter
	min, max  rate.Limit
	step      rate.Limit
	backoff   float64
	throttled time.Time
	now       func() time.Time
}

// NewLimiter creates a Limiter starting at initial calls per second and
// staying within [min, max].
func NewLimiter(initial, min, max rate.Limit) *Limiter {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	initial = clamp(initial, min, max)
	return &Limiter{
		bucket:  rate.NewLimiter(initial, burstFor(initial)),
		min:     min,
		max:     max,
		step:    1,
		backoff: 0.5,
		now:     time.Now,
	}
}

// Wait blocks until a call may be made or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Succeeded raises the rate one step, unless we were throttled recently.
func (l *Limiter) Succeeded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.throttled) > recoverAfter {
		l.set(l.bucket.Limit() + l.step)
	}
}

// Throttled lowers the rate after the remote side pushed back.
func (l *Limiter) Throttled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.throttled = l.now()
	l.set(rate.Limit(float64(l.bucket.Limit()) * l.backoff))
}

// Limit returns the current calls per second.
func (l *Limiter) Limit() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return float64(l.bucket.Limit())
}

func (l *Limiter) set(r rate.Limit) {
	r = clamp(r, l.min, l.max)
	if r == l.bucket.Limit() {
		return
	}
	l.bucket.SetLimit(r)
	l.bucket.SetBurst(burstFor(r))
}

func clamp(r, min, max rate.Limit) rate.Limit {
	if r < min {
		return min
	}
	if r > max {
		return max
	}
	return r
}

func burstFor(r rate.Limit) int {
	return max(1, int(r))
}

// Class tells Do what to do with an error.
type Class int

const (
	// Retry backs off and tries again.
	Retry Class = iota
	// Throttle lowers the limiter rate, then tries again after a short pause.
	Throttle
	// Fatal stops immediately.
	Fatal
)

// Classifier maps an error to a Class.
type Classifier func(error) Class

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// HTTPClassifier throttles on 429, retries on 5xx and gives up on any other
// status. Errors without a status are retried.
func HTTPClassifier(err error) Class {
	var pe *permanentError
	if errors.As(err, &pe) {
		return Fatal
	}
	var sc StatusCoder
	if !errors.As(err, &sc) {
		return Retry
	}
	switch code := sc.StatusCode(); {
	case code == http.StatusTooManyRequests:
		return Throttle
	case code >= 500 && code < 600:
		return Retry
	default:
		return Fatal
	}
}

// Policy configures Do.
type Policy struct {
	Attempts      int
	Delay         time.Duration
	MaxDelay      time.Duration
	ThrottleDelay time.Duration
	Multiplier    float64
	Jitter        bool
	Classify      Classifier
	Logger        *zap.Logger
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:      5,
		Delay:         500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		ThrottleDelay: 100 * time.Millisecond,
		Multiplier:    2,
		Jitter:        true,
		Classify:      HTTPClassifier,
	}
}

// Do calls fn until it succeeds, returns a Fatal error, the attempts run
// out, or ctx is done. lim may be nil.
func Do(ctx context.Context, lim *Limiter, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Classify == nil {
		p.Classify = HTTPClassifier
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	delay := p.Delay
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if lim != nil {
			if werr := lim.Wait(ctx); werr != nil {
				return werr
			}
		}

		if err = fn(ctx); err == nil {
			if lim != nil {
				lim.Succeeded()
			}
			return nil
		}

		var pause time.Duration
		switch p.Classify(err) {
		case Fatal:
			return err
		case Throttle:
			if lim != nil {
				lim.Throttled()
			}
			pause = p.ThrottleDelay
			logger.Debug("Throttled", zap.Int("attempt", attempt), zap.Error(err))
		default:
			pause = delay
			if p.Jitter {
				pause = jitter(pause)
			}
			delay = min(time.Duration(float64(delay)*p.Multiplier), p.MaxDelay)
			logger.Debug("Call failed, retrying", zap.Int("attempt", attempt), zap.Duration("pause", pause), zap.Error(err))
		}
		if attempt == p.Attempts {
			break
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", p.Attempts, err)
}

// jitter adds up to 25% to d.
func jitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + rand.N(d/4)
}
