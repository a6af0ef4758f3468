package cooldown

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker stores cooldown expiries. It is safe for concurrent use; reads
// evict expired entries so a sweep is only needed to bound memory.
type Tracker struct {
	entries sync.Map // key -> time.Time
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) { t.logger = logger.Named("cooldown") }
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Now returns the tracker's current time.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Remaining returns the whole seconds left on key, rounded up. Absent or
// expired keys return 0; expired keys are removed.
func (t *Tracker) Remaining(key string) int {
	v, ok := t.entries.Load(key)
	if !ok {
		return 0
	}
	left := v.(time.Time).Sub(t.now())
	if left <= 0 {
		// Only drop the entry we looked at; a concurrent Apply may have
		// replaced it already.
		t.entries.CompareAndDelete(key, v)
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Apply sets key to expire d from now, overwriting any previous expiry.
func (t *Tracker) Apply(key string, d time.Duration) {
	t.entries.Store(key, t.now().Add(d))
}

// Sweep removes every expired entry and returns how many were removed.
func (t *Tracker) Sweep() int {
	now := t.now()
	removed := 0
	t.entries.Range(func(k, v any) bool {
		if !v.(time.Time).After(now) && t.entries.CompareAndDelete(k, v) {
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (t *Tracker) Len() int {
	n := 0
	t.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
