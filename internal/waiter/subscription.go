package waiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// subscription is one registered waiter. Whoever removes it from its set
// (a matching dispatch or the deadline timer) owns its completion.
type subscription struct {
	id      string
	tag     Tag
	created time.Time

	match  func(Event) (bool, error)
	fire   func(Event) // must not block the dispatch worker
	fail   func(error) // nil: a predicate failure counts as no match
	expire func()      // runs on the deadline timer's goroutine

	timer atomic.Pointer[time.Timer]
}

func (s *subscription) stopTimer() {
	if t := s.timer.Load(); t != nil {
		t.Stop()
	}
}

// subscriptionSet keeps the subscriptions of one tag in registration order.
type subscriptionSet struct {
	mu   sync.Mutex
	subs []*subscription
}

func (s *subscriptionSet) add(sub *subscription) {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

// remove reports whether sub was present, i.e. whether the caller claimed it.
func (s *subscriptionSet) remove(sub *subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.subs {
		if cur == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (s *subscriptionSet) snapshot() []*subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

func (s *subscriptionSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
