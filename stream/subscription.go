package stream

import (
	"sync"
	"sync/atomic"
)

// Subscription is the handle of an active observer-to-source binding.
type Subscription interface {
	// Unsubscribe cancels the binding. It is idempotent.
	Unsubscribe()
	// IsUnsubscribed reports whether Unsubscribe has been called.
	IsUnsubscribed() bool
}

type subscription struct {
	closed        atomic.Bool
	once          sync.Once
	onUnsubscribe func()
}

// NewSubscription returns a Subscription that runs onUnsubscribe exactly once,
// on the first Unsubscribe call. onUnsubscribe may be nil.
func NewSubscription(onUnsubscribe func()) Subscription {
	return &subscription{onUnsubscribe: onUnsubscribe}
}

// EmptySubscription returns a Subscription with nothing to cancel.
func EmptySubscription() Subscription {
	return &subscription{}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.closed.Store(true)
		if s.onUnsubscribe != nil {
			s.onUnsubscribe()
		}
	})
}

func (s *subscription) IsUnsubscribed() bool {
	return s.closed.Load()
}
