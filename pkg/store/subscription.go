package store

import "sync"

// Subscription is the handle returned by every subscribe call. Cancel
// detaches the underlying store subscription; calling it more than once is
// a no-op. There is no timeout-based auto-cancellation: the holder of the
// handle decides when delivery stops.
type Subscription struct {
	once   sync.Once
	detach func()
}

// NewSubscription wraps detach in an idempotent handle. detach may be nil.
func NewSubscription(detach func()) *Subscription {
	return &Subscription{detach: detach}
}

// Inert returns a handle whose Cancel does nothing. Subscribe calls gated
// on an unready store return one of these and never deliver.
func Inert() *Subscription {
	return &Subscription{}
}

// Cancel detaches the subscription. Safe to call multiple times and from
// any goroutine.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
	})
}
