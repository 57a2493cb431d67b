package swappable

import (
	"sync/atomic"
	"time"
)

// Lease is a counted reference to one published instance.
//
// A leased instance is not released while the lease is held, even after it
// has been replaced. Release must be called exactly when the caller is done;
// further calls are no-ops.
type Lease[T any] struct {
	slot     *slot[T]
	released atomic.Bool
}

// Acquire leases the current instance.
func (s *Singleton[Opt, T]) Acquire() *Lease[T] {
	for {
		cur := s.current.Load()
		// A slot at zero was retired and released; the pointer has moved on.
		if cur.retain() {
			return &Lease[T]{slot: cur}
		}
	}
}

// Value returns the leased instance.
func (l *Lease[T]) Value() T {
	return l.slot.value
}

// Generation returns the generation the leased instance was published as.
func (l *Lease[T]) Generation() uint64 {
	return l.slot.generation
}

// PublishedAt returns when the leased instance was published.
func (l *Lease[T]) PublishedAt() time.Time {
	return l.slot.publishedAt
}

// Release drops the lease.
func (l *Lease[T]) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.slot.drop()
	}
}
