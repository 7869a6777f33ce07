// Package event is a small synchronous publish/subscribe bus used to wire
// invalidation between the settings store, the catalog and the cache tiers.
package event

import "sync"

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Bus delivers values of type T to its subscribers in subscription order.
// The zero value is ready to use.
type Bus[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs []subscriber[T]
}

// Subscribe registers fn and returns a func that removes it again.
// Calling the returned func more than once is a no-op.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish calls every subscriber with v on the calling goroutine.
// Handlers run without the bus lock held, so they may subscribe or
// unsubscribe themselves.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	subs := make([]subscriber[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len reports the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
