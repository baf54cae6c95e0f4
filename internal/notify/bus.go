// Package notify provides the per-store change notification bus.
package notify

import "sync"

// Bus fans a payload-free change signal out to its subscribers. The zero
// value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func()
}

// Subscribe registers fn and returns the function that removes it again.
// Calling the returned function more than once is a no-op.
func (b *Bus) Subscribe(fn func()) (unsubscribe func()) {
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[uint64]func())
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish invokes every current subscriber. Subscribers run outside the
// lock, so they may subscribe or unsubscribe from within the callback.
func (b *Bus) Publish() {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of active subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
