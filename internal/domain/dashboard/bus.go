package dashboard

import "sync"

// Observer receives the view after every cache mutation. It runs on the
// notifying goroutine and must not block; the view is read-only.
type Observer func(View)

type subscription struct {
	id uint64
	fn Observer
}

// Bus is the per-session observer list.
type Bus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns its unsubscribe func, which is safe to
// call more than once.
func (b *Bus) Subscribe(fn Observer) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// NotifyAll invokes every subscriber once, in subscription order, outside the lock.
func (b *Bus) NotifyAll(view View) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()
	for _, sub := range subs {
		sub.fn(view)
	}
}

// Len reports the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
