package invalidation

import (
	"context"
	"sync"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
)

// MemoryBus delivers invalidations in process. It is the fallback when no
// Valkey is configured, where the only peer is the publisher itself.
type MemoryBus struct {
	mu        sync.RWMutex
	listeners map[int]Handler
	nextID    int
}

// NewMemoryBus constructs an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{listeners: make(map[int]Handler)}
}

func (b *MemoryBus) Publish(_ context.Context, msg dashboard.Invalidation) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.listeners))
	for _, fn := range b.listeners {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(msg)
	}
	return nil
}

func (b *MemoryBus) Listen(ctx context.Context, fn Handler) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.listeners, id)
	b.mu.Unlock()
	return nil
}

var _ Bus = (*MemoryBus)(nil)
