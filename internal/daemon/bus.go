package daemon

import "sync"

// #region bus

// Handler receives one notification. Handlers should be non-blocking;
// delivery runs inline on the ingesting goroutine.
type Handler func(Notification)

// Bus fans notifications out to subscribers in subscription order.
type Bus struct {
	mu       sync.RWMutex
	order    []string
	handlers map[string]Handler
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string]Handler)}
}

// Subscribe registers a handler under id, replacing any previous handler
// with the same id while keeping its original position.
func (b *Bus) Subscribe(id string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[id]; !ok {
		b.order = append(b.order, id)
	}
	b.handlers[id] = h
}

// Unsubscribe removes a subscriber.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[id]; !ok {
		return
	}
	delete(b.handlers, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Broadcast delivers one notification to every subscriber, in
// subscription order.
func (b *Bus) Broadcast(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, id := range b.order {
		b.handlers[id](n)
	}
}

// #endregion bus
