// Package syncbridge relays room membership and property-change facts
// between server processes sharing one storage backend. Single-instance
// deployments never construct a bridge and pay none of its cost.
package syncbridge

import (
	"context"
	"sync"
)

// PubSub is the publish/subscribe fabric the bridge runs on. Delivery is
// best-effort, at-most-once per publish, FIFO only within one publisher's
// sequential calls to the same channel.
type PubSub interface {
	// Publish sends payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe registers fn for messages on channel and returns a cancel
	// function that stops delivery.
	Subscribe(ctx context.Context, channel string, fn func(payload []byte)) (func(), error)
}

// MemoryPubSub is an in-process PubSub, used in tests and useful for
// exercising the bridge without a broker.
type MemoryPubSub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func([]byte)
}

// NewMemoryPubSub constructs an empty in-process fabric.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: make(map[string]map[int]func([]byte))}
}

func (m *MemoryPubSub) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	handlers := make([]func([]byte), 0, len(m.subs[channel]))
	for _, fn := range m.subs[channel] {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(payload)
	}
	return nil
}

func (m *MemoryPubSub) Subscribe(_ context.Context, channel string, fn func([]byte)) (func(), error) {
	m.mu.Lock()
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[int]func([]byte))
	}
	id := m.next
	m.next++
	m.subs[channel][id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs[channel], id)
		m.mu.Unlock()
	}, nil
}
