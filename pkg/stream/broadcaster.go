// Package stream fans events out to connected subscribers. Delivery order
// between events follows publish order; deduplication and redelivery are out
// of scope, and a subscriber that cannot keep up is dropped rather than
// buffered without bound.
package stream

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/blockfeed/sidecar/pkg/sse"
)

// Delivery is one event ready for transport: the wire record plus the
// transport-assigned id. The ApiVersion sentinel never passes through here;
// it is written per-session by the server and carries no id.
type Delivery struct {
	ID   uint64
	Type sse.EventType
	Data []byte
}

// Broadcaster distributes deliveries to all current subscribers.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]chan Delivery
	buffer int
	closed bool
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster whose subscribers each get a channel
// buffered to the given size.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{
		subs:   make(map[string]chan Delivery),
		buffer: buffer,
		logger: slog.Default().With("component", "broadcaster"),
	}
}

// Subscribe registers a new subscriber and returns its id, receive channel
// and cancel function. The channel is closed on cancel, on drop, and on
// broadcaster shutdown.
func (b *Broadcaster) Subscribe() (string, <-chan Delivery, func()) {
	id := uuid.NewString()
	ch := make(chan Delivery, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return id, ch, func() {}
	}
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() { b.remove(id) }
	return id, ch, cancel
}

// Publish hands a delivery to every subscriber. A subscriber whose buffer is
// full is dropped; failed deliveries are not retried.
func (b *Broadcaster) Publish(d Delivery) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- d:
		default:
			b.logger.Warn("dropping slow subscriber", "subscriber", id, "event_id", d.ID)
			delete(b.subs, id)
			close(ch)
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops all subscribers and refuses further publishes.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Broadcaster) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}
