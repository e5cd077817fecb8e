// Package eventbus is the in-memory publish/subscribe bus linking corpus
// ingestion to the embedding pipeline: ingest publishes, the embedder
// consumes.
//
// Design:
//   - buffered channel per subscriber (buffer=100)
//   - Publish is non-blocking: the event is dropped when a buffer is full
//   - Subscribe returns a read-only channel; the caller owns the loop
//   - no persistence: events are fire-and-forget, the embedder's pending
//     scan catches anything dropped
package eventbus

import "sync"

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
}

const defaultBufferSize = 100

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
}

// New returns a new in-memory Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string][]chan Event),
	}
}

// Subscribe registers a subscriber for topic and returns a read-only
// channel. The caller must consume it to keep future publishes flowing.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, defaultBufferSize)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends an Event to all subscribers of topic. A subscriber with
// a full buffer misses the event.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
