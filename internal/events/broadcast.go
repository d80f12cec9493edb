package events

import "sync"

// Broadcast is a fan-out channel hub: every Subscribe call gets its own
// buffered channel, and Publish pushes to all of them without blocking on
// a slow subscriber. The mutex-guarded subscriber map plus non-blocking
// send mirrors the request-tracking shape the teacher used for its
// p2p response routing (luxfi-evm network.Network.pendingRequests), here
// repurposed for fan-out instead of one-shot request/response.
type Broadcast[T any] struct {
	mu          sync.Mutex
	subscribers map[int]chan T
	nextID      int
	capacity    int
}

// NewBroadcast creates a Broadcast whose per-subscriber channels have the
// given buffer capacity.
func NewBroadcast[T any](capacity int) *Broadcast[T] {
	return &Broadcast[T]{
		subscribers: make(map[int]chan T),
		capacity:    capacity,
	}
}

// Subscribe registers a new listener and returns its channel along with an
// unsubscribe function that must be called when the listener is done.
func (b *Broadcast[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan T, b.capacity)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Publish pushes v to every current subscriber. A subscriber whose buffer
// is full is skipped rather than blocking the publisher — spec §5
// tolerates duplicate/absent downstream effects from slow consumers far
// better than a stalled pipeline.
func (b *Broadcast[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- v:
		default:
		}
	}
}

// SubscriberCount reports how many listeners are currently registered.
// Used by tests and by /health-adjacent diagnostics.
func (b *Broadcast[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
