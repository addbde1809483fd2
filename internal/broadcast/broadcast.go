package broadcast

import (
	"log/slog"
	"sync"
)

const subscriberBuffer = 8

// Hub fans one payload out to every subscriber. Used to push refreshed
// portfolio snapshots to all connected SSE clients; every client receives the
// same bytes.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
	closed      bool
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan []byte]struct{})}
}

// Subscribe registers a new subscriber and returns its channel along with an
// unsubscribe function. Unsubscribe is idempotent.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan []byte, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
		})
	}

	return ch, unsubscribe
}

// Publish delivers payload to all subscribers without blocking; a subscriber
// that can't keep up loses the event (the next snapshot supersedes it anyway).
func (h *Hub) Publish(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- payload:
		default:
			slog.Warn("subscriber channel full, dropping broadcast payload")
		}
	}
}

// Close terminates all subscriptions. Publish after Close is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}
