package hub

import (
	"log"
	"sync"

	"github.com/tinytelemetry/chatlog/internal/model"
)

const subscriberBuffer = 64

// Hub broadcasts poll events to every subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan model.PollEvent]struct{}
	closed      bool
	dropped     int64
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subscribers: make(map[chan model.PollEvent]struct{})}
}

// Subscribe returns a buffered channel that receives every published event,
// and a func that unsubscribes and closes it.
func (h *Hub) Subscribe() (<-chan model.PollEvent, func()) {
	ch := make(chan model.PollEvent, subscriberBuffer)
	h.mu.Lock()
	if h.closed {
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(ch) })
	}
}

func (h *Hub) remove(ch chan model.PollEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Publish sends ev to all subscribers. A subscriber whose buffer is full
// misses the event.
func (h *Hub) Publish(ev model.PollEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			if h.dropped == 1 || h.dropped%100 == 0 {
				log.Printf("hub: dropped event for slow consumer (total dropped: %d)", h.dropped)
			}
		}
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns the total number of events dropped for slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Close closes every subscriber channel. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = map[chan model.PollEvent]struct{}{}
	h.closed = true
}
