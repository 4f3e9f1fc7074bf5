package stream

import (
	"sync"

	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"go.uber.org/zap"
)

// subscriberBuffer is the per-subscriber channel capacity. A consumer
// that falls further behind than this starts losing frames.
const subscriberBuffer = 16

// Subscriber receives broadcast frames over a buffered channel
type Subscriber struct {
	hub *Hub
	ch  chan []byte

	closeOnce sync.Once
}

// Events returns the channel frames are delivered on. The channel is
// closed when the subscriber or the hub shuts down.
func (s *Subscriber) Events() <-chan []byte {
	return s.ch
}

// Close unregisters the subscriber and closes its channel. Safe to call
// multiple times.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		// Removing first guarantees no broadcast can reach the channel
		// once it is closed.
		s.hub.remove(s)
		close(s.ch)
	})
}

// Hub fans frames out to local subscribers. Delivery is non-blocking:
// a subscriber whose buffer is full misses the frame rather than
// stalling the hub.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	closed      bool
	logger      *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed hub
// returns a subscriber whose channel is already closed.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		hub: h,
		ch:  make(chan []byte, subscriberBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.closeOnce.Do(func() { close(sub.ch) })
		return sub
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	metrics.EventSubscribers.Inc()
	return sub
}

// Broadcast delivers one frame to every subscriber
func (h *Hub) Broadcast(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.subscribers) == 0 {
		return
	}

	metrics.EventsBroadcastTotal.Inc()
	for sub := range h.subscribers {
		select {
		case sub.ch <- frame:
		default:
			h.logger.Warn("Subscriber channel full, dropping frame",
				zap.Int("size", len(frame)),
			)
			metrics.EventsDroppedTotal.Inc()
		}
	}
}

// Subscribers returns the number of registered subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close shuts down the hub and closes every subscriber channel. Safe to
// call multiple times.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (h *Hub) remove(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[s]
	if ok {
		delete(h.subscribers, s)
	}
	h.mu.Unlock()

	if ok {
		metrics.EventSubscribers.Dec()
	}
}
