// internal/live/hub.go
//
// Per-match fan-out of server messages and the registry of open hubs.

package live

import (
	"sync"

	"github.com/robalobadob/matchgrid/internal/game"
)

// Hub fans one session's renderer commands out to any number of subscribers.
// Delivery is best effort: a subscriber whose buffer is full misses messages.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Message]struct{}
	closed bool
}

var _ game.Renderer = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Message]struct{})}
}

// Subscribe registers a buffered channel. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Message, func()) {
	ch := make(chan Message, buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		close(ch)
	}
	h.subs = map[chan Message]struct{}{}
	h.closed = true
}

func (h *Hub) broadcast(m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

func (h *Hub) GridBuilt(g game.Grid) { h.broadcast(gridMessage(g)) }
func (h *Hub) CardFlipped(c game.Card) {
	h.broadcast(NewMessage(TypeCardFlipped, View(c)))
}
func (h *Hub) CardUnflipped(c game.Card) {
	h.broadcast(NewMessage(TypeCardUnflipped, View(c)))
}
func (h *Hub) CardMatched(c game.Card) {
	h.broadcast(NewMessage(TypeCardMatched, View(c)))
}
func (h *Hub) Tick(remaining int) {
	h.broadcast(NewMessage(TypeTick, tickPayload{Remaining: remaining}))
}
func (h *Hub) GameEnded(won bool) {
	h.broadcast(NewMessage(TypeGameEnded, endPayload{Won: won}))
}

// Registry maps session ids to hubs.
type Registry struct {
	mu   sync.Mutex
	hubs map[string]*Hub
}

func NewRegistry() *Registry {
	return &Registry{hubs: make(map[string]*Hub)}
}

// Open returns the hub for id, creating it on first use.
func (r *Registry) Open(id string) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hubs[id]
	if !ok {
		h = NewHub()
		r.hubs[id] = h
	}
	return h
}

// Close disconnects and forgets the hub for id.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	h, ok := r.hubs[id]
	delete(r.hubs, id)
	r.mu.Unlock()
	if ok {
		h.Close()
	}
}
