package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"readinglist/internal/logger"
)

// Source is a store that announces changes
type Source interface {
	Subscribe(fn func()) func()
}

// clientBuffer bounds the events queued for a slow client; further events
// are dropped for that client
const clientBuffer = 16

// EventHub fans store change notifications out to event stream clients
type EventHub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	unsubs  []func()
	closed  bool
	logger  *logger.Logger
}

// NewEventHub subscribes to every source; events carry the source name
func NewEventHub(sources map[string]Source, log *logger.Logger) *EventHub {
	hub := &EventHub{
		clients: make(map[chan string]struct{}),
		logger:  log,
	}
	for name, src := range sources {
		name := name
		hub.unsubs = append(hub.unsubs, src.Subscribe(func() {
			hub.broadcast(name)
		}))
	}
	return hub
}

func (e *EventHub) broadcast(store string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for ch := range e.clients {
		select {
		case ch <- store:
		default:
			e.logger.Debug("Dropped '%s' event for slow client", store)
		}
	}
}

// add registers a client; ok is false once the hub is closed
func (e *EventHub) add() (ch chan string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, false
	}
	ch = make(chan string, clientBuffer)
	e.clients[ch] = struct{}{}
	return ch, true
}

func (e *EventHub) remove(ch chan string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.clients[ch]; ok {
		delete(e.clients, ch)
		close(ch)
	}
}

// Clients returns the number of connected clients
func (e *EventHub) Clients() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.clients)
}

// Close unsubscribes from the sources and ends every stream
func (e *EventHub) Close() {
	for _, unsub := range e.unsubs {
		unsub()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for ch := range e.clients {
		delete(e.clients, ch)
		close(ch)
	}
}

// Events streams store changes as server-sent events until the client goes
// away or the hub closes
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	ch, ok := h.events.add()
	if !ok {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.events.remove(ch)

	// Streams outlive the server's write timeout
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("Could not clear write deadline: %v", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Error("Event stream does not support flushing: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case store, open := <-ch:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: {\"store\":%q}\n\n", store); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
