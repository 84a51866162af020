// Package sse implements a Server-Sent Events broker that tells connected
// clients when catalog resources are created through the gateway.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeTextCreated     = "text.created"
	TypeInstanceCreated = "instance.created"
	TypePersonCreated   = "person.created"
	TypeCatalogUpdated  = "catalog.updated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type createdReq struct {
	eventType string
	data      map[string]string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set and the catalog.updated
// throttle timestamp. Public methods talk to it through channels.
type Broker struct {
	catalogMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	createdCh     chan createdReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one catalog.updated event per
// throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		catalogMin:    throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		createdCh:     make(chan createdReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastCatalog time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.createdCh:
			broadcast(Event{Type: req.eventType, Data: req.data})

			now := time.Now()
			if now.Sub(lastCatalog) >= b.catalogMin {
				lastCatalog = now
				broadcast(Event{Type: TypeCatalogUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// TextCreated announces a new text.
func (b *Broker) TextCreated(id string) {
	b.created(TypeTextCreated, map[string]string{"id": id})
}

// InstanceCreated announces a new instance of textID.
func (b *Broker) InstanceCreated(textID, id string) {
	b.created(TypeInstanceCreated, map[string]string{"id": id, "text_id": textID})
}

// PersonCreated announces a new person.
func (b *Broker) PersonCreated(id string) {
	b.created(TypePersonCreated, map[string]string{"id": id})
}

func (b *Broker) created(eventType string, data map[string]string) {
	if b == nil || b.closed.Load() {
		return
	}
	select {
	case b.createdCh <- createdReq{eventType: eventType, data: data}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
