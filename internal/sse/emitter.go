package sse

import (
	"context"
	"sync"
)

// Message is one server-sent event: a named event plus its JSON-encodable
// payload.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Emitter manages SSE subscriber channels per stream name and broadcasts
// messages to them. Used by the display surfaces to push snapshots, urgency
// re-ticks and new-order alerts to their front-ends.
type Emitter struct {
	mu      sync.RWMutex
	clients map[string][]chan Message
}

func NewEmitter() *Emitter {
	return &Emitter{clients: make(map[string][]chan Message)}
}

// Subscribe adds a client to a stream. The client is removed when the context
// is done.
func (e *Emitter) Subscribe(ctx context.Context, stream string) chan Message {
	clientChan := make(chan Message, 10)

	e.mu.Lock()
	e.clients[stream] = append(e.clients[stream], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(stream, clientChan)
	}()

	return clientChan
}

// Broadcast sends a message to every subscriber of a stream. Sends are
// non-blocking so a slow client cannot stall the emitter; a full buffer just
// drops that message for that client.
func (e *Emitter) Broadcast(stream string, msg Message) {
	e.mu.RLock()
	clients := e.clients[stream]
	e.mu.RUnlock()

	for _, clientChan := range clients {
		select {
		case clientChan <- msg:
		default:
		}
	}
}

// ClientCount returns the number of clients subscribed to a stream.
func (e *Emitter) ClientCount(stream string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[stream])
}

func (e *Emitter) remove(stream string, clientChan chan Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[stream]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[stream] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[stream]) == 0 {
		delete(e.clients, stream)
	}
}
