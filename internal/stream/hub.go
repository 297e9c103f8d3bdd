package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultQueueSize = 16

// Event is the envelope pushed to every live dashboard client.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Connection is one live client's subscription handle. Its channel is
// closed by Unsubscribe (or Hub.Close); a receiver seeing the channel
// closed must stop reading and drop the connection.
type Connection struct {
	ch chan []byte
}

// Events returns the channel the hub delivers marshalled envelopes on.
func (c *Connection) Events() <-chan []byte {
	return c.ch
}

// Hub is an in-process publish point for live dashboard clients. The
// registry is the only state shared across runs; every add, remove and
// iterate happens in a single exclusive section.
type Hub struct {
	mu        sync.Mutex
	conns     map[*Connection]struct{}
	queueSize int
	closed    bool
	logger    *logrus.Logger
}

func NewHub(queueSize int, logger *logrus.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		conns:     make(map[*Connection]struct{}),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Subscribe registers a new connection. Subscribing to a closed hub
// yields a connection whose channel is already closed.
func (h *Hub) Subscribe() *Connection {
	c := &Connection{ch: make(chan []byte, h.queueSize)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(c.ch)
		return c
	}

	h.conns[c] = struct{}{}
	return c
}

// Unsubscribe removes the connection and closes its channel. Safe to
// call more than once; the disconnect path and the error path may race
// to it.
func (h *Hub) Unsubscribe(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	close(c.ch)
}

// Publish delivers one event to every current connection. Delivery is
// synchronous with respect to the publisher, but each connection only
// ever receives into its own bounded queue: a full queue drops its
// oldest pending event rather than stalling the publish.
func (h *Hub) Publish(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal stream event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		select {
		case c.ch <- payload:
		default:
			select {
			case <-c.ch:
			default:
			}
			select {
			case c.ch <- payload:
			default:
			}
		}
	}
}

// Len reports the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close drops every connection and rejects future subscriptions. Used
// on process shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for c := range h.conns {
		delete(h.conns, c)
		close(c.ch)
	}
}
