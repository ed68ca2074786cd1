// Package realtime pushes projection snapshots to websocket clients. Each
// connection subscribes to topics; the server sends a full snapshot per
// topic on connect and again after every relevant change.
package realtime

import (
	"context"

	"github.com/joestump/frequency/internal/metrics"
)

// Hub owns the set of connected clients. Clients that fall behind are
// dropped by the hub rather than blocking the watcher that feeds them.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	count      chan chan int
	stopped    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		stopped:    make(chan struct{}),
	}
}

// Run serves register and unregister requests until ctx ends, then closes
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			metrics.RealtimeClients.Inc()

		case c := <-h.unregister:
			h.remove(c)

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// join registers c, or closes it if the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		c.close()
		return false
	}
}

// Len reports the number of connected clients, 0 once the hub has stopped.
func (h *Hub) Len() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	metrics.RealtimeClients.Dec()
	c.close()
}
