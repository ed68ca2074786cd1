package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// sendBuffer is how many snapshots may queue for one client before it
	// counts as slow and is dropped.
	sendBuffer = 256
)

// Client is one websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	logger *log.Logger

	// cancel stops the topic watchers feeding this client.
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, cancel context.CancelFunc, logger *log.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// enqueue queues msg without blocking. A full buffer drops the client.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("dropping slow realtime client", "user", c.userID)
		c.leave()
		return false
	}
}

// leave asks the hub to drop c. It never blocks once c is closed.
func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.done:
	case <-c.hub.stopped:
	}
}

// close is called by the hub only.
func (c *Client) close() {
	c.once.Do(func() {
		c.cancel()
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump discards client frames and keeps the read deadline moving on
// pongs. It returns when the connection fails or the peer closes it.
func (c *Client) readPump() {
	defer c.leave()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("realtime read", "user", c.userID, "err", err)
			}
			return
		}
	}
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.leave()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
