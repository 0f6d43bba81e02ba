// Package adminfeed broadcasts resolution-engine lifecycle events (query
// registered, solved, cancelled; plugin dispatched, plugin result reported)
// to connected WebSocket admin clients. It has no bearing on query
// resolution itself — Hub is purely an observability fan-out, using the
// familiar register/unregister/broadcast-channel hub pattern.
package adminfeed

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playdar/resolverd/internal/playdarlog"
)

// sendQueueDepth bounds each client's outbound buffer; a client that falls
// this far behind is considered slow and is disconnected.
const sendQueueDepth = 256

// Hub maintains the set of connected admin clients and fans out Events to
// all of them.
type Hub struct {
	clients map[*client]bool

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu sync.RWMutex
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// NewHub constructs an idle Hub; call Run in its own goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, sendQueueDepth),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]bool),
	}
}

// Run processes registration and broadcast in an endless loop with no stop
// signal; callers run this for the daemon's lifetime as `go hub.Run()`.
func (h *Hub) Run() {
	log := playdarlog.HTTP()
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Str("client", c.id).Int("total", n).Msg("admin feed client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Str("client", c.id).Int("total", n).Msg("admin feed client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*client
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, c := range slow {
					if _, ok := h.clients[c]; ok {
						close(c.send)
						delete(h.clients, c)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Publish encodes ev and broadcasts it to every connected admin client.
func (h *Hub) Publish(ev Event) {
	data, err := ev.marshal()
	if err != nil {
		playdarlog.HTTP().Warn().Err(err).Msg("marshal admin feed event")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		playdarlog.HTTP().Warn().Msg("admin feed broadcast channel full, dropping event")
	}
}

// ClientCount reports the number of connected admin clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades conn into a tracked client and starts its read/write pumps.
func (h *Hub) Serve(conn *websocket.Conn, clientID string) {
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendQueueDepth), id: clientID}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound traffic; the admin feed is publish-only, but a
// read loop is required to observe client-initiated close and keep the
// pong handler serviced.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
