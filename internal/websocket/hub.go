// Package websocket streams feed events to browser clients.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/feed"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

var ErrHubFull = errors.New("websocket hub backlog full")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// filter narrows a subscription; empty fields match everything.
type filter struct {
	eventType  string
	collection string
}

func (f filter) match(e feed.Event) bool {
	return (f.eventType == "" || f.eventType == e.Type) &&
		(f.collection == "" || f.collection == e.Collection)
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	filter filter
	hub    *Hub
}

// Hub is a feed.Sink that fans events out to connected websocket clients.
// Slow clients whose buffer fills are disconnected.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan feed.Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan feed.Event, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.WithField("client_count", n).Info("Feed client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.WithField("client_count", n).Info("Feed client disconnected")

		case e := <-h.broadcast:
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal feed event")
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				if !c.filter.match(e) {
					continue
				}
				select {
				case c.send <- data:
				default:
					delete(h.clients, c)
					close(c.send)
					h.logger.Warn("Feed client too slow, disconnecting")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues e for broadcast without blocking.
func (h *Hub) Publish(_ context.Context, e feed.Event) error {
	select {
	case h.broadcast <- e:
		return nil
	default:
		return ErrHubFull
	}
}

// ServeHTTP upgrades the request. Query parameters type and collection
// restrict which events the client receives.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		filter: filter{
			eventType:  r.URL.Query().Get("type"),
			collection: r.URL.Query().Get("collection"),
		},
		hub: h,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump only services control frames; clients do not send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Warn("Feed client read error")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
