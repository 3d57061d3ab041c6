// Package ws pushes server events to WebSocket clients grouped by topic.
// Clients subscribe to exactly one topic (a user id for the notification
// feed) and only receive; inbound frames other than control frames are
// discarded.
//
//	hub := ws.NewHub()
//	go hub.Run(ctx)
//
//	router.Get("/notifications/ws", "", ctx.Wrap(func(c *ctx.Context) {
//	    hub.Serve(c.W, c.R, c.Query("userId"))
//	}))
//
//	hub.Publish("2", notification)
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/faultline/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// ErrHubStopped is returned once Run has exited.
var ErrHubStopped = errors.New("ws: hub stopped")

// ─── Client ───────────────────────────────────────────────────────────────────

type client struct {
	hub   *Hub
	topic string
	conn  *websocket.Conn
	send  chan []byte
}

// readPump drains the connection so pongs and close frames are processed.
func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws: unexpected close", "topic", c.topic, "error", err)
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
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// ─── Hub ──────────────────────────────────────────────────────────────────────

type envelope struct {
	topic string
	data  []byte
}

// Hub owns every connection. All map access happens on the Run goroutine.
type Hub struct {
	upgrader   websocket.Upgrader
	topics     map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	publish    chan envelope
	done       chan struct{}
	clients    atomic.Int64
}

// NewHub creates a Hub. Start it with Run.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		topics:     make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		publish:    make(chan envelope, 256),
		done:       make(chan struct{}),
	}
}

// SetCheckOrigin replaces the default allow-all origin check.
func (h *Hub) SetCheckOrigin(fn func(*http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

// Run is the event loop. It returns when ctx is done, after closing every
// client connection.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, set := range h.topics {
			for c := range set {
				close(c.send)
			}
		}
		h.topics = map[string]map[*client]struct{}{}
		h.clients.Store(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			set, ok := h.topics[c.topic]
			if !ok {
				set = make(map[*client]struct{})
				h.topics[c.topic] = set
			}
			set[c] = struct{}{}
			h.clients.Add(1)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.publish:
			for c := range h.topics[msg.topic] {
				select {
				case c.send <- msg.data:
				default:
					// Slow reader; its writePump exits when send closes.
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	set, ok := h.topics[c.topic]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.topics, c.topic)
	}
	close(c.send)
	h.clients.Add(-1)
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish JSON-encodes v and queues it for every client on topic.
func (h *Hub) Publish(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ws: marshal: %w", err)
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.publish <- envelope{topic: topic, data: data}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Serve upgrades the request and subscribes the connection to topic. On
// failure the upgrader has already written an HTTP error.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string) error {
	select {
	case <-h.done:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return ErrHubStopped
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("ws: upgrade: %w", err)
	}

	c := &client{hub: h, topic: topic, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int { return int(h.clients.Load()) }
