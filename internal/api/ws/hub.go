package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

// Hub pushes alert events to connected websocket clients. A client that
// cannot keep up is dropped rather than blocking the broadcast.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	upgrader websocket.Upgrader
	log      *logger.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// event is the wire envelope for pushed messages
type event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeWS upgrades the connection and registers the client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.log.WithField("clients", count).Debug("Websocket client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// NotifyAlert broadcasts an alert to every connected client
func (h *Hub) NotifyAlert(alert *contracts.AlertRecord) {
	data, err := json.Marshal(event{Type: "alert", Payload: alert})
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal alert event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow consumer; close the channel and let writeLoop clean up
			go h.drop(c)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.conn.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *client) {
	defer h.drop(c)
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop drains inbound frames so control messages are processed and a
// closed peer is detected
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
