package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Message is the envelope sent to stream subscribers.
type Message struct {
	Type    string       `json:"type"`
	Message string       `json:"message,omitempty"`
	Event   *types.Event `json:"event,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans registry events out to connected WebSocket clients. A client that
// cannot keep up is disconnected rather than allowed to block publishers.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. A nil checkOrigin falls back to the upgrader's
// same-origin check.
func NewHub(logger *logging.Logger, metrics *monitoring.Metrics, checkOrigin func(*http.Request) bool) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   logger.Named("stream"),
		metrics:  metrics,
		clients:  make(map[*client]struct{}),
	}
}

// Publish broadcasts ev. It never blocks.
func (h *Hub) Publish(ev types.Event) {
	data, err := sonic.Marshal(Message{Type: "event", Event: &ev})
	if err != nil {
		h.logger.Error("Failed to encode event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
			h.metrics.RecordWSMessage()
		default:
			h.logger.Warn("Dropping slow stream client")
			h.detach(c)
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.detach(c)
	}
}

// HandleConnection upgrades the request and serves the client until it leaves.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.attach(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.enqueue(cl, Message{Type: "system", Message: "connected"})

	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) attach(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.IncWSConnections()
	return true
}

// detach must be called with h.mu held.
func (h *Hub) detach(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.DecWSConnections()
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	h.detach(c)
	h.mu.Unlock()
}

func (h *Hub) enqueue(c *client, msg Message) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.detach(c)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Stream read error", zap.Error(err))
			}
			return
		}
		switch msg.Type {
		case "ping":
			h.enqueue(c, Message{Type: "pong"})
		default:
			h.enqueue(c, Message{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
