package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// ErrTooManyConnections is returned when the connection limit is reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

// ErrSlowClient is returned when a client's send buffer is full.
var ErrSlowClient = errors.New("client send buffer full")

var errClientClosed = errors.New("client closed")

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	// maxMessageSize bounds inbound control frames.
	maxMessageSize = 4096
)

type client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	role    vessel.RoleContext
	limiter *rate.Limiter

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn, rc vessel.RoleContext, limiter *rate.Limiter) *client {
	c := &client{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		role:    rc,
		limiter: limiter,
		send:    make(chan []byte, sendBuffer),
	}
	go c.writePump()
	return c
}

// writePump drains the send buffer. A write error removes the client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	failed := func() {
		if c.hub != nil {
			c.hub.Remove(c.id)
		}
	}
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				failed()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				failed()
				return
			}
		}
	}
}

// trySend queues frame without blocking.
func (c *client) trySend(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSlowClient
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks live websocket clients by connection id and delivers frames
// to them. It is the broadcast scheduler's Sink.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	registry *subscription.Registry
	maxConns int
	rate     rate.Limit
	burst    int
}

func NewHub(registry *subscription.Registry, maxConns int, controlRate float64, controlBurst int) *Hub {
	return &Hub{
		clients:  make(map[string]*client),
		registry: registry,
		maxConns: maxConns,
		rate:     rate.Limit(controlRate),
		burst:    controlBurst,
	}
}

// Add registers a connection. A maxConns of 0 means unlimited.
func (h *Hub) Add(conn *websocket.Conn, rc vessel.RoleContext) (*client, error) {
	h.mu.Lock()
	if h.maxConns > 0 && len(h.clients) >= h.maxConns {
		h.mu.Unlock()
		metrics.WSRejected.WithLabelValues("limit").Inc()
		return nil, ErrTooManyConnections
	}
	c := newClient(h, conn, rc, rate.NewLimiter(h.rate, h.burst))
	h.clients[c.id] = c
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().Str("conn_id", c.id).Str("role", string(rc.Role)).Str("user_id", rc.UserID).
		Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")
	return c, nil
}

// Send implements broadcast.Sink.
func (h *Hub) Send(connID string, frame []byte) error {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return vessel.ErrUnknownConnection
	}
	return c.trySend(frame)
}

// Close implements broadcast.Sink. Unknown ids are ignored.
func (h *Hub) Close(connID string) {
	h.remove(connID, "dropped")
}

// Remove unregisters a client that went away and clears its
// subscriptions.
func (h *Hub) Remove(connID string) {
	h.remove(connID, "disconnected")
	h.registry.Disconnect(connID)
}

func (h *Hub) remove(connID, reason string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	c.close()
	metrics.WSConnections.Dec()
	logging.Info().Str("conn_id", connID).Str("reason", reason).Msg("websocket client removed")
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll drops every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.Remove(id)
	}
}
