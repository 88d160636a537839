package push

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shopcore/internal/pkg/logger"
	"shopcore/internal/store/port"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected customers and pushes order events to them. It
// implements port.EventBus, so the workflow treats the browser broadcast
// exactly like any other post-commit publication.
type Hub struct {
	clients    map[uint]*client
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run owns the client registry. Start it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.customerID]; ok {
				close(old.send)
			}
			h.clients[c.customerID] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.customerID]; ok && cur == c {
				delete(h.clients, c.customerID)
				close(c.send)
			}
			h.mu.Unlock()
		}
	}
}

// Publish sends the event to the order's customer, if connected. An absent
// or slow client is not an error: browsers reconnect and re-fetch.
func (h *Hub) Publish(ctx context.Context, event port.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.mu.RLock()
	c, ok := h.clients[event.CustomerID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	select {
	case c.send <- payload:
	default:
		logger.Ctx(ctx).Warn().
			Uint("customer_id", event.CustomerID).
			Msg("dropping push event, client send buffer full")
	}
	return nil
}

// Connected reports whether a customer currently has a live connection.
func (h *Hub) Connected(customerID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[customerID]
	return ok
}

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	customerID uint
}

// ServeWS upgrades the request and registers the connection under the
// customer ID from the query string.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("customerId"), 10, 32)
	if err != nil || id == 0 {
		http.Error(w, "customerId is required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), customerID: uint(id)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients only send pings/keepalives; discard everything.
		if _, _, err := c.conn.ReadMessage(); err != nil {
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
