// Package stream pushes committed order changes to websocket clients
// watching a single order.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/medorders-backend/internal/events"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message is the frame sent to watchers of an order.
type Message struct {
	Type          events.Type         `json:"type"`
	OrderID       string              `json:"orderId"`
	From          enums.OrderStatus   `json:"from,omitempty"`
	To            enums.OrderStatus   `json:"to,omitempty"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus,omitempty"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

type client struct {
	orderID uuid.UUID
	conn    *websocket.Conn
	send    chan Message
	hub     *Hub
}

// Hub fans order events out to the websocket clients watching each order.
type Hub struct {
	mu       sync.RWMutex
	watchers map[uuid.UUID]map[*client]struct{}

	upgrader websocket.Upgrader
	logg     *logger.Logger
}

// NewHub builds a hub. allowedOrigins restricts browser upgrades; an empty
// list accepts same-origin requests only.
func NewHub(logg *logger.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		watchers: make(map[uuid.UUID]map[*client]struct{}),
		logg:     logg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return h
}

// Handle is an events.Handler. Slow clients are dropped rather than
// blocking the publisher.
func (h *Hub) Handle(ctx context.Context, event events.OrderEvent) error {
	msg := Message{
		Type:          event.Type,
		OrderID:       event.OrderID.String(),
		From:          event.From,
		To:            event.To,
		PaymentStatus: event.PaymentStatus,
		OccurredAt:    event.OccurredAt,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.watchers[event.OrderID] {
		select {
		case c.send <- msg:
		default:
			h.removeLocked(c)
			h.logg.Warn(h.logg.WithOrderID(ctx, event.OrderID.String()), "stream client too slow; disconnected")
		}
	}
	return nil
}

// Serve upgrades the request and streams events for orderID until the
// client goes away. Authorization happens before Serve is called.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, orderID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{
		orderID: orderID,
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		hub:     h,
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

// Watchers reports how many clients follow orderID.
func (h *Hub) Watchers(orderID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[orderID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.watchers {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[c.orderID]
	if !ok {
		set = make(map[*client]struct{})
		h.watchers[c.orderID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	set, ok := h.watchers[c.orderID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.watchers, c.orderID)
	}
}

// readPump only services control frames; clients never send data.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ctx := c.hub.logg.WithOrderID(context.Background(), c.orderID.String())
				c.hub.logg.Warn(c.hub.logg.WithField(ctx, "error", err.Error()), "stream client read failed")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
