// Package ws implements the order-status WebSocket surface spec §6.1's
// User API diagram names: one connection per order_id, closed the
// moment that order reaches a terminal status.
package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ocrch/engine/internal/api"
	"github.com/ocrch/engine/internal/logging"
	"github.com/ocrch/engine/internal/matcher"
)

// Close codes spec §6.1 assigns to the order-status socket.
const (
	CloseNormal       = websocket.CloseNormalClosure  // 1000: order reached a terminal status
	CloseInternal     = websocket.CloseInternalServerErr // 1011: internal failure
	CloseOrderUnknown = 4004                            // order_id not found
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub bridges the Matcher's order-status broadcast to individual
// WebSocket connections, one per subscribed order_id.
type Hub struct {
	watcher *matcher.Watcher
	log     logging.Logger
}

// NewHub constructs a Hub fed by w's order-status broadcast.
func NewHub(w *matcher.Watcher) *Hub {
	return &Hub{watcher: w, log: logging.WithComponent("ws")}
}

// Serve upgrades r to a WebSocket and streams order-status updates for
// orderID until the order reaches a terminal status or a write or ping
// to the client fails (which is how a disconnect is noticed).
func (h *Hub) Serve(wr http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
	conn, err := upgrader.Upgrade(wr, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "order_id", orderID, "err", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.watcher.SubscribeOrderStatus()
	defer unsubscribe()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case u := <-updates:
			if u.Order.OrderID != orderID {
				continue
			}
			if err := h.writeStatus(conn, u); err != nil {
				h.log.Warn("websocket write failed", "order_id", orderID, "err", err)
				return
			}
			if u.Status.Terminal() {
				h.closeWith(conn, CloseNormal, "order reached terminal status")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) writeStatus(conn *websocket.Conn, u matcher.OrderStatusUpdate) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	order := api.ToOrderResponse(&u.Order)
	order.Status = string(u.Status)
	return conn.WriteJSON(api.StatusUpdateFrame{Type: "status_update", Order: order})
}

func (h *Hub) closeWith(conn *websocket.Conn, code int, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
