package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"portal-backend/shared/clients"
	"portal-backend/shared/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var ErrNoTarget = errors.New("either user_id or channel is required")

// Client is one websocket connection. A client belongs to its user and,
// optionally, to a channel such as "staff".
type Client struct {
	UserID  string
	Channel string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub tracks connected clients and fans out push messages.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*Client]struct{}
	mu       sync.RWMutex
	log      *zap.Logger
}

// NewHub accepts browser connections from allowedOrigins only. Requests
// without an Origin header come from other services and are accepted.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	h := &Hub{
		clients: make(map[*Client]struct{}),
		log:     logger.L().Named("ws"),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			h.log.Warn("websocket connection rejected", zap.String("origin", origin))
			return false
		},
	}
	return h
}

// Serve upgrades the request and keeps the connection until the peer leaves.
func (h *Hub) Serve(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "User ID required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := &Client{
		UserID:  userID,
		Channel: c.Query("channel"),
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	h.register(client)

	go client.writePump()
	h.enqueue(client, &clients.PushMessage{
		Type:      "connection",
		Data:      map[string]any{"channel": client.Channel},
		Timestamp: time.Now().UTC(),
	})
	h.readPump(client)
}

// Publish delivers req.Message to one user or to a whole channel and returns
// the number of connections that received it.
func (h *Hub) Publish(req clients.PushRequest) (int, error) {
	if req.UserID == "" && req.Channel == "" {
		return 0, ErrNoTarget
	}
	if req.Message == nil {
		return 0, errors.New("message is required")
	}
	if req.Message.Timestamp.IsZero() {
		req.Message.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(req.Message)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if req.UserID != "" && client.UserID != req.UserID {
			continue
		}
		if req.Channel != "" && client.Channel != req.Channel {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range targets {
		if h.deliver(client, payload) {
			delivered++
		}
	}

	h.log.Info("push delivered",
		zap.String("user_id", req.UserID),
		zap.String("channel", req.Channel),
		zap.String("event", req.Message.Event),
		zap.Int("delivered", delivered),
	)
	return delivered, nil
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("websocket client connected",
		zap.String("user_id", client.UserID),
		zap.String("channel", client.Channel),
		zap.Int("total", total),
	)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.Info("websocket client disconnected", zap.String("user_id", client.UserID), zap.Int("total", total))
	}
}

func (h *Hub) enqueue(client *Client, msg *clients.PushMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.deliver(client, payload)
}

// deliver drops clients whose send buffer is full.
func (h *Hub) deliver(client *Client, payload []byte) bool {
	h.mu.RLock()
	_, ok := h.clients[client]
	if ok {
		select {
		case client.send <- payload:
		default:
			ok = false
		}
	}
	h.mu.RUnlock()

	if !ok {
		h.unregister(client)
	}
	return ok
}

func (h *Hub) readPump(client *Client) {
	defer func() {
		h.unregister(client)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var incoming struct {
			Type string `json:"type"`
		}
		if err := client.conn.ReadJSON(&incoming); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", zap.String("user_id", client.UserID), zap.Error(err))
			}
			return
		}

		if incoming.Type == "ping" {
			h.enqueue(client, &clients.PushMessage{Type: "pong", Timestamp: time.Now().UTC()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
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
