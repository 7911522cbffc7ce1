package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Vodeneev/linecompare/internal/pkg/export"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/snapshot"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 8
)

// Hub pushes every published snapshot to connected WebSocket clients.
type Hub struct {
	store        *snapshot.Store
	updates      <-chan *models.Snapshot
	unsubscribe  func()
	highlightTTL time.Duration
	upgrader     websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub subscribes to store immediately so no publish between construction
// and Run is missed.
func NewHub(store *snapshot.Store, highlightTTL time.Duration, allowedOrigins []string) *Hub {
	updates, unsubscribe := store.Subscribe()
	return &Hub{
		store:        store,
		updates:      updates,
		unsubscribe:  unsubscribe,
		highlightTTL: highlightTTL,
		clients:      make(map[string]*wsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Run forwards published snapshots to clients until ctx is done, then
// disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer h.unsubscribe()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-h.updates:
			if !ok {
				return
			}
			msg, err := h.encode(snap)
			if err != nil {
				slog.Error("Failed to encode snapshot for websocket", "cycle_id", snap.Cycle, "error", err)
				continue
			}
			h.broadcast(msg)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the connection. Pumps run on
// ctx, not the request context, which ends when the handler returns.
func (h *Hub) ServeWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		c := &wsClient{id: uuid.New().String(), conn: conn, send: make(chan []byte, sendBufferSize)}
		if msg, err := h.encode(h.store.Load()); err == nil {
			c.send <- msg
		}
		h.register(c)
		slog.Info("WebSocket client connected", "client_id", c.id, "clients", h.ClientCount())

		go h.writePump(ctx, c)
		go h.readPump(c)
	}
}

func (h *Hub) encode(snap *models.Snapshot) ([]byte, error) {
	return json.Marshal(export.Build(snap, nil, h.highlightTTL))
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	slog.Info("WebSocket client disconnected", "client_id", c.id, "clients", len(h.clients))
}

func (h *Hub) broadcast(msg []byte) {
	var slow []*wsClient
	h.mu.RLock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("Dropping slow websocket client", "client_id", c.id)
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// readPump discards client messages; it exists to process pongs and notice disconnects.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("WebSocket read error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(ctx context.Context, c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("WebSocket write failed", "client_id", c.id, "error", err)
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

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		// Same-origin pages are always allowed.
		return strings.HasSuffix(origin, "://"+r.Host)
	}
}
