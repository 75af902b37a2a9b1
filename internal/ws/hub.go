package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/astroserve/astroserve/internal/auth"
	"github.com/astroserve/astroserve/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser origins are filtered by the CORS middleware in front of the
	// API; the upgrade itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope pushed to clients.
type Message struct {
	Event string             `json:"event"`
	Data  store.Notification `json:"data"`
}

// Hub manages authenticated WebSocket connections keyed by subject and
// pushes each subject's notifications to their connections.
type Hub struct {
	auth *auth.Authenticator

	mu      sync.RWMutex
	clients map[string]map[*client]struct{} // subject → connections
}

// client represents one connected WebSocket client.
type client struct {
	subject string
	conn    *websocket.Conn
	send    chan []byte
}

// New creates a Hub that authenticates upgrades with a.
func New(a *auth.Authenticator) *Hub {
	return &Hub{
		auth:    a,
		clients: make(map[string]map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP authenticates the request, upgrades the connection, and serves
// the client until it disconnects. Browsers cannot set headers on WebSocket
// requests, so the bearer token may also arrive as a `token` query
// parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if tok := r.URL.Query().Get("token"); tok != "" {
			header = "Bearer " + tok
		}
	}

	subject, err := h.auth.Authenticate(r.Context(), header)
	if err != nil {
		code := http.StatusUnauthorized
		msg := "invalid credential"
		if errors.Is(err, auth.ErrMissingCredential) {
			msg = "missing bearer credential"
		}
		http.Error(w, msg, code)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		subject: string(subject),
		conn:    conn,
		send:    make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	slog.Debug("ws: client connected", "subject", subject)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Deliver implements notify.Sink: it pushes the notification to every
// connection registered for the subject. Slow clients are disconnected
// rather than allowed to block delivery.
func (h *Hub) Deliver(subject string, n store.Notification) {
	data, err := json.Marshal(Message{Event: "notification", Data: n})
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[subject]))
	for c := range h.clients[subject] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			h.unregister(c)
		}
	}
}

// Count returns the number of connections registered for the subject.
func (h *Hub) Count(subject string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[subject])
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.subject]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.subject] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.subject]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.subject)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for subject, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, subject)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages
// (pong, close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
