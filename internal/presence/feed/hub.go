package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"github.com/VanillaViking/neopresence/internal/presence"
)

// ErrClosed is returned by Update after Close.
var ErrClosed = errors.New("feed: hub closed")

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.hub.removeClient(c)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Hub is a presence.Sink that broadcasts every update to connected websocket
// clients. A client receives the latest activity as soon as it connects;
// clients that cannot keep up are disconnected.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	latest  []byte
	closed  bool

	upgrader websocket.Upgrader
	log      pslog.Logger
}

var _ presence.Sink = (*Hub)(nil)

// NewHub returns a hub with no clients. log receives connection diagnostics.
func NewHub(log pslog.Logger) *Hub {
	h := &Hub{
		clients: make(map[*client]bool),
		log:     log,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: localOrigin}
	return h
}

// localOrigin accepts requests without an Origin header and browser requests
// from loopback pages.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.With("err", err).Debug("feed upgrade failed")
		return
	}
	c, ok := h.addClient(conn)
	if !ok {
		conn.Close()
		return
	}
	h.log.Debug("feed client connected", "remote", r.RemoteAddr)

	// Clients never send anything; reading only detects the disconnect.
	go func() {
		defer func() {
			h.removeClient(c)
			h.log.Debug("feed client disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) addClient(conn *websocket.Conn) (*client, bool) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), hub: h}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, false
	}
	h.clients[c] = true
	if h.latest != nil {
		c.send <- h.latest
	}
	h.mu.Unlock()

	go c.writePump()
	return c, true
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount is the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Connect is a no-op; the hub is served by ListenAndServe.
func (h *Hub) Connect(ctx context.Context) error { return nil }

// Update stores a and sends it to every client.
func (h *Hub) Update(ctx context.Context, a presence.Activity) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	return h.broadcast(Message{Type: MsgActivity, Payload: payload})
}

// Clear tells clients there is no presence any more.
func (h *Hub) Clear(ctx context.Context) error {
	return h.broadcast(Message{Type: MsgCleared})
}

func (h *Hub) broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal feed message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if msg.Type == MsgActivity {
		h.latest = data
	} else {
		h.latest = nil
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("feed client too slow, disconnecting")
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

// Close disconnects every client. Later updates fail with ErrClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}

// ListenAndServe serves the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("feed listen %s: %w", addr, err)
	}
	return h.Serve(ctx, ln)
}

// Serve serves the hub on ln until ctx is done.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	h.log.Info("feed listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("feed server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("feed shutdown: %w", err)
		}
		return nil
	}
}
