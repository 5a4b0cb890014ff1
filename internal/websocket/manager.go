// Package websocket implements the live-reload hub: browsers connect over a
// WebSocket and receive a reload message whenever a watched graph finishes.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/assetforge/internal/logging"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Hub tracks connected browsers and broadcasts messages to them.
//
// A central goroutine owns client registration and fan-out; connection
// goroutines only talk to it through channels.
type Hub struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn

	// Sent to each client right after it connects; empty disables it.
	greeting string

	logger logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	done         chan struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithGreeting sends content in a "connected" message to every new client.
func WithGreeting(content string) HubOption {
	return func(h *Hub) { h.greeting = content }
}

// NewHub creates a hub and starts its event loop.
func NewHub(logger logging.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client, 32),
		unregister: make(chan *websocket.Conn, 32),
		logger:     logger.WithComponent("reload"),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	go h.run()
	return h
}

// ServeHTTP upgrades the request and registers the browser as a client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The dev server is local and may sit behind a proxied host name.
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Debug(r.Context(), "websocket upgrade failed", "remote", r.RemoteAddr, "error", err.Error())
		return
	}

	client := &Client{
		conn:        conn,
		send:        make(chan []byte, 16),
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
	}

	if h.greeting != "" {
		if data, err := encode(MessageConnected, "", h.greeting); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	go h.writeToClient(client)
	h.readFromClient(client)
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(h.ctx, "browser connected", "remote", client.remoteAddr, "clients", count)

		case conn := <-h.unregister:
			h.removeClient(conn)

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop it rather than stall every reload.
					go func(c *websocket.Conn) {
						select {
						case h.unregister <- c:
						case <-h.ctx.Done():
						}
					}(client.conn)
				}
			}
			h.clientsMutex.RUnlock()

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMutex.Lock()
	client, exists := h.clients[conn]
	if exists {
		delete(h.clients, conn)
		close(client.send)
	}
	count := len(h.clients)
	h.clientsMutex.Unlock()

	if exists {
		conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug(h.ctx, "browser disconnected", "remote", client.remoteAddr, "clients", count)
	}
}

// readFromClient blocks until the browser goes away. Browsers never send
// anything meaningful; reading keeps control frames flowing.
func (h *Hub) readFromClient(client *Client) {
	defer func() {
		select {
		case h.unregister <- client.conn:
		case <-h.ctx.Done():
		}
	}()

	for {
		if _, _, err := client.conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) writeToClient(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(h.ctx, "websocket write failed", "remote", client.remoteAddr, "error", err.Error())
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-h.ctx.Done():
			return
		}
	}
}

// Broadcast sends a message of the given type to every connected browser.
// It never blocks; when the hub is shut down the message is dropped.
func (h *Hub) Broadcast(msgType, target string) {
	data, err := encode(msgType, target, "")
	if err != nil {
		h.logger.Warn(h.ctx, err, "failed to encode broadcast message")
		return
	}

	select {
	case <-h.ctx.Done():
		return
	default:
	}

	select {
	case h.broadcast <- data:
	default:
		// A reload is already queued; browsers reload once either way.
	}
}

// Reload tells every connected browser to reload the page.
func (h *Hub) Reload() {
	h.Broadcast(MessageReload, "")
}

// ClientCount returns the number of connected browsers.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client and stops the hub. Safe to call more
// than once.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		h.cancel()

		select {
		case <-h.done:
		case <-ctx.Done():
		}

		h.clientsMutex.Lock()
		for conn, client := range h.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
		h.clients = make(map[*websocket.Conn]*Client)
		h.clientsMutex.Unlock()
	})
	return ctx.Err()
}

func encode(msgType, target, content string) ([]byte, error) {
	return json.Marshal(UpdateMessage{
		Type:      msgType,
		Target:    target,
		Content:   content,
		Timestamp: time.Now(),
	})
}
