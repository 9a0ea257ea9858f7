package handler

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/awsl-project/ranstat/internal/domain"
	"github.com/awsl-project/ranstat/internal/events"
	"github.com/awsl-project/ranstat/internal/metrics"
)

const (
	wsPingInterval = 25 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 5 * time.Second
	wsClientBuffer = 16
)

type wsClient struct {
	ch chan []byte
}

// WebSocketHub 向所有连接的客户端广播导入事件，实现 events.Sink
type WebSocketHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
	metrics *metrics.Metrics

	upgrader websocket.Upgrader
}

// NewWebSocketHub creates a hub. m may be nil.
func NewWebSocketHub(m *metrics.Metrics) *WebSocketHub {
	return &WebSocketHub{
		clients: make(map[*wsClient]struct{}),
		metrics: m,
		upgrader: websocket.Upgrader{
			CheckOrigin: sameHostOrigin,
		},
	}
}

// sameHostOrigin 没有 Origin 的非浏览器客户端直接放行
func sameHostOrigin(req *http.Request) bool {
	origin := strings.TrimSpace(req.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, req.Host)
}

// Publish broadcasts ev to every client. Slow clients miss the message
// instead of blocking the import.
func (h *WebSocketHub) Publish(_ context.Context, ev domain.ImportEvent) error {
	data, err := events.Marshal(ev)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Broadcast sends a raw text frame to every client
func (h *WebSocketHub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.ch <- data:
		default:
			log.Printf("[WebSocket] Client buffer full, dropping message")
		}
	}
}

// Close disconnects every client and rejects new ones
func (h *WebSocketHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.ch)
	}
	h.metrics.WSClients(0)
	return nil
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *WebSocketHub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.WSClients(len(h.clients))
	return true
}

func (h *WebSocketHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.ch)
		h.metrics.WSClients(len(h.clients))
	}
}

// HandleWebSocket upgrades the request and streams events until the client goes away
// GET /ws
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := &wsClient{ch: make(chan []byte, wsClientBuffer)}
	if !h.register(client) {
		return
	}
	defer h.unregister(client)

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	// 只读 control frame，客户端消息丢弃
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case msg, ok := <-client.ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
