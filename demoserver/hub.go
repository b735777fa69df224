// ABOUTME: WebSocket hub for the demo backend
// ABOUTME: One read pump and one write pump per connection, frames fanned out per user
package demoserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

type hub struct {
	mu       sync.Mutex
	clients  map[string]map[*wsClient]struct{}
	logger   *log.Logger
	presence func(userID string, online bool)
	inbound  func(userID string, frame []byte)
}

func newHub(logger *log.Logger, presence func(string, bool), inbound func(string, []byte)) *hub {
	return &hub{
		clients:  make(map[string]map[*wsClient]struct{}),
		logger:   logger,
		presence: presence,
		inbound:  inbound,
	}
}

func (h *hub) register(c *wsClient) {
	h.mu.Lock()
	first := len(h.clients[c.userID]) == 0
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*wsClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("socket connected", "user", c.userID)
	if first && h.presence != nil {
		h.presence(c.userID, true)
	}
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	conns := h.clients[c.userID]
	_, ok := conns[c]
	if ok {
		delete(conns, c)
		c.close()
	}
	last := ok && len(conns) == 0
	if last {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	h.logger.Debug("socket disconnected", "user", c.userID)
	if last && h.presence != nil {
		h.presence(c.userID, false)
	}
}

func (h *hub) online(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID]) > 0
}

func (h *hub) onlineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) push(userID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode push frame", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping frame for slow socket", "user", userID)
		}
	}
}

// drop closes the underlying sockets; the pumps then unregister them.
func (h *hub) drop(userID string) {
	h.mu.Lock()
	var conns []*websocket.Conn
	for c := range h.clients[userID] {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (h *hub) serve(userID string, conn *websocket.Conn) {
	c := &wsClient{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

func (h *hub) readPump(c *wsClient) {
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
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("socket read error", "user", c.userID, "err", err)
			}
			return
		}
		if h.inbound != nil {
			h.inbound(c.userID, frame)
		}
	}
}

func (h *hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
