// ABOUTME: Push channel to the backend over a WebSocket
// ABOUTME: Reconnects after a fixed delay until the caller disconnects
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/harperreed/telemsg/models"
)

const (
	DefaultReconnectDelay = 3 * time.Second

	writeWait = 10 * time.Second
)

// ErrNotConnected is returned by Send while no socket is open. The frame is dropped.
var ErrNotConnected = errors.New("realtime link is not connected")

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Handler receives every decoded push event. It runs on the link's read goroutine.
type Handler func(Event)

type Options struct {
	// URL is called before every dial so a refreshed token is picked up.
	URL            func() string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
	Logger         *log.Logger
	OnState        func(State)
}

// Link owns at most one socket at a time.
type Link struct {
	url     func() string
	delay   time.Duration
	dialer  *websocket.Dialer
	logger  *log.Logger
	onState func(State)

	mu      sync.Mutex
	state   State
	gen     int
	handler Handler
	cancel  context.CancelFunc
	conn    *websocket.Conn

	writeMu sync.Mutex
}

func New(opts Options) *Link {
	l := &Link{
		url:     opts.URL,
		delay:   opts.ReconnectDelay,
		dialer:  opts.Dialer,
		logger:  opts.Logger,
		onState: opts.OnState,
	}
	if l.delay <= 0 {
		l.delay = DefaultReconnectDelay
	}
	if l.dialer == nil {
		l.dialer = websocket.DefaultDialer
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard)
	}
	return l
}

func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Connect starts the connection loop. Calling it while a loop is running
// only replaces the handler used for subsequent frames and dials.
func (l *Link) Connect(ctx context.Context, h Handler) error {
	if h == nil {
		return fmt.Errorf("realtime: nil handler")
	}
	if l.url == nil {
		return fmt.Errorf("realtime: no URL source configured")
	}

	l.mu.Lock()
	l.handler = h
	if l.cancel != nil {
		l.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	go l.run(runCtx, gen)
	return nil
}

// Disconnect clears the handler and cancels the loop before closing the
// socket, so the close cannot schedule another dial.
func (l *Link) Disconnect() {
	l.mu.Lock()
	l.handler = nil
	cancel, conn := l.cancel, l.conn
	l.cancel, l.conn = nil, nil
	l.gen++
	changed := l.state != Disconnected
	l.state = Disconnected
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if changed && l.onState != nil {
		l.onState(Disconnected)
	}
}

func (l *Link) run(ctx context.Context, gen int) {
	defer l.finish(gen)
	for {
		if ctx.Err() != nil {
			return
		}
		l.setState(gen, Connecting)

		url := l.url()
		conn, _, err := l.dialer.DialContext(ctx, url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn("realtime dial failed", "err", err)
		} else if l.attach(gen, conn) {
			l.setState(gen, Connected)
			l.logger.Info("realtime link connected")
			l.readLoop(conn)
			l.detach(conn)
		} else {
			_ = conn.Close()
			return
		}

		l.setState(gen, Disconnected)
		if !l.armed(gen) {
			return
		}
		l.logger.Debug("realtime reconnect scheduled", "delay", l.delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.delay):
		}
	}
}

// finish releases a loop that ended because its parent context was cancelled.
func (l *Link) finish(gen int) {
	l.mu.Lock()
	if gen == l.gen && l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()
	l.setState(gen, Disconnected)
}

func (l *Link) attach(gen int, conn *websocket.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	l.conn = conn
	return true
}

func (l *Link) detach(conn *websocket.Conn) {
	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.mu.Unlock()
	_ = conn.Close()
}

// armed reports whether a reconnect should follow a close.
func (l *Link) armed(gen int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gen == l.gen && l.handler != nil
}

func (l *Link) setState(gen int, s State) {
	l.mu.Lock()
	if gen != l.gen || l.state == s {
		l.mu.Unlock()
		return
	}
	l.state = s
	l.mu.Unlock()
	if l.onState != nil {
		l.onState(s)
	}
}

func (l *Link) currentHandler() Handler {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handler
}

func (l *Link) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.Warn("realtime link closed", "err", err)
			} else {
				l.logger.Debug("realtime link closed", "err", err)
			}
			return
		}

		ev, err := DecodeEvent(frame)
		if err != nil {
			l.logger.Warn("skipping undecodable push frame", "err", err)
			continue
		}
		if !ev.Known() {
			l.logger.Debug("unknown push event", "type", ev.Type)
		}
		if h := l.currentHandler(); h != nil {
			h(ev)
		}
	}
}

// Send writes v as one JSON frame. Nothing is queued while disconnected.
func (l *Link) Send(v any) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		l.logger.Warn("dropping outbound frame, link not connected")
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// SendChatMessage mirrors a message that the REST call already stored.
func (l *Link) SendChatMessage(msg models.Message, recipientID string) error {
	return l.Send(outboundMessage{Type: EventMessage, Message: msg, RecipientID: recipientID})
}

type outboundMessage struct {
	Type        string         `json:"type"`
	Message     models.Message `json:"message"`
	RecipientID string         `json:"recipientId"`
}
