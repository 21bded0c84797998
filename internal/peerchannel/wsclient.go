package peerchannel

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection tuning constants, identical to the teacher's
// internal/websocket/client.go (writeWait/pongWait/pingPeriod/maxMessageSize).
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// WebSocketClient is one browser connection's Channel: peer-to-peer sync
// actions are dispatched in-process through the owning WebSocketHub (every
// replica in a room lives in this same gateway process), while the raw
// gorilla/websocket connection carries this user's own control-surface
// traffic to and from the browser (UI commands in, state pushes out) via
// OnUIMessage/PushUI, kept separate from the peer sync-action dispatch.
type WebSocketClient struct {
	hub    *WebSocketHub
	conn   *websocket.Conn
	logger *log.Logger

	roomID string
	peerID string

	send chan []byte

	mu             sync.RWMutex
	actionHandlers map[string][]ActionHandler
	joinHandlers   []PeerHandler
	leaveHandlers  []PeerHandler
	uiHandler      func(raw []byte)
	closeHandlers  []func()
	closeOnce      sync.Once
}

// NewWebSocketClient registers a new client with hub for roomID/peerID and
// starts its read/write pumps. Callers should call Leave when the
// connection closes.
func NewWebSocketClient(hub *WebSocketHub, conn *websocket.Conn, roomID, peerID string, logger *log.Logger) *WebSocketClient {
	if logger == nil {
		logger = log.Default()
	}
	c := &WebSocketClient{
		hub:            hub,
		conn:           conn,
		logger:         logger,
		roomID:         roomID,
		peerID:         peerID,
		send:           make(chan []byte, 256),
		actionHandlers: make(map[string][]ActionHandler),
	}
	hub.register(c)
	go c.writePump()
	go c.readPump()
	return c
}

func (c *WebSocketClient) SelfID() string { return c.peerID }

func (c *WebSocketClient) Peers() []string {
	peers := c.hub.roomPeers(c.roomID)
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		if p.peerID != c.peerID {
			out = append(out, p.peerID)
		}
	}
	return out
}

func (c *WebSocketClient) Broadcast(code string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope := Envelope{Payload: raw, SenderID: c.peerID, Timestamp: nowMillis()}
	c.hub.dispatch(c.roomID, code, envelope, nil)
	return nil
}

func (c *WebSocketClient) SendTo(code string, payload interface{}, targetPeerIDs []string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope := Envelope{Payload: raw, SenderID: c.peerID, Timestamp: nowMillis()}
	targets := make(map[string]bool, len(targetPeerIDs))
	for _, id := range targetPeerIDs {
		targets[id] = true
	}
	c.hub.dispatch(c.roomID, code, envelope, targets)
	return nil
}

func (c *WebSocketClient) OnAction(code string, handler ActionHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actionHandlers[code] = append(c.actionHandlers[code], handler)
}

func (c *WebSocketClient) OnPeerJoin(handler PeerHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinHandlers = append(c.joinHandlers, handler)
}

func (c *WebSocketClient) OnPeerLeave(handler PeerHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaveHandlers = append(c.leaveHandlers, handler)
}

func (c *WebSocketClient) Leave() error {
	c.runCloseHandlers()
	c.hub.unregister(c)
	close(c.send)
	return c.conn.Close()
}

// OnClose registers a handler invoked exactly once when this connection
// goes away, whether from an explicit Leave() or the browser dropping the
// socket (detected by readPump). The owning replica uses this to run its
// own teardown (stop heartbeat, flush persistence) on a passive disconnect
// it never called Leave() for itself.
func (c *WebSocketClient) OnClose(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeHandlers = append(c.closeHandlers, handler)
}

func (c *WebSocketClient) runCloseHandlers() {
	c.closeOnce.Do(func() {
		c.mu.RLock()
		handlers := append([]func(){}, c.closeHandlers...)
		c.mu.RUnlock()
		for _, h := range handlers {
			h()
		}
	})
}

// OnUIMessage registers the handler invoked for every JSON frame the
// browser sends on this connection (control-surface commands, not peer sync
// actions).
func (c *WebSocketClient) OnUIMessage(handler func(raw []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uiHandler = handler
}

// PushUI enqueues a JSON frame (typically a serialized state snapshot or
// domain event) for delivery to the browser.
func (c *WebSocketClient) PushUI(data []byte) {
	select {
	case c.send <- data:
	default:
		c.logger.Printf("peerchannel: send buffer full, dropping client peer=%s", c.peerID)
		c.hub.unregister(c)
		c.conn.Close()
	}
}

func (c *WebSocketClient) dispatch(code string, envelope Envelope) {
	c.mu.RLock()
	handlers := append([]ActionHandler{}, c.actionHandlers[code]...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(envelope.Payload, envelope.SenderID, envelope)
	}
}

func (c *WebSocketClient) notifyJoin(peerID string) {
	c.mu.RLock()
	handlers := append([]PeerHandler{}, c.joinHandlers...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(peerID)
	}
}

func (c *WebSocketClient) notifyLeave(peerID string) {
	c.mu.RLock()
	handlers := append([]PeerHandler{}, c.leaveHandlers...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(peerID)
	}
}

// readPump pumps UI frames from the browser connection, identical in shape
// to the teacher's Client.readPump (read limit, pong deadline extension).
func (c *WebSocketClient) readPump() {
	defer func() {
		c.runCloseHandlers()
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Printf("peerchannel: read error peer=%s: %v", c.peerID, err)
			}
			return
		}
		c.mu.RLock()
		handler := c.uiHandler
		c.mu.RUnlock()
		if handler != nil {
			handler(raw)
		}
	}
}

// writePump pumps queued UI frames to the browser connection and keeps the
// connection alive with pings, identical in shape to the teacher's
// Client.writePump.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
