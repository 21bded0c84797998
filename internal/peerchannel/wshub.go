package peerchannel

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// wireMessage is the on-the-wire shape for both peer-to-peer sync actions
// and local UI pushes, adapted from the teacher's websocket.Message
// (internal/websocket/hub.go): a type/code tag plus an opaque data payload.
type wireMessage struct {
	Code      string          `json:"code"`
	Payload   json.RawMessage `json:"payload"`
	SenderID  string          `json:"senderId,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// WebSocketHub fans sync-protocol actions out to every other replica
// connected to the same room, the way the teacher's Hub fans Messages out
// to a tournament's subscribed clients — generalized from a single HTTP-push
// relay to a room-keyed registry of per-connection peer replicas, each
// identified by a transient peer id instead of a persistent user id.
type WebSocketHub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*WebSocketClient]bool
	logger *log.Logger
}

// NewWebSocketHub constructs an empty hub. logger may be nil.
func NewWebSocketHub(logger *log.Logger) *WebSocketHub {
	if logger == nil {
		logger = log.Default()
	}
	return &WebSocketHub{rooms: make(map[string]map[*WebSocketClient]bool), logger: logger}
}

func (h *WebSocketHub) register(c *WebSocketClient) {
	h.mu.Lock()
	if h.rooms[c.roomID] == nil {
		h.rooms[c.roomID] = make(map[*WebSocketClient]bool)
	}
	existing := make([]*WebSocketClient, 0, len(h.rooms[c.roomID]))
	for peer := range h.rooms[c.roomID] {
		existing = append(existing, peer)
	}
	h.rooms[c.roomID][c] = true
	h.mu.Unlock()

	for _, peer := range existing {
		peer.notifyJoin(c.peerID)
	}
	h.logger.Printf("peerchannel: client registered room=%s peer=%s", c.roomID, c.peerID)
}

func (h *WebSocketHub) unregister(c *WebSocketClient) {
	h.mu.Lock()
	if clients, ok := h.rooms[c.roomID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	remaining := make([]*WebSocketClient, 0)
	for peer := range h.rooms[c.roomID] {
		remaining = append(remaining, peer)
	}
	h.mu.Unlock()

	for _, peer := range remaining {
		peer.notifyLeave(c.peerID)
	}
	h.logger.Printf("peerchannel: client unregistered room=%s peer=%s", c.roomID, c.peerID)
}

func (h *WebSocketHub) roomPeers(roomID string) []*WebSocketClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*WebSocketClient, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		out = append(out, c)
	}
	return out
}

func (h *WebSocketHub) dispatch(roomID, code string, envelope Envelope, targets map[string]bool) {
	for _, peer := range h.roomPeers(roomID) {
		if peer.peerID == envelope.SenderID {
			continue
		}
		if targets != nil && !targets[peer.peerID] {
			continue
		}
		peer.dispatch(code, envelope)
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }
