// Package peerchannel defines the abstract PeerChannel transport consumed
// by internal/sync (spec.md §6 "PeerChannel (consumed)"), plus concrete
// implementations: an in-process fan-out bus for tests, a gorilla/websocket
// gateway transport, and a Redis Pub/Sub cross-process transport.
package peerchannel

import "encoding/json"

// Envelope is the wire shape every action carries: {payload, senderId,
// timestamp}, transmitted as-is (spec.md §6).
type Envelope struct {
	Payload   json.RawMessage `json:"payload"`
	SenderID  string          `json:"senderId"`
	Timestamp int64           `json:"timestamp"`
}

// ActionHandler receives a decoded action: the raw payload, the sending
// peer's transient id, and the full envelope (for timestamp access).
type ActionHandler func(payload json.RawMessage, peerID string, envelope Envelope)

// PeerHandler receives a peer id on join/leave.
type PeerHandler func(peerID string)

// Channel is the transport abstraction the sync protocol is built against.
// Action codes are short ASCII strings <= 12 bytes (spec.md §4.4's message
// code table).
type Channel interface {
	SelfID() string
	Peers() []string

	Broadcast(code string, payload interface{}) error
	SendTo(code string, payload interface{}, targetPeerIDs []string) error

	OnAction(code string, handler ActionHandler)
	OnPeerJoin(handler PeerHandler)
	OnPeerLeave(handler PeerHandler)

	Leave() error
}
