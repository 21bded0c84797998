package peerchannel

import (
	"encoding/json"
	"sync"
	"time"
)

// MemoryRoom is an in-process fan-out bus shared by every MemoryChannel
// joined to it, letting tests simulate N replicas exchanging messages
// within one process without a real transport (spec.md §8's "two replicas
// R1, R2" properties are most naturally tested this way). Grounded on the
// teacher's Hub registration/broadcast pattern, simplified to direct
// synchronous dispatch since there is no real network boundary to cross.
type MemoryRoom struct {
	mu    sync.RWMutex
	peers map[string]*MemoryChannel
}

// NewMemoryRoom returns an empty room.
func NewMemoryRoom() *MemoryRoom {
	return &MemoryRoom{peers: make(map[string]*MemoryChannel)}
}

// Join creates a new channel with the given transient peer id, registers it
// with the room, and notifies existing members' OnPeerJoin handlers.
func (r *MemoryRoom) Join(peerID string) *MemoryChannel {
	ch := &MemoryChannel{
		room:           r,
		selfID:         peerID,
		actionHandlers: make(map[string][]ActionHandler),
	}

	r.mu.Lock()
	existing := make([]*MemoryChannel, 0, len(r.peers))
	for _, p := range r.peers {
		existing = append(existing, p)
	}
	r.peers[peerID] = ch
	r.mu.Unlock()

	for _, p := range existing {
		p.notifyJoin(peerID)
	}
	return ch
}

func (r *MemoryRoom) leave(peerID string) {
	r.mu.Lock()
	delete(r.peers, peerID)
	remaining := make([]*MemoryChannel, 0, len(r.peers))
	for _, p := range r.peers {
		remaining = append(remaining, p)
	}
	r.mu.Unlock()

	for _, p := range remaining {
		p.notifyLeave(peerID)
	}
}

func (r *MemoryRoom) snapshot() []*MemoryChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MemoryChannel, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// MemoryChannel is one replica's Channel within a MemoryRoom.
type MemoryChannel struct {
	room   *MemoryRoom
	selfID string

	mu             sync.RWMutex
	actionHandlers map[string][]ActionHandler
	joinHandlers   []PeerHandler
	leaveHandlers  []PeerHandler
}

func (c *MemoryChannel) SelfID() string { return c.selfID }

func (c *MemoryChannel) Peers() []string {
	peers := c.room.snapshot()
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		if p.selfID != c.selfID {
			out = append(out, p.selfID)
		}
	}
	return out
}

func (c *MemoryChannel) Broadcast(code string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope := Envelope{Payload: raw, SenderID: c.selfID, Timestamp: time.Now().UnixMilli()}
	for _, p := range c.room.snapshot() {
		if p.selfID == c.selfID {
			continue
		}
		p.dispatch(code, envelope)
	}
	return nil
}

func (c *MemoryChannel) SendTo(code string, payload interface{}, targetPeerIDs []string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope := Envelope{Payload: raw, SenderID: c.selfID, Timestamp: time.Now().UnixMilli()}
	targets := make(map[string]bool, len(targetPeerIDs))
	for _, id := range targetPeerIDs {
		targets[id] = true
	}
	for _, p := range c.room.snapshot() {
		if targets[p.selfID] {
			p.dispatch(code, envelope)
		}
	}
	return nil
}

func (c *MemoryChannel) OnAction(code string, handler ActionHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actionHandlers[code] = append(c.actionHandlers[code], handler)
}

func (c *MemoryChannel) OnPeerJoin(handler PeerHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinHandlers = append(c.joinHandlers, handler)
}

func (c *MemoryChannel) OnPeerLeave(handler PeerHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaveHandlers = append(c.leaveHandlers, handler)
}

func (c *MemoryChannel) Leave() error {
	c.room.leave(c.selfID)
	return nil
}

func (c *MemoryChannel) dispatch(code string, envelope Envelope) {
	c.mu.RLock()
	handlers := append([]ActionHandler{}, c.actionHandlers[code]...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(envelope.Payload, envelope.SenderID, envelope)
	}
}

func (c *MemoryChannel) notifyJoin(peerID string) {
	c.mu.RLock()
	handlers := append([]PeerHandler{}, c.joinHandlers...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(peerID)
	}
}

func (c *MemoryChannel) notifyLeave(peerID string) {
	c.mu.RLock()
	handlers := append([]PeerHandler{}, c.leaveHandlers...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(peerID)
	}
}
