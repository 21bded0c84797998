package sync

import "sync"

// PeerMap maintains the bidirectional peerId<->localUserId mapping spec.md
// §4.4 requires: "All authorization checks MUST resolve peerId -> localUserId
// before comparison with meta.adminId or participant ids." It is populated
// as p:join messages and st:res admin reveals arrive.
type PeerMap struct {
	mu         sync.RWMutex
	peerToUser map[string]string
	userToPeer map[string]string
}

// NewPeerMap returns an empty map.
func NewPeerMap() *PeerMap {
	return &PeerMap{
		peerToUser: make(map[string]string),
		userToPeer: make(map[string]string),
	}
}

// Set records that peerID currently corresponds to userID, overwriting any
// prior mapping for either side (a peerId is transient per connection; a
// localUserId can reconnect under a new peerId).
func (m *PeerMap) Set(peerID, userID string) {
	if peerID == "" || userID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if oldUser, ok := m.peerToUser[peerID]; ok {
		delete(m.userToPeer, oldUser)
	}
	if oldPeer, ok := m.userToPeer[userID]; ok {
		delete(m.peerToUser, oldPeer)
	}
	m.peerToUser[peerID] = userID
	m.userToPeer[userID] = peerID
}

// UserID returns the localUserId mapped to peerID, if any.
func (m *PeerMap) UserID(peerID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.peerToUser[peerID]
	return uid, ok
}

// PeerID returns the peerId currently mapped to userID, if any.
func (m *PeerMap) PeerID(userID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pid, ok := m.userToPeer[userID]
	return pid, ok
}

// Resolve returns the localUserId for peerID, falling back to the raw
// peerID itself when no mapping exists yet. This mirrors a quirk observed
// in the reference implementation: a peer that sends an action before its
// p:join is processed (or whose p:join was dropped) is authorized, if at
// all, against its own transient peerId standing in for a userId. It only
// ever matters for messages that would otherwise be rejected for want of
// an identity, never for admin comparisons (meta.adminId is a persistent
// id that a bare peerId will never equal).
func (m *PeerMap) Resolve(peerID string) string {
	if uid, ok := m.UserID(peerID); ok {
		return uid
	}
	return peerID
}

// Remove drops peerID's mapping (on transport leave), leaving the userID
// side usable again on future reconnect.
func (m *PeerMap) Remove(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userID, ok := m.peerToUser[peerID]; ok {
		delete(m.peerToUser, peerID)
		delete(m.userToPeer, userID)
	}
}
