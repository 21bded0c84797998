package sync

import "testing"

func TestPeerMap_SetAndLookupBothDirections(t *testing.T) {
	m := NewPeerMap()
	m.Set("peer1", "user1")

	uid, ok := m.UserID("peer1")
	if !ok || uid != "user1" {
		t.Fatalf("UserID(peer1) = %q, %v; want user1, true", uid, ok)
	}
	pid, ok := m.PeerID("user1")
	if !ok || pid != "peer1" {
		t.Fatalf("PeerID(user1) = %q, %v; want peer1, true", pid, ok)
	}
}

func TestPeerMap_ReconnectUnderNewPeerIDReplacesOldMapping(t *testing.T) {
	m := NewPeerMap()
	m.Set("peer1", "user1")
	m.Set("peer2", "user1") // same user, new tab/connection

	if _, ok := m.UserID("peer1"); ok {
		t.Fatal("stale peerId mapping should have been dropped on reassignment")
	}
	pid, _ := m.PeerID("user1")
	if pid != "peer2" {
		t.Fatalf("PeerID(user1) = %q; want peer2", pid)
	}
}

func TestPeerMap_SetIgnoresEmptyIDs(t *testing.T) {
	m := NewPeerMap()
	m.Set("", "user1")
	m.Set("peer1", "")

	if _, ok := m.UserID("peer1"); ok {
		t.Fatal("Set with an empty userID must not record a mapping")
	}
	if _, ok := m.PeerID("user1"); ok {
		t.Fatal("Set with an empty peerID must not record a mapping")
	}
}

func TestPeerMap_ResolveFallsBackToRawPeerID(t *testing.T) {
	m := NewPeerMap()
	if got := m.Resolve("unmapped-peer"); got != "unmapped-peer" {
		t.Fatalf("Resolve(unmapped) = %q; want the raw peerId echoed back", got)
	}

	m.Set("peer1", "user1")
	if got := m.Resolve("peer1"); got != "user1" {
		t.Fatalf("Resolve(peer1) = %q; want user1", got)
	}
}

func TestPeerMap_RemoveDropsBothDirections(t *testing.T) {
	m := NewPeerMap()
	m.Set("peer1", "user1")

	m.Remove("peer1")

	if _, ok := m.UserID("peer1"); ok {
		t.Fatal("peer side should be gone after Remove")
	}
	if _, ok := m.PeerID("user1"); ok {
		t.Fatal("user side should be gone after Remove")
	}
}
