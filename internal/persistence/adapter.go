// Package persistence implements the Persistence Adapter (spec.md §4.5):
// best-effort, debounced save-on-change of the serialized store, load with
// retention-window eviction, local-user-id issuance, and admin-token
// management for rejoin reclaim.
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leoherzog/seedless-sub001/internal/kv"
	"github.com/leoherzog/seedless-sub001/internal/store"
	"github.com/leoherzog/seedless-sub001/internal/utils"
)

// Adapter wraps a kv.Store. All operations are best-effort: failures are
// logged and absorbed, never propagated to crash the core (spec.md §4.5
// "All persistence is best-effort").
type Adapter struct {
	kv            kv.Store
	prefix        string
	retention     time.Duration
	debounce      time.Duration
	signingSecret []byte
	logger        *log.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]store.Snapshot
}

// NewAdapter constructs an Adapter. signingSecret may be nil/empty, in
// which case admin tokens are stored opaque only (no JWT envelope) per D2.
func NewAdapter(backend kv.Store, keyPrefix string, retention, debounce time.Duration, signingSecret []byte, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{
		kv:            backend,
		prefix:        keyPrefix,
		retention:     retention,
		debounce:      debounce,
		signingSecret: signingSecret,
		logger:        logger,
		timers:        make(map[string]*time.Timer),
		pending:       make(map[string]store.Snapshot),
	}
}

func (a *Adapter) roomKey(roomID string) string { return a.prefix + "room:" + roomID }

// Save coalesces repeated calls for the same room within the configured
// debounce window into a single write, mirroring the teacher's
// time.Duration-based timer fields in websocket/client.go.
func (a *Adapter) Save(roomID string, snap store.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[roomID] = snap
	if t, ok := a.timers[roomID]; ok {
		t.Stop()
	}
	a.timers[roomID] = time.AfterFunc(a.debounce, func() { a.flush(roomID) })
}

// Flush immediately writes any pending snapshot for roomID, bypassing the
// debounce window. Intended for graceful shutdown paths.
func (a *Adapter) Flush(roomID string) {
	a.mu.Lock()
	if t, ok := a.timers[roomID]; ok {
		t.Stop()
		delete(a.timers, roomID)
	}
	a.mu.Unlock()
	a.flush(roomID)
}

func (a *Adapter) flush(roomID string) {
	a.mu.Lock()
	snap, ok := a.pending[roomID]
	delete(a.pending, roomID)
	a.mu.Unlock()
	if !ok {
		return
	}
	snap.SavedAt = time.Now().UnixMilli()
	data, err := json.Marshal(snap)
	if err != nil {
		a.logger.Printf("persistence: marshal failed room=%s: %v", roomID, err)
		return
	}
	if err := a.kv.Set(a.roomKey(roomID), data); err != nil {
		a.logger.Printf("persistence: save failed room=%s, retrying after cleanup: %v", roomID, err)
		a.CleanupOld()
		if err2 := a.kv.Set(a.roomKey(roomID), data); err2 != nil {
			a.logger.Printf("persistence: save failed after cleanup retry room=%s: %v", roomID, err2)
		}
	}
}

// Load returns the stored snapshot for roomID if present and within the
// retention window; otherwise it evicts the stale entry (if any) and
// returns false.
func (a *Adapter) Load(roomID string) (store.Snapshot, bool) {
	data, err := a.kv.Get(a.roomKey(roomID))
	if err != nil {
		return store.Snapshot{}, false
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		a.logger.Printf("persistence: corrupt snapshot room=%s: %v", roomID, err)
		return store.Snapshot{}, false
	}
	if time.Since(time.UnixMilli(snap.SavedAt)) > a.retention {
		a.kv.Delete(a.roomKey(roomID))
		return store.Snapshot{}, false
	}
	return snap, true
}

// LocalUserID returns the persistent per-endpoint id, minting and saving a
// new one on first use (spec.md §4.5 "random 16+ hex chars").
func (a *Adapter) LocalUserID() string {
	key := a.prefix + "local_user_id"
	if data, err := a.kv.Get(key); err == nil {
		return string(data)
	}
	id := utils.GenerateSecureToken()
	if err := a.kv.Set(key, []byte(id)); err != nil {
		a.logger.Printf("persistence: failed to persist local user id: %v", err)
	}
	return id
}

// SaveAdminToken persists roomID's opaque admin token. When a signing
// secret is configured, it additionally stores a golang-jwt/jwt/v5-signed
// envelope carrying {roomId, adminId} as a tamper-evident convenience; the
// opaque-equality check in LoadAdminToken/reclaim remains the sole
// authority per spec.md's Non-goals (no cryptographic signing requirement).
func (a *Adapter) SaveAdminToken(roomID, adminID, token string) error {
	if err := a.kv.Set(a.adminTokenKey(roomID), []byte(token)); err != nil {
		return fmt.Errorf("persistence: save admin token: %w", err)
	}
	if len(a.signingSecret) == 0 {
		return nil
	}
	claims := jwt.MapClaims{
		"roomId":  roomID,
		"adminId": adminID,
		"token":   token,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingSecret)
	if err != nil {
		a.logger.Printf("persistence: admin token envelope signing failed room=%s: %v", roomID, err)
		return nil
	}
	if err := a.kv.Set(a.adminTokenKey(roomID)+":jwt", []byte(signed)); err != nil {
		a.logger.Printf("persistence: admin token envelope save failed room=%s: %v", roomID, err)
	}
	return nil
}

// LoadAdminToken returns the stored opaque admin token for roomID, if any.
func (a *Adapter) LoadAdminToken(roomID string) (string, bool) {
	data, err := a.kv.Get(a.adminTokenKey(roomID))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (a *Adapter) adminTokenKey(roomID string) string {
	return a.prefix + "admin_token:" + roomID
}
