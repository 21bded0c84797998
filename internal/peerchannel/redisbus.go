package peerchannel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus is a cross-process PeerChannel: every gateway process hosting a
// replica for the same room subscribes to the room's Redis Pub/Sub channel,
// so replicas on different machines behind a load balancer see each other's
// broadcasts. Grounded on the teacher's CacheService Redis wrapper
// (internal/services/cache_service.go), extended from its cache-only job to
// a second one, pub/sub fan-out, using the same client and
// marshal-through-JSON idiom.
type RedisBus struct {
	client *redis.Client
	pubsub *redis.PubSub
	logger *log.Logger

	roomID string
	peerID string
	prefix string

	mu             sync.RWMutex
	actionHandlers map[string][]ActionHandler
	joinHandlers   []PeerHandler
	leaveHandlers  []PeerHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type redisWireMessage struct {
	Code      string          `json:"code"`
	Payload   json.RawMessage `json:"payload"`
	SenderID  string          `json:"senderId"`
	Timestamp int64           `json:"timestamp"`
	Targets   []string        `json:"targets,omitempty"`
}

// NewRedisBus subscribes peerID to roomID's pub/sub channel and begins
// relaying inbound messages to registered handlers. keyPrefix namespaces
// the pub/sub channel name (spec.md §6 KVStore prefix convention, reused
// here for the pub/sub channel for consistency).
func NewRedisBus(client *redis.Client, keyPrefix, roomID, peerID string, logger *log.Logger) (*RedisBus, error) {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := client.Subscribe(ctx, redisBusChannel(keyPrefix, roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("peerchannel: redis subscribe: %w", err)
	}

	b := &RedisBus{
		client:         client,
		pubsub:         pubsub,
		logger:         logger,
		roomID:         roomID,
		peerID:         peerID,
		prefix:         keyPrefix,
		actionHandlers: make(map[string][]ActionHandler),
		cancel:         cancel,
	}

	b.wg.Add(1)
	go b.loop(ctx)

	b.publishPresence("join")
	return b, nil
}

func redisBusChannel(prefix, roomID string) string {
	return prefix + "room:" + roomID + ":bus"
}

func (b *RedisBus) SelfID() string { return b.peerID }

// Peers is unavailable without a separate presence registry; RedisBus
// relies on each replica's own p:join/p:leave bookkeeping in internal/sync
// rather than transport-level peer enumeration.
func (b *RedisBus) Peers() []string { return nil }

func (b *RedisBus) Broadcast(code string, payload interface{}) error {
	return b.publish(code, payload, nil)
}

func (b *RedisBus) SendTo(code string, payload interface{}, targetPeerIDs []string) error {
	return b.publish(code, payload, targetPeerIDs)
}

func (b *RedisBus) publish(code string, payload interface{}, targets []string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := redisWireMessage{
		Code:      code,
		Payload:   raw,
		SenderID:  b.peerID,
		Timestamp: time.Now().UnixMilli(),
		Targets:   targets,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := b.client.Publish(ctx, redisBusChannel(b.prefix, b.roomID), data).Err(); err != nil {
		return fmt.Errorf("peerchannel: redis publish: %w", err)
	}
	return nil
}

func (b *RedisBus) publishPresence(kind string) {
	_ = b.publish("_presence:"+kind, map[string]string{"peerId": b.peerID}, nil)
}

func (b *RedisBus) OnAction(code string, handler ActionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actionHandlers[code] = append(b.actionHandlers[code], handler)
}

func (b *RedisBus) OnPeerJoin(handler PeerHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joinHandlers = append(b.joinHandlers, handler)
}

func (b *RedisBus) OnPeerLeave(handler PeerHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveHandlers = append(b.leaveHandlers, handler)
}

func (b *RedisBus) Leave() error {
	b.publishPresence("leave")
	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}

func (b *RedisBus) loop(ctx context.Context) {
	defer b.wg.Done()
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg redisWireMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Printf("peerchannel: redis bus malformed message: %v", err)
				continue
			}
			if msg.SenderID == b.peerID {
				continue
			}
			b.route(msg)
		}
	}
}

func (b *RedisBus) route(msg redisWireMessage) {
	switch msg.Code {
	case "_presence:join":
		b.emitPeer(b.joinHandlersSnapshot(), msg.SenderID)
		return
	case "_presence:leave":
		b.emitPeer(b.leaveHandlersSnapshot(), msg.SenderID)
		return
	}
	if len(msg.Targets) > 0 {
		targeted := false
		for _, t := range msg.Targets {
			if t == b.peerID {
				targeted = true
				break
			}
		}
		if !targeted {
			return
		}
	}
	envelope := Envelope{Payload: msg.Payload, SenderID: msg.SenderID, Timestamp: msg.Timestamp}
	b.mu.RLock()
	handlers := append([]ActionHandler{}, b.actionHandlers[msg.Code]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(envelope.Payload, envelope.SenderID, envelope)
	}
}

func (b *RedisBus) joinHandlersSnapshot() []PeerHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]PeerHandler{}, b.joinHandlers...)
}

func (b *RedisBus) leaveHandlersSnapshot() []PeerHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]PeerHandler{}, b.leaveHandlers...)
}

func (b *RedisBus) emitPeer(handlers []PeerHandler, peerID string) {
	for _, h := range handlers {
		h(peerID)
	}
}
