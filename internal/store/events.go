package store

import "sync"

// Event names (spec.md §6 "State-change emitter (exposed)").
const (
	EventChange            = "change"
	EventBatch             = "batch"
	EventReset             = "reset"
	EventSync              = "sync"
	EventMerge             = "merge"
	EventParticipantJoin   = "participant:join"
	EventParticipantLeave  = "participant:leave"
	EventParticipantUpdate = "participant:update"
	EventMatchUpdate       = "match:update"
)

// Handler receives an event's payload. The concrete type depends on the
// event name: ChangePayload for EventChange, BatchPayload for EventBatch,
// models.Participant for the participant:* events, models.Match for
// match:update, nil for reset/sync/merge.
type Handler func(payload interface{})

// ChangePayload is emitted on every path-level mutation.
type ChangePayload struct {
	Path     string
	Value    interface{}
	OldValue interface{}
}

// BatchPayload is emitted once per atomic multi-set, alongside a single
// EventChange per spec.md §4.3 ("emits one batch and one change").
type BatchPayload struct {
	Changes map[string]interface{}
}

// Unsubscribe removes a previously registered handler.
type Unsubscribe func()

// Emitter is the concurrency-safe half of Document: subscription
// bookkeeping guarded by a RWMutex, the same way websocket.Hub guards its
// client maps, even though the rest of Document assumes single-owner access.
type Emitter struct {
	mu     sync.RWMutex
	subs   map[string]map[int]Handler
	nextID int
}

// Subscribe registers h for event and returns a handle that unsubscribes it.
func (e *Emitter) Subscribe(event string, h Handler) Unsubscribe {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[string]map[int]Handler)
	}
	if e.subs[event] == nil {
		e.subs[event] = make(map[int]Handler)
	}
	e.nextID++
	id := e.nextID
	e.subs[event][id] = h
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs[event], id)
	}
}

// Emit calls every handler currently subscribed to event with payload.
// Handlers are snapshotted under the read lock so a handler that
// subscribes/unsubscribes during dispatch cannot deadlock or skip peers.
func (e *Emitter) Emit(event string, payload interface{}) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.subs[event]))
	for _, h := range e.subs[event] {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		h(payload)
	}
}
