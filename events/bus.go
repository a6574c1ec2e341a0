// Package events provides the in-process publish/subscribe bus that couples
// the game engine, its managers and the socket gateway.
package events

import (
	"sync"

	"github.com/decred/slog"
)

// Event names emitted by the engine and managers. The gateway forwards most
// of these verbatim to connected sockets.
const (
	LobbyUpdate       = "lobby:update"
	PlayerJoined      = "player:joined"
	PlayerReconnected = "player:reconnected"
	PlayerLeft        = "player:left"
	PlayerReady       = "player:ready"
	PlayerDeath       = "player:death"
	RoleAssigned      = "role:assigned"
	GameStart         = "game:start"
	GameTick          = "game:tick"
	GameCountdown     = "game:countdown"
	GameEnd           = "game:end"
	GameStopped       = "game:stopped"
	RoundStart        = "round:start"
	RoundEnd          = "round:end"
	ReadyUpdate       = "ready:update"
	ReadyEnabled      = "ready:enabled"
	ModeEvent         = "mode:event"
	BaseRegistered    = "base:registered"
	BaseCaptured      = "base:captured"
	BasePoint         = "base:point"
	BaseStatus        = "base:status"
	DominationWin     = "domination:win"
	ErrorEvent        = "error"
)

// Handler receives the payload of an emitted event.
type Handler func(payload any)

// Subscription identifies a registered handler so it can be removed without
// comparing function values.
type Subscription struct {
	event string
	id    uint64
	round bool
}

type entry struct {
	id uint64
	fn Handler
}

// Bus is a synchronous pub/sub dispatcher. Handlers run in registration
// order on the emitter's goroutine. A panicking handler is logged and does
// not prevent later handlers from running.
//
// Round-scoped subscriptions live in a separate bucket that is bulk-cleared
// when a round ends; everything else persists for the process lifetime.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	global   map[string][]entry
	round    map[string][]entry
	log      slog.Logger
	emitting int
}

// NewBus creates an empty bus. log may be nil.
func NewBus(log slog.Logger) *Bus {
	return &Bus{
		global: make(map[string][]entry),
		round:  make(map[string][]entry),
		log:    log,
	}
}

// On registers a handler for event and returns its subscription handle.
func (b *Bus) On(event string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.global[event] = append(b.global[event], entry{id: b.nextID, fn: fn})
	return Subscription{event: event, id: b.nextID}
}

// OnRound registers a handler that lives until ClearRoundListeners.
func (b *Bus) OnRound(event string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.round[event] = append(b.round[event], entry{id: b.nextID, fn: fn})
	return Subscription{event: event, id: b.nextID, round: true}
}

// Off removes a subscription. Removing an already-removed or zero
// subscription is a no-op.
func (b *Bus) Off(sub Subscription) {
	if sub.id == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.global
	if sub.round {
		set = b.round
	}
	list := set[sub.event]
	for i, e := range list {
		if e.id == sub.id {
			set[sub.event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// ClearRoundListeners drops every round-scoped subscription.
func (b *Bus) ClearRoundListeners() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.round = make(map[string][]entry)
}

// Emit delivers payload to all handlers of event, global first then
// round-scoped, synchronously and in registration order.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.global[event])+len(b.round[event]))
	for _, e := range b.global[event] {
		handlers = append(handlers, e.fn)
	}
	for _, e := range b.round[event] {
		handlers = append(handlers, e.fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		b.safeCall(event, fn, payload)
	}
}

func (b *Bus) safeCall(event string, fn Handler, payload any) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Errorf("handler panic on %s: %v", event, r)
		}
	}()
	fn(payload)
}
