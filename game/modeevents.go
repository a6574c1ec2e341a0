package game

import "github.com/shakeparty/server/events"

// ModeGameEvent is an in-round dynamic condition (e.g. a speed-shift
// window). The manager ticks every event each engine tick and drives the
// activate/deactivate lifecycle.
type ModeGameEvent interface {
	Type() string
	ShouldActivate(e *Engine, gameTime int64) bool
	OnStart(e *Engine, gameTime int64)
	OnTick(e *Engine, gameTime, delta int64)
	ShouldDeactivate(e *Engine, gameTime int64) bool
	OnEnd(e *Engine, gameTime int64)
}

// GameEventManager owns the mode events of the current round.
type GameEventManager struct {
	list   []ModeGameEvent
	active map[string]bool
}

func newGameEventManager(list []ModeGameEvent) *GameEventManager {
	return &GameEventManager{list: list, active: make(map[string]bool)}
}

// Names lists the installed event types for the round:start payload.
func (g *GameEventManager) Names() []string {
	out := make([]string, len(g.list))
	for i, ev := range g.list {
		out[i] = ev.Type()
	}
	return out
}

// Tick advances every event's lifecycle.
func (g *GameEventManager) Tick(e *Engine, gameTime, delta int64) {
	for _, ev := range g.list {
		name := ev.Type()
		if !g.active[name] {
			if ev.ShouldActivate(e, gameTime) {
				g.active[name] = true
				ev.OnStart(e, gameTime)
			}
			continue
		}
		ev.OnTick(e, gameTime, delta)
		if ev.ShouldDeactivate(e, gameTime) {
			g.active[name] = false
			ev.OnEnd(e, gameTime)
		}
	}
}

// Speed-shift timing: a window every interval where movement damage is
// scaled up globally, pushing everyone to hold still.
const (
	speedShiftInterval = int64(45000)
	speedShiftWindow   = int64(10000)
	speedShiftScale    = 1.5
)

type speedShiftEvent struct {
	nextAt int64
	until  int64
}

func newSpeedShiftEvent() *speedShiftEvent {
	return &speedShiftEvent{nextAt: speedShiftInterval}
}

func (s *speedShiftEvent) Type() string { return "speed-shift" }

func (s *speedShiftEvent) ShouldActivate(e *Engine, gameTime int64) bool {
	return gameTime >= s.nextAt
}

func (s *speedShiftEvent) OnStart(e *Engine, gameTime int64) {
	s.until = gameTime + speedShiftWindow
	e.moveScale = speedShiftScale
	e.bus.Emit(events.ModeEvent, ModeEventPayload{
		EventType: "speed-shift",
		Data:      map[string]any{"phase": "start", "durationMs": speedShiftWindow},
	})
}

func (s *speedShiftEvent) OnTick(e *Engine, gameTime, delta int64) {}

func (s *speedShiftEvent) ShouldDeactivate(e *Engine, gameTime int64) bool {
	return gameTime >= s.until
}

func (s *speedShiftEvent) OnEnd(e *Engine, gameTime int64) {
	e.moveScale = 1.0
	s.nextAt = gameTime + speedShiftInterval
	e.bus.Emit(events.ModeEvent, ModeEventPayload{
		EventType: "speed-shift",
		Data:      map[string]any{"phase": "end"},
	})
}
