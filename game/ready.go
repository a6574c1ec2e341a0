package game

import "github.com/shakeparty/server/events"

// ReadyStateManager tracks between-round ready state. After a round ends,
// ready input is disabled for a short window so the round-end presentation
// finishes before anyone can skip it. All methods run under the engine
// lock.
type ReadyStateManager struct {
	bus     *events.Bus
	enabled bool
}

// NewReadyStateManager starts with ready input enabled.
func NewReadyStateManager(bus *events.Bus) *ReadyStateManager {
	return &ReadyStateManager{bus: bus, enabled: true}
}

// Enabled reports whether ready input is currently accepted.
func (r *ReadyStateManager) Enabled() bool { return r.enabled }

// Disable rejects ready input until Enable; clients are told so they can
// grey out the button.
func (r *ReadyStateManager) Disable() {
	if !r.enabled {
		return
	}
	r.enabled = false
	r.bus.Emit(events.ReadyEnabled, map[string]bool{"enabled": false})
}

// Enable re-accepts ready input.
func (r *ReadyStateManager) Enable() {
	if r.enabled {
		return
	}
	r.enabled = true
	r.bus.Emit(events.ReadyEnabled, map[string]bool{"enabled": true})
}

// Reset clears every player's ready flag.
func (r *ReadyStateManager) Reset(roster []*Player) {
	for _, p := range roster {
		p.IsReady = false
	}
}

// Count tallies ready over the connected roster; disconnected players are
// excluded from the total so they cannot block progress.
func (r *ReadyStateManager) Count(roster []*Player) ReadyUpdatePayload {
	out := ReadyUpdatePayload{}
	for _, p := range roster {
		if p.IsDisconnected() {
			continue
		}
		out.Total++
		if p.IsReady {
			out.Ready++
		}
	}
	return out
}

// AllReady reports whether every connected player is ready and at least
// minimum are present.
func (r *ReadyStateManager) AllReady(roster []*Player, minimum int) bool {
	c := r.Count(roster)
	return c.Total >= minimum && c.Ready == c.Total
}
