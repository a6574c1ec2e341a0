package game

import (
	"sort"

	"github.com/decred/slog"

	"github.com/shakeparty/server/events"
)

// Base is a connected capture-point device for domination mode.
type Base struct {
	BaseID          string `json:"baseId"`
	BaseNumber      int    `json:"baseNumber"`
	SocketID        string `json:"-"`
	OwnerTeamID     int    `json:"ownerTeamId"` // -1 when unowned
	IsConnected     bool   `json:"isConnected"`
	LastCaptureTime int64  `json:"lastCaptureTime"`
	LastPointTime   int64  `json:"lastPointTime"`
}

// BaseManager registers base devices and runs domination point accrual.
// Mutated only under the engine lock.
type BaseManager struct {
	bus   *events.Bus
	log   slog.Logger
	bases map[string]*Base
}

// NewBaseManager creates an empty registry.
func NewBaseManager(bus *events.Bus, log slog.Logger) *BaseManager {
	return &BaseManager{bus: bus, log: log, bases: make(map[string]*Base)}
}

// Register adds a base device, or rebinds a known baseId to a new socket
// keeping its number (device rejoined mid-game).
func (b *BaseManager) Register(baseID, socketID string) *Base {
	if base, ok := b.bases[baseID]; ok {
		base.SocketID = socketID
		base.IsConnected = true
		b.log.Infof("base %d reconnected", base.BaseNumber)
		b.emitStatus(base)
		return base
	}
	base := &Base{
		BaseID:      baseID,
		BaseNumber:  b.lowestFreeNumber(),
		SocketID:    socketID,
		OwnerTeamID: -1,
		IsConnected: true,
	}
	b.bases[baseID] = base
	b.log.Infof("base %d registered", base.BaseNumber)
	b.bus.Emit(events.BaseRegistered, map[string]any{
		"baseId":     base.BaseID,
		"baseNumber": base.BaseNumber,
	})
	b.emitStatus(base)
	return base
}

func (b *BaseManager) lowestFreeNumber() int {
	used := make(map[int]bool, len(b.bases))
	for _, base := range b.bases {
		used[base.BaseNumber] = true
	}
	for n := 1; ; n++ {
		if !used[n] {
			return n
		}
	}
}

// HandleTap cycles a base's ownership through the configured teams. Valid
// only during active play; the engine gates the call.
func (b *BaseManager) HandleTap(baseID string, teamCount int, gameTime int64) (*Base, bool) {
	base, ok := b.bases[baseID]
	if !ok || !base.IsConnected {
		if b.log != nil {
			b.log.Warnf("tap from unknown or disconnected base %q", baseID)
		}
		return nil, false
	}
	base.OwnerTeamID = (base.OwnerTeamID + 1) % teamCount
	base.LastCaptureTime = gameTime
	base.LastPointTime = gameTime
	b.bus.Emit(events.BaseCaptured, map[string]any{
		"baseId":     base.BaseID,
		"baseNumber": base.BaseNumber,
		"teamId":     base.OwnerTeamID,
		"gameTime":   gameTime,
	})
	return base, true
}

// HandleDisconnect marks a base offline. Outside active play the entry is
// purged and its number freed; mid-game the base stays so a reconnect keeps
// its identity (a disconnected base accrues no points meanwhile).
func (b *BaseManager) HandleDisconnect(socketID string, inGame bool) {
	for id, base := range b.bases {
		if base.SocketID != socketID {
			continue
		}
		base.IsConnected = false
		if !inGame {
			delete(b.bases, id)
			b.log.Infof("base %d removed", base.BaseNumber)
			return
		}
		b.log.Warnf("base %d disconnected mid-game", base.BaseNumber)
		b.emitStatus(base)
		return
	}
}

// Tick awards one point per owned, connected base whose control interval
// has elapsed. Returns points earned per team this tick.
func (b *BaseManager) Tick(gameTime, intervalMillis int64) map[int]int {
	earned := make(map[int]int)
	for _, base := range b.bases {
		if !base.IsConnected || base.OwnerTeamID < 0 {
			continue
		}
		for gameTime-base.LastPointTime >= intervalMillis {
			base.LastPointTime += intervalMillis
			earned[base.OwnerTeamID]++
			b.bus.Emit(events.BasePoint, map[string]any{
				"baseNumber": base.BaseNumber,
				"teamId":     base.OwnerTeamID,
				"gameTime":   gameTime,
			})
		}
	}
	return earned
}

// ResetOwnership neutralizes all bases for a fresh game.
func (b *BaseManager) ResetOwnership() {
	for _, base := range b.bases {
		base.OwnerTeamID = -1
		base.LastCaptureTime = 0
		base.LastPointTime = 0
	}
}

// ConnectedCount returns the number of online bases.
func (b *BaseManager) ConnectedCount() int {
	n := 0
	for _, base := range b.bases {
		if base.IsConnected {
			n++
		}
	}
	return n
}

// Bases returns all registered bases ordered by number.
func (b *BaseManager) Bases() []*Base {
	out := make([]*Base, 0, len(b.bases))
	for _, base := range b.bases {
		out = append(out, base)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BaseNumber < out[j].BaseNumber })
	return out
}

func (b *BaseManager) emitStatus(base *Base) {
	b.bus.Emit(events.BaseStatus, map[string]any{
		"baseId":      base.BaseID,
		"baseNumber":  base.BaseNumber,
		"teamId":      base.OwnerTeamID,
		"isConnected": base.IsConnected,
	})
}
