package game

import (
	"math/rand"
	"sort"
)

// Settings is the tunable game configuration. The server's settings store
// persists it; the engine receives a snapshot at launch.
type Settings struct {
	Sensitivity      string  `json:"sensitivity"`
	GameMode         string  `json:"gameMode"`
	Theme            string  `json:"theme"`
	RoundCount       int     `json:"roundCount"`
	RoundDuration    int     `json:"roundDuration"` // seconds
	DangerThreshold  float64 `json:"dangerThreshold"`
	DamageMultiplier float64 `json:"damageMultiplier"`
	TeamsEnabled     bool    `json:"teamsEnabled"`
	TeamCount        int     `json:"teamCount"`
	TargetScore      int     `json:"targetScore"`

	DominationPointTarget     int `json:"dominationPointTarget"`
	DominationControlInterval int `json:"dominationControlInterval"` // seconds
	DominationBaseCount       int `json:"dominationBaseCount"`

	DeathCountRespawnTime int `json:"deathCountRespawnTime"` // seconds
}

// SensitivityPresets maps preset names to movement tuning.
var SensitivityPresets = map[string]MovementConfig{
	"chill":   {DangerThreshold: 0.50, DamageMultiplier: 0.7},
	"normal":  {DangerThreshold: 0.35, DamageMultiplier: 1.0},
	"frantic": {DangerThreshold: 0.20, DamageMultiplier: 1.5},
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{
		Sensitivity:               "normal",
		GameMode:                  "classic",
		Theme:                     "standard",
		RoundCount:                3,
		RoundDuration:             90,
		DangerThreshold:           DefaultMovement.DangerThreshold,
		DamageMultiplier:          DefaultMovement.DamageMultiplier,
		TeamsEnabled:              false,
		TeamCount:                 2,
		TargetScore:               10,
		DominationPointTarget:     10,
		DominationControlInterval: 5,
		DominationBaseCount:       2,
		DeathCountRespawnTime:     5,
	}
}

// Movement resolves the effective movement tuning from the settings,
// letting explicit threshold/multiplier override the preset.
func (s Settings) Movement() MovementConfig {
	mc := DefaultMovement
	if preset, ok := SensitivityPresets[s.Sensitivity]; ok {
		mc = preset
	}
	if s.DangerThreshold > 0 {
		mc.DangerThreshold = s.DangerThreshold
	}
	if s.DamageMultiplier > 0 {
		mc.DamageMultiplier = s.DamageMultiplier
	}
	return mc
}

// WinCondition is the result of a per-tick win check.
type WinCondition struct {
	RoundEnded bool
	GameEnded  bool
	WinnerID   string
	WinnerTeam int
	Reason     string
}

// Mode is the strategy for one game variant. All hooks run under the engine
// lock; gameTime is ms since round start.
type Mode interface {
	Key() string
	Name() string
	Description() string
	UsesRoles() bool

	// RoundCount returns the number of rounds, or 0 for a single
	// unbounded round (target-score modes).
	RoundCount() int
	// RoundDuration returns the round length in ms, or 0 when untimed.
	RoundDuration() int64
	// RolePool draws the role kinds to assign for a round of n players.
	RolePool(n int, rng *rand.Rand) []RoleKind
	// GameEvents returns the in-round dynamic events for one round.
	GameEvents() []ModeGameEvent

	OnModeSelected(e *Engine)
	OnRoundStart(e *Engine, gameTime int64)
	OnTick(e *Engine, gameTime, delta int64)
	OnPlayerMove(e *Engine, p *Player, intensity float64, gameTime int64)
	OnPlayerDeath(e *Engine, victim *Player, gameTime int64)
	CheckWin(e *Engine, gameTime int64) WinCondition

	// OnRoundEnd distributes round points; returning true ends the game
	// regardless of the win condition.
	OnRoundEnd(e *Engine, cond WinCondition) bool
	OnGameEnd(e *Engine)
	FinalScores(e *Engine) []ScoreEntry
}

// baseMode carries the shared plumbing and no-op hooks.
type baseMode struct {
	key         string
	name        string
	description string
	settings    Settings
}

func (m *baseMode) Key() string                                           { return m.key }
func (m *baseMode) Name() string                                          { return m.name }
func (m *baseMode) Description() string                                   { return m.description }
func (m *baseMode) UsesRoles() bool                                       { return false }
func (m *baseMode) RoundCount() int                                       { return m.settings.RoundCount }
func (m *baseMode) RoundDuration() int64                                  { return 0 }
func (m *baseMode) RolePool(int, *rand.Rand) []RoleKind                   { return nil }
func (m *baseMode) GameEvents() []ModeGameEvent                           { return []ModeGameEvent{newSpeedShiftEvent()} }
func (m *baseMode) OnModeSelected(*Engine)                                {}
func (m *baseMode) OnRoundStart(*Engine, int64)                           {}
func (m *baseMode) OnTick(*Engine, int64, int64)                          {}
func (m *baseMode) OnPlayerMove(*Engine, *Player, float64, int64)         {}
func (m *baseMode) OnPlayerDeath(*Engine, *Player, int64)                 {}
func (m *baseMode) OnGameEnd(*Engine)                                     {}
func (m *baseMode) OnRoundEnd(e *Engine, cond WinCondition) bool          { return false }
func (m *baseMode) CheckWin(e *Engine, gameTime int64) (_ WinCondition)   { return }
func (m *baseMode) FinalScores(e *Engine) []ScoreEntry                    { return totalPointScores(e) }

// totalPointScores ranks the roster by total points, ties broken by lower
// player number.
func totalPointScores(e *Engine) []ScoreEntry {
	roster := e.Roster()
	out := make([]ScoreEntry, 0, len(roster))
	for _, p := range roster {
		out = append(out, ScoreEntry{
			PlayerID:    p.ID,
			Name:        p.Name,
			Number:      p.Number,
			Points:      p.Points,
			TotalPoints: p.TotalPoints,
			Deaths:      p.DeathCount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// ModeInfo describes an installed mode for the control plane.
type ModeInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModeFactory builds a mode instance from a settings snapshot.
type ModeFactory func(s Settings, roles *RoleRegistry) Mode

// ModeRegistry maps mode keys to factories.
type ModeRegistry struct {
	order     []string
	factories map[string]ModeFactory
	infos     map[string]ModeInfo
}

// NewModeRegistry installs the built-in modes.
func NewModeRegistry() *ModeRegistry {
	r := &ModeRegistry{
		factories: make(map[string]ModeFactory),
		infos:     make(map[string]ModeInfo),
	}
	r.register(ModeInfo{Key: "classic", Name: "Classic", Description: "Last player standing wins the round."},
		func(s Settings, _ *RoleRegistry) Mode { return newClassicMode(s) })
	r.register(ModeInfo{Key: "deathcount", Name: "Death Count", Description: "Timed rounds; die as little as possible."},
		func(s Settings, _ *RoleRegistry) Mode { return newDeathCountMode(s) })
	r.register(ModeInfo{Key: "roles", Name: "Roles", Description: "Last standing, with secret themed roles."},
		func(s Settings, roles *RoleRegistry) Mode { return newRolesMode(s, roles) })
	r.register(ModeInfo{Key: "domination", Name: "Domination", Description: "Teams hold bases to score; first to the target wins."},
		func(s Settings, _ *RoleRegistry) Mode { return newDominationMode(s) })
	return r
}

func (r *ModeRegistry) register(info ModeInfo, f ModeFactory) {
	r.order = append(r.order, info.Key)
	r.infos[info.Key] = info
	r.factories[info.Key] = f
}

// Create builds a mode by key; ok is false for unknown keys.
func (r *ModeRegistry) Create(key string, s Settings, roles *RoleRegistry) (Mode, bool) {
	f, ok := r.factories[key]
	if !ok {
		return nil, false
	}
	return f(s, roles), true
}

// List returns the installed modes in registration order.
func (r *ModeRegistry) List() []ModeInfo {
	out := make([]ModeInfo, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.infos[k])
	}
	return out
}
