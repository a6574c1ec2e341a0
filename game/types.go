package game

import "time"

// Game timing and limits.
const (
	// TickRate is the fixed engine step during the active state.
	TickRate = 100 * time.Millisecond
	// TickMillis is TickRate expressed in game-time milliseconds.
	TickMillis = int64(100)

	MaxPlayerNumber = 20
	MaxNameLength   = 20
	MinPlayers      = 2

	// DeathDamage is the accumulated damage at which a player dies.
	DeathDamage = 100.0

	// GracePeriodMillis is the in-game disconnect grace window.
	GracePeriodMillis = int64(10000)

	// ReadyDelayMillis blocks ready input after a round ends so the
	// round-end presentation can finish on the clients.
	ReadyDelayMillis = int64(2000)

	DefaultCountdownSeconds = 3
)

// State is the engine's top-level phase.
type State string

const (
	StateWaiting    State = "waiting"
	StatePreGame    State = "pre-game"
	StateCountdown  State = "countdown"
	StateActive     State = "active"
	StateRoundEnded State = "round-ended"
	StateFinished   State = "finished"
)

// MovementConfig holds the per-role movement damage tuning.
type MovementConfig struct {
	DangerThreshold  float64 `json:"dangerThreshold"`
	DamageMultiplier float64 `json:"damageMultiplier"`
}

// EffectSnapshot is the wire form of an active status effect.
type EffectSnapshot struct {
	Kind        string `json:"kind"`
	DisplayName string `json:"displayName,omitempty"`
	Remaining   int64  `json:"remainingMs"` // -1 when indefinite
	Priority    int    `json:"priority"`
}

// PlayerSnapshot is the per-player payload inside game:tick.
type PlayerSnapshot struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Number             int              `json:"number"`
	IsAlive            bool             `json:"isAlive"`
	Damage             float64          `json:"damage"`
	Points             int              `json:"points"`
	TotalPoints        int              `json:"totalPoints"`
	Toughness          float64          `json:"toughness"`
	DeathCount         int              `json:"deathCount"`
	IsDisconnected     bool             `json:"isDisconnected"`
	GraceTimeRemaining int64            `json:"graceTimeRemaining,omitempty"`
	StatusEffects      []EffectSnapshot `json:"statusEffects"`
	// Role is filled only in the control-plane state snapshot; roles stay
	// hidden from the broadcast tick.
	Role   string `json:"role,omitempty"`
	TeamID *int   `json:"teamId,omitempty"`
}

// TickPayload is emitted on every active tick.
type TickPayload struct {
	GameTime           int64            `json:"gameTime"`
	RoundTimeRemaining int64            `json:"roundTimeRemaining"` // -1 when untimed
	Players            []PlayerSnapshot `json:"players"`
}

// DeathPayload is emitted when a player dies.
type DeathPayload struct {
	VictimID     string `json:"victimId"`
	VictimNumber int    `json:"victimNumber"`
	VictimName   string `json:"victimName"`
	GameTime     int64  `json:"gameTime"`
}

// ScoreEntry is one row of a round or game scoreboard.
type ScoreEntry struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	Number      int    `json:"number"`
	Points      int    `json:"points"`
	TotalPoints int    `json:"totalPoints"`
	Deaths      int    `json:"deaths"`
}

// RoundStartPayload is emitted when a round begins.
type RoundStartPayload struct {
	RoundNumber int      `json:"roundNumber"`
	TotalRounds int      `json:"totalRounds"`
	GameEvents  []string `json:"gameEvents"`
}

// RoundEndPayload is emitted when a round ends.
type RoundEndPayload struct {
	RoundNumber int          `json:"roundNumber"`
	Scores      []ScoreEntry `json:"scores"`
	WinnerID    string       `json:"winnerId,omitempty"`
}

// GameEndPayload is emitted once per game, before the finished state.
type GameEndPayload struct {
	Scores      []ScoreEntry `json:"scores"`
	Winner      string       `json:"winner,omitempty"`
	WinnerTeam  int          `json:"winnerTeam,omitempty"`
	TotalRounds int          `json:"totalRounds"`
}

// CountdownPayload is emitted at 1 Hz during the countdown state.
type CountdownPayload struct {
	SecondsRemaining int    `json:"secondsRemaining"`
	Phase            string `json:"phase"` // "countdown" or "go"
	RoundNumber      int    `json:"roundNumber"`
	TotalRounds      int    `json:"totalRounds"`
}

// RoleAssignedPayload is unicast to a single player's socket.
type RoleAssignedPayload struct {
	PlayerID     string `json:"playerId"`
	SocketID     string `json:"-"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	Difficulty   int    `json:"difficulty"`
	TargetNumber int    `json:"targetNumber,omitempty"`
	TargetName   string `json:"targetName,omitempty"`
}

// ReadyUpdatePayload reports between-round ready progress.
type ReadyUpdatePayload struct {
	Ready int `json:"ready"`
	Total int `json:"total"`
}

// PlayerReadyPayload is broadcast when a ready toggle is accepted.
type PlayerReadyPayload struct {
	PlayerID     string `json:"playerId"`
	PlayerName   string `json:"playerName"`
	PlayerNumber int    `json:"playerNumber"`
	IsReady      bool   `json:"isReady"`
}

// ModeEventPayload wraps in-round dynamic mode events.
type ModeEventPayload struct {
	EventType string `json:"eventType"`
	Data      any    `json:"data,omitempty"`
}
