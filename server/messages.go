package server

import (
	"encoding/json"
	"html"
	"math"
	"strings"

	"github.com/shakeparty/server/game"
)

// Inbound message types.
const (
	MsgPlayerJoin      = "player:join"
	MsgPlayerReconnect = "player:reconnect"
	MsgPlayerMove      = "player:move"
	MsgPlayerReady     = "player:ready"
	MsgTeamSwitch      = "player:team-switch"
	MsgBaseJoin        = "base:join"
	MsgBaseTap         = "base:tap"
	MsgPing            = "ping"
	MsgPong            = "pong"
)

// ClientMessage is one inbound frame from a socket.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage is one outbound frame to a socket.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// JoinData is the player:join payload. PlayerID is client-generated so the
// phone keeps one identity across app reloads.
type JoinData struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// ReconnectData is the player:reconnect payload.
type ReconnectData struct {
	Token string `json:"token"`
}

// MoveData is a raw accelerometer sample; the gateway reduces it to an
// intensity scalar before the engine sees it.
type MoveData struct {
	PlayerID   string  `json:"playerId"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Timestamp  int64   `json:"timestamp"`
	DeviceType string  `json:"deviceType,omitempty"`
}

// ReadyData is the player:ready payload.
type ReadyData struct {
	PlayerID string `json:"playerId"`
}

// TeamSwitchData is the player:team-switch payload.
type TeamSwitchData struct {
	PlayerID string `json:"playerId"`
}

// BaseJoinData is the base:join payload. BaseID is stable per physical
// device.
type BaseJoinData struct {
	BaseID string `json:"baseId"`
}

// BaseTapData is the base:tap payload.
type BaseTapData struct {
	BaseID string `json:"baseId"`
}

// ErrorData is the wire form of a rejected request.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JoinedData is unicast back to a freshly joined player socket.
type JoinedData struct {
	Success      bool   `json:"success"`
	SessionToken string `json:"sessionToken,omitempty"`
	PlayerID     string `json:"playerId,omitempty"`
	PlayerNumber int    `json:"playerNumber,omitempty"`
	Name         string `json:"name,omitempty"`
	TeamID       *int   `json:"teamId,omitempty"`
}

// ReconnectedData is unicast back on a reconnect attempt.
type ReconnectedData struct {
	Success      bool   `json:"success"`
	PlayerID     string `json:"playerId,omitempty"`
	PlayerNumber int    `json:"playerNumber,omitempty"`
	Name         string `json:"name,omitempty"`
	GameState    string `json:"gameState,omitempty"`
}

// sanitizeName strips everything but letters, digits and spaces, collapses
// the result to the name length limit and escapes HTML.
func sanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			return r
		}
		return -1
	}, name)
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > game.MaxNameLength {
		cleaned = string(runes[:game.MaxNameLength])
	}
	return html.EscapeString(cleaned)
}

// Gravity in m/s²; accelerometer samples include it.
const gravity = 9.81

// movementIntensity reduces a raw accelerometer sample to the [0,1] scalar
// the engine consumes. The scale is the net acceleration treated as a
// full-intensity shake.
func movementIntensity(x, y, z float64, deviceType string) float64 {
	mag := math.Sqrt(x*x + y*y + z*z)
	if math.IsNaN(mag) || math.IsInf(mag, 0) {
		return 0
	}
	net := mag - gravity
	if net < 0 {
		net = 0
	}

	// iOS reports devicemotion without gravity on some browsers, which
	// reads lower for the same shake.
	scale := 25.0
	if deviceType == "ios" {
		scale = 18.0
	}

	intensity := net / scale
	if intensity > 1 {
		intensity = 1
	}
	return intensity
}
