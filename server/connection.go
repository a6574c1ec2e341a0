package server

import (
	"sort"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"github.com/shakeparty/server/game"
)

// Session and lobby timing.
const (
	LobbyGracePeriod  = 60 * time.Second
	SessionTimeout    = 5 * time.Minute
	HeartbeatInterval = 30 * time.Second
)

// Session is the transport identity of one player: token, number and the
// current socket. It carries no game state; the engine owns that.
type Session struct {
	PlayerID     string
	Name         string
	Number       int
	Token        string
	SocketID     string // empty while disconnected
	IsBot        bool
	IsReady      bool // lobby-scoped; the engine tracks in-game ready
	LastActivity time.Time
}

// LobbyEntry is the wire form of one lobby row.
type LobbyEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Number      int    `json:"number"`
	IsReady     bool   `json:"isReady"`
	IsConnected bool   `json:"isConnected"`
	IsBot       bool   `json:"isBot,omitempty"`
	TeamID      *int   `json:"teamId,omitempty"`
}

// ConnectionManager owns player↔socket mapping, session tokens, player
// numbering and lobby grace periods. All game state lives elsewhere.
type ConnectionManager struct {
	mu  sync.Mutex
	log slog.Logger

	sessions map[string]*Session // playerID → session
	bySocket map[string]string   // socketID → playerID

	graceTimers map[string]*time.Timer

	lobbyGrace     time.Duration
	sessionTimeout time.Duration
	newToken       func() string
	now            func() time.Time

	stopHeartbeat chan struct{}
}

// NewConnectionManager creates an empty session registry.
func NewConnectionManager(log slog.Logger) *ConnectionManager {
	return &ConnectionManager{
		log:            log,
		sessions:       make(map[string]*Session),
		bySocket:       make(map[string]string),
		graceTimers:    make(map[string]*time.Timer),
		lobbyGrace:     LobbyGracePeriod,
		sessionTimeout: SessionTimeout,
		newToken:       uuid.NewString,
		now:            time.Now,
	}
}

// RegisterResult is what a successful join hands back to the client.
type RegisterResult struct {
	Token  string
	Number int
}

// Register binds a player identity to a socket, assigning the lowest free
// number. Re-registering a known playerId keeps its number; a new token is
// issued only when generateToken is set.
func (c *ConnectionManager) Register(playerID, socketID, name string, generateToken bool) RegisterResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, known := c.sessions[playerID]
	if !known {
		s = &Session{
			PlayerID: playerID,
			Number:   c.lowestFreeNumberLocked(),
		}
		c.sessions[playerID] = s
	}
	if name != "" {
		s.Name = name
	}
	if generateToken || s.Token == "" {
		s.Token = c.newToken()
	}
	c.bindSocketLocked(s, socketID)
	c.cancelGraceLocked(playerID)

	c.log.Infof("player %d (%s) registered", s.Number, s.Name)
	return RegisterResult{Token: s.Token, Number: s.Number}
}

// lowestFreeNumberLocked picks the lowest unused number in [1,20]; past 20
// the lobby overflows into size+1.
func (c *ConnectionManager) lowestFreeNumberLocked() int {
	used := make(map[int]bool, len(c.sessions))
	for _, s := range c.sessions {
		used[s.Number] = true
	}
	for n := 1; n <= game.MaxPlayerNumber; n++ {
		if !used[n] {
			return n
		}
	}
	return len(c.sessions) + 1
}

func (c *ConnectionManager) bindSocketLocked(s *Session, socketID string) {
	if s.SocketID != "" {
		delete(c.bySocket, s.SocketID)
	}
	s.SocketID = socketID
	s.LastActivity = c.now()
	if socketID != "" {
		c.bySocket[socketID] = s.PlayerID
	}
}

// Reconnect rebinds the session matching token to a new socket. The token
// scan is O(players); lobbies are small.
func (c *ConnectionManager) Reconnect(token, socketID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token == "" {
		return nil, false
	}
	for _, s := range c.sessions {
		if s.Token != token {
			continue
		}
		c.bindSocketLocked(s, socketID)
		c.cancelGraceLocked(s.PlayerID)
		c.log.Infof("player %d (%s) reconnected", s.Number, s.Name)
		return s, true
	}
	c.log.Warnf("reconnect with unknown token")
	return nil, false
}

// HandleDisconnect drops the socket binding but keeps token, number and
// name for a possible reconnect. Returns the affected playerId.
func (c *ConnectionManager) HandleDisconnect(socketID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	playerID, ok := c.bySocket[socketID]
	if !ok {
		return "", false
	}
	delete(c.bySocket, socketID)
	if s := c.sessions[playerID]; s != nil && s.SocketID == socketID {
		s.SocketID = ""
		s.IsReady = false
	}
	return playerID, true
}

// HandleLobbyDisconnect is HandleDisconnect plus a grace timer: a lobby
// player who stays away too long is purged so stale entries don't pile up.
// onExpiry runs after the purge, outside the manager lock.
func (c *ConnectionManager) HandleLobbyDisconnect(playerID, socketID string, onExpiry func(playerID string)) {
	c.HandleDisconnect(socketID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, known := c.sessions[playerID]; !known {
		return
	}
	c.cancelGraceLocked(playerID)
	c.graceTimers[playerID] = time.AfterFunc(c.lobbyGrace, func() {
		c.mu.Lock()
		s, known := c.sessions[playerID]
		if !known || s.SocketID != "" {
			c.mu.Unlock()
			return
		}
		c.removeLocked(playerID)
		c.mu.Unlock()
		if onExpiry != nil {
			onExpiry(playerID)
		}
	})
}

// RemovePlayer fully purges a session, freeing its number.
func (c *ConnectionManager) RemovePlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(playerID)
}

func (c *ConnectionManager) removeLocked(playerID string) {
	s, known := c.sessions[playerID]
	if !known {
		c.log.Warnf("remove of unknown player %q", playerID)
		return
	}
	c.cancelGraceLocked(playerID)
	if s.SocketID != "" {
		delete(c.bySocket, s.SocketID)
	}
	delete(c.sessions, playerID)
	c.log.Infof("player %d (%s) removed", s.Number, s.Name)
}

func (c *ConnectionManager) cancelGraceLocked(playerID string) {
	if t, ok := c.graceTimers[playerID]; ok {
		t.Stop()
		delete(c.graceTimers, playerID)
	}
}

// MarkBot flags a session as server-driven.
func (c *ConnectionManager) MarkBot(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[playerID]; ok {
		s.IsBot = true
	}
}

// Touch records socket activity for the session sweep.
func (c *ConnectionManager) Touch(socketID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if playerID, ok := c.bySocket[socketID]; ok {
		if s := c.sessions[playerID]; s != nil {
			s.LastActivity = c.now()
		}
	}
}

// PlayerBySocket resolves a socket to its session.
func (c *ConnectionManager) PlayerBySocket(socketID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	playerID, ok := c.bySocket[socketID]
	if !ok {
		return nil, false
	}
	return c.sessions[playerID], true
}

// Player resolves a playerId to its session.
func (c *ConnectionManager) Player(playerID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[playerID]
	return s, ok
}

// SetPlayerReady flips a lobby ready flag. Only connected sessions count.
func (c *ConnectionManager) SetPlayerReady(playerID string, ready bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, known := c.sessions[playerID]
	if !known {
		c.log.Warnf("ready from unknown player %q", playerID)
		return false
	}
	s.IsReady = ready
	return true
}

// ReadyCount tallies lobby ready state over connected sessions.
func (c *ConnectionManager) ReadyCount() (ready, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sessions {
		if s.SocketID == "" {
			continue
		}
		total++
		if s.IsReady {
			ready++
		}
	}
	return ready, total
}

// ResetReady clears all lobby ready flags.
func (c *ConnectionManager) ResetReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sessions {
		s.IsReady = false
	}
}

// ConnectedCount returns the number of sessions with a live socket.
func (c *ConnectionManager) ConnectedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sessions {
		if s.SocketID != "" {
			n++
		}
	}
	return n
}

// Lobby snapshots the lobby ordered by player number.
func (c *ConnectionManager) Lobby() []LobbyEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LobbyEntry, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, LobbyEntry{
			ID:          s.PlayerID,
			Name:        s.Name,
			Number:      s.Number,
			IsReady:     s.IsReady,
			IsConnected: s.SocketID != "",
			IsBot:       s.IsBot,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// PlayerInfos snapshots connected sessions in the engine's launch format.
func (c *ConnectionManager) PlayerInfos() []game.PlayerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]game.PlayerInfo, 0, len(c.sessions))
	for _, s := range c.sessions {
		if s.SocketID == "" {
			continue
		}
		out = append(out, game.PlayerInfo{
			ID:       s.PlayerID,
			Name:     s.Name,
			Number:   s.Number,
			SocketID: s.SocketID,
			IsBot:    s.IsBot,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// StartHeartbeat begins the periodic sweep that purges sessions idle past
// the session timeout. onExpiry runs per purged player, outside the lock.
func (c *ConnectionManager) StartHeartbeat(onExpiry func(playerID string)) {
	c.mu.Lock()
	if c.stopHeartbeat != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.stopHeartbeat = stop
	c.mu.Unlock()

	go func() {
		t := time.NewTicker(HeartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				for _, id := range c.sweepStale() {
					if onExpiry != nil {
						onExpiry(id)
					}
				}
			}
		}
	}()
}

// StopHeartbeat halts the sweep.
func (c *ConnectionManager) StopHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopHeartbeat != nil {
		close(c.stopHeartbeat)
		c.stopHeartbeat = nil
	}
}

// sweepStale purges disconnected sessions whose last activity is older than
// the session timeout and returns their ids.
func (c *ConnectionManager) sweepStale() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.sessionTimeout)
	var purged []string
	for id, s := range c.sessions {
		if s.SocketID == "" && s.LastActivity.Before(cutoff) {
			c.removeLocked(id)
			purged = append(purged, id)
		}
	}
	if len(purged) > 0 {
		c.log.Infof("session sweep purged %d stale players", len(purged))
	}
	return purged
}
