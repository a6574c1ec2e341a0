package server

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shakeparty/server/events"
	"github.com/shakeparty/server/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// Config carries the gateway's runtime switches.
type Config struct {
	DevMode        bool
	AllowedOrigins []string
}

// Client is one connected socket: a player phone, a base device or a
// dashboard.
type Client struct {
	ID     string // socket id
	conn   *websocket.Conn
	send   chan ServerMessage
	server *Server
	isBase bool
}

// Server is the socket gateway: it owns the client set, fans bus events out
// to sockets and routes inbound frames to the engine and managers.
type Server struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan ServerMessage

	engine   *game.Engine
	conns    *ConnectionManager
	settings *SettingsStore
	bus      *events.Bus
	log      slog.Logger
	cfg      Config
	upgrader websocket.Upgrader
	started  time.Time

	bots    *BotManager
	logRing RingReader
}

// NewServer wires the gateway to its collaborators and subscribes it to the
// event bus.
func NewServer(cfg Config, engine *game.Engine, conns *ConnectionManager, settings *SettingsStore, bus *events.Bus, log slog.Logger) *Server {
	s := &Server{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ServerMessage, sendBufferSize),
		engine:     engine,
		conns:      conns,
		settings:   settings,
		bus:        bus,
		log:        log,
		cfg:        cfg,
		started:    time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:       s.isValidOrigin,
		EnableCompression: true,
	}
	s.bots = NewBotManager(s)
	s.subscribeBus()
	engine.OnAutoRelaunch = s.autoRelaunch
	return s
}

// isValidOrigin allows same-origin, localhost and configured origins.
func (s *Server) isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser client.
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		s.log.Warnf("invalid origin %q", origin)
		return false
	}
	if r.Host == originURL.Host {
		return true
	}
	if strings.HasPrefix(originURL.Host, "localhost:") ||
		strings.HasPrefix(originURL.Host, "127.0.0.1:") ||
		originURL.Host == "localhost" ||
		originURL.Host == "127.0.0.1" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	s.log.Warnf("rejected socket from origin %q", origin)
	return false
}

// subscribeBus forwards engine events to the sockets. Broadcast events go to
// every client; role assignments are unicast by socket id.
func (s *Server) subscribeBus() {
	broadcastEvents := []string{
		events.LobbyUpdate,
		events.PlayerLeft,
		events.PlayerReady,
		events.PlayerDeath,
		events.GameStart,
		events.GameTick,
		events.GameCountdown,
		events.GameEnd,
		events.GameStopped,
		events.RoundStart,
		events.RoundEnd,
		events.ReadyUpdate,
		events.ReadyEnabled,
		events.ModeEvent,
		events.BaseRegistered,
		events.BaseCaptured,
		events.BasePoint,
		events.BaseStatus,
		events.DominationWin,
	}
	for _, name := range broadcastEvents {
		event := name
		s.bus.On(event, func(payload any) {
			s.broadcast <- ServerMessage{Type: event, Data: payload}
		})
	}

	s.bus.On(events.RoleAssigned, func(payload any) {
		assignment, ok := payload.(game.RoleAssignedPayload)
		if !ok {
			return
		}
		s.sendTo(assignment.SocketID, ServerMessage{Type: events.RoleAssigned, Data: assignment})
	})
}

// Run is the hub loop. It owns the client map; nothing here takes the
// engine lock, so broadcast drains even mid-tick.
func (s *Server) Run() {
	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			s.log.Debugf("socket %s connected", client.ID)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.send)
			}
			s.mu.Unlock()
			s.handleSocketGone(client)

		case message := <-s.broadcast:
			s.mu.RLock()
			for _, client := range s.clients {
				select {
				case client.send <- message:
				default:
					s.log.Warnf("socket %s send buffer full, dropping %s", client.ID, message.Type)
				}
			}
			s.mu.RUnlock()
		}
	}
}

// sendTo queues a message for one socket.
func (s *Server) sendTo(socketID string, msg ServerMessage) {
	if socketID == "" {
		return
	}
	s.mu.RLock()
	client, ok := s.clients[socketID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case client.send <- msg:
	default:
		s.log.Warnf("socket %s send buffer full, dropping %s", socketID, msg.Type)
	}
}

// handleSocketGone routes a dropped socket to the right grace path: bases to
// the base manager, lobby players to the 60 s lobby grace, in-game players
// to the engine's in-game grace.
func (s *Server) handleSocketGone(client *Client) {
	if client.isBase {
		s.engine.HandleBaseDisconnect(client.ID)
		return
	}

	session, ok := s.conns.PlayerBySocket(client.ID)
	if !ok {
		return
	}
	playerID := session.PlayerID

	if s.engine.State() == game.StateWaiting {
		s.conns.HandleLobbyDisconnect(playerID, client.ID, func(expiredID string) {
			s.log.Infof("lobby grace expired for player %s", expiredID)
			s.NotifyPlayerExpired(expiredID)
		})
		s.emitLobby()
		return
	}

	s.conns.HandleDisconnect(client.ID)
	s.engine.HandlePlayerDisconnect(playerID)
}

// NotifyPlayerExpired announces a purged session (lobby grace or session
// sweep) and refreshes the lobby roster.
func (s *Server) NotifyPlayerExpired(playerID string) {
	s.bus.Emit(events.PlayerLeft, map[string]any{"playerId": playerID})
	s.emitLobby()
}

// emitLobby broadcasts the current lobby roster.
func (s *Server) emitLobby() {
	s.bus.Emit(events.LobbyUpdate, map[string]any{"players": s.lobbyWithTeams()})
}

// lobbyWithTeams decorates lobby entries with team assignments when teams
// are in play.
func (s *Server) lobbyWithTeams() []LobbyEntry {
	entries := s.conns.Lobby()
	teams := s.engine.Teams()
	for i := range entries {
		if id, ok := teams.TeamOf(entries[i].ID); ok {
			v := id
			entries[i].TeamID = &v
		}
	}
	return entries
}

// autoRelaunch restarts the last mode when everyone readies up after a
// finished game. Runs on its own goroutine, off the engine lock.
func (s *Server) autoRelaunch() {
	if s.conns.ConnectedCount() < game.MinPlayers {
		s.log.Warnf("auto-relaunch skipped: not enough connected players")
		return
	}
	settings := s.settings.Snapshot()
	res := s.engine.StartGame(s.conns.PlayerInfos(), settings, game.LaunchOptions{
		ModeKey:          s.engine.LastModeKey(),
		CountdownSeconds: -1,
		SkipPreGame:      true,
	})
	if !res.OK {
		s.log.Warnf("auto-relaunch rejected: %s", res.Message)
	}
}

// HandleWebSocket upgrades an HTTP request into a gateway client.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		conn:   conn,
		send:   make(chan ServerMessage, sendBufferSize),
		server: s,
	}
	s.register <- client

	go client.writePump()
	go client.readPump()
}

// Uptime reports how long the gateway has been serving.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.started)
}

// Shutdown closes every client socket and stops the session sweep.
func (s *Server) Shutdown() {
	s.conns.StopHeartbeat()
	s.engine.StopGame()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, client := range s.clients {
		client.conn.Close()
		delete(s.clients, id)
	}
}

// readPump handles incoming frames until the socket drops.
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Debugf("socket %s read: %v", c.ID, err)
			}
			break
		}
		c.server.conns.Touch(c.ID)
		c.handleMessage(msg)
	}
}

// writePump drains the send queue and keeps the connection pinged.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
