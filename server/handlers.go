package server

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/shakeparty/server/events"
	"github.com/shakeparty/server/game"
)

// handleMessage routes one inbound frame. A panicking handler is contained
// so a bad frame cannot take the socket down.
func (c *Client) handleMessage(msg ClientMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.server.log.Errorf("panic handling %s from socket %s: %v", msg.Type, c.ID, r)
		}
	}()

	switch msg.Type {
	case MsgPlayerJoin:
		c.handleJoin(msg.Data)
	case MsgPlayerReconnect:
		c.handleReconnect(msg.Data)
	case MsgPlayerMove:
		c.handleMove(msg.Data)
	case MsgPlayerReady:
		c.handleReady(msg.Data)
	case MsgTeamSwitch:
		c.handleTeamSwitch(msg.Data)
	case MsgBaseJoin:
		c.handleBaseJoin(msg.Data)
	case MsgBaseTap:
		c.handleBaseTap(msg.Data)
	case MsgPing:
		c.reply(ServerMessage{Type: MsgPong})
	default:
		c.server.log.Warnf("unknown message type %q from socket %s", msg.Type, c.ID)
	}
}

// reply queues a message on this socket only.
func (c *Client) reply(msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
		c.server.log.Warnf("socket %s send buffer full, dropping %s", c.ID, msg.Type)
	}
}

func (c *Client) replyError(code, message string) {
	c.reply(ServerMessage{Type: events.ErrorEvent, Data: ErrorData{Code: code, Message: message}})
}

func (c *Client) handleJoin(raw json.RawMessage) {
	var data JoinData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.replyError("bad-payload", "malformed join payload")
		return
	}
	if data.PlayerID == "" {
		data.PlayerID = uuid.NewString()
	}
	name := sanitizeName(data.Name)
	if name == "" {
		c.reply(ServerMessage{Type: events.PlayerJoined, Data: JoinedData{Success: false}})
		c.replyError("invalid-name", "name must contain letters or digits")
		return
	}

	result := c.server.conns.Register(data.PlayerID, c.ID, name, true)

	joined := JoinedData{
		Success:      true,
		SessionToken: result.Token,
		PlayerID:     data.PlayerID,
		PlayerNumber: result.Number,
		Name:         name,
	}
	if teamID, ok := c.server.engine.Teams().TeamOf(data.PlayerID); ok {
		v := teamID
		joined.TeamID = &v
	}
	c.reply(ServerMessage{Type: events.PlayerJoined, Data: joined})
	c.server.emitLobby()
}

func (c *Client) handleReconnect(raw json.RawMessage) {
	var data ReconnectData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.replyError("bad-payload", "malformed reconnect payload")
		return
	}

	session, ok := c.server.conns.Reconnect(data.Token, c.ID)
	if !ok {
		c.reply(ServerMessage{Type: events.PlayerReconnected, Data: ReconnectedData{Success: false}})
		return
	}

	// Rebind the in-game player too, when a game is running.
	c.server.engine.HandlePlayerReconnect(session.PlayerID, c.ID)

	c.reply(ServerMessage{Type: events.PlayerReconnected, Data: ReconnectedData{
		Success:      true,
		PlayerID:     session.PlayerID,
		PlayerNumber: session.Number,
		Name:         session.Name,
		GameState:    string(c.server.engine.State()),
	}})
	c.server.emitLobby()
}

func (c *Client) handleMove(raw json.RawMessage) {
	var data MoveData
	if err := json.Unmarshal(raw, &data); err != nil {
		// Movement is fire-and-forget at 10 Hz; drop bad samples quietly.
		return
	}
	playerID := data.PlayerID
	if playerID == "" {
		session, ok := c.server.conns.PlayerBySocket(c.ID)
		if !ok {
			return
		}
		playerID = session.PlayerID
	}
	intensity := movementIntensity(data.X, data.Y, data.Z, data.DeviceType)
	c.server.engine.HandleMove(playerID, intensity)
}

func (c *Client) handleReady(raw json.RawMessage) {
	var data ReadyData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.replyError("bad-payload", "malformed ready payload")
		return
	}
	playerID := data.PlayerID
	if playerID == "" {
		session, ok := c.server.conns.PlayerBySocket(c.ID)
		if !ok {
			c.replyError("unknown-player", "join before readying up")
			return
		}
		playerID = session.PlayerID
	}

	// In the lobby, ready is a connection-level flag; once a game exists
	// the engine owns ready state.
	if c.server.engine.State() == game.StateWaiting {
		session, ok := c.server.conns.Player(playerID)
		if !ok {
			c.replyError("unknown-player", "unknown player")
			return
		}
		c.server.conns.SetPlayerReady(playerID, !session.IsReady)
		ready, total := c.server.conns.ReadyCount()
		c.server.bus.Emit(events.PlayerReady, game.PlayerReadyPayload{
			PlayerID:     session.PlayerID,
			PlayerName:   session.Name,
			PlayerNumber: session.Number,
			IsReady:      session.IsReady,
		})
		c.server.bus.Emit(events.ReadyUpdate, game.ReadyUpdatePayload{Ready: ready, Total: total})
		c.server.emitLobby()
		return
	}

	if res := c.server.engine.HandleReady(playerID); !res.OK {
		c.replyError(res.Code, res.Message)
	}
}

func (c *Client) handleTeamSwitch(raw json.RawMessage) {
	var data TeamSwitchData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.replyError("bad-payload", "malformed team-switch payload")
		return
	}
	playerID := data.PlayerID
	if playerID == "" {
		session, ok := c.server.conns.PlayerBySocket(c.ID)
		if !ok {
			c.replyError("unknown-player", "join before switching teams")
			return
		}
		playerID = session.PlayerID
	}

	if _, res := c.server.engine.CycleTeam(playerID); !res.OK {
		c.replyError(res.Code, res.Message)
		return
	}
	c.server.emitLobby()
}

func (c *Client) handleBaseJoin(raw json.RawMessage) {
	var data BaseJoinData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.replyError("bad-payload", "malformed base join payload")
		return
	}
	if data.BaseID == "" {
		data.BaseID = uuid.NewString()
	}
	c.isBase = true
	c.server.engine.HandleBaseJoin(data.BaseID, c.ID)
}

func (c *Client) handleBaseTap(raw json.RawMessage) {
	var data BaseTapData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.replyError("bad-payload", "malformed base tap payload")
		return
	}
	if res := c.server.engine.HandleBaseTap(data.BaseID); !res.OK && res.Code == "unknown-base" {
		c.replyError(res.Code, res.Message)
	}
}
