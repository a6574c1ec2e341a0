package game

import (
	"fmt"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shakeparty/server/events"
)

func newTestEngine(t *testing.T) (*Engine, *events.Bus) {
	t.Helper()
	bus := events.NewBus(slog.Disabled)
	e := NewEngine(EngineConfig{
		Bus:      bus,
		Log:      slog.Disabled,
		Roles:    NewRoleRegistry(),
		Effects:  NewEffectRegistry(),
		Modes:    NewModeRegistry(),
		Teams:    NewTeamManager(),
		Bases:    NewBaseManager(bus, slog.Disabled),
		TestMode: true,
		Seed:     1,
	})
	return e, bus
}

func testRoster(n int) []PlayerInfo {
	out := make([]PlayerInfo, n)
	for i := range out {
		out[i] = PlayerInfo{
			ID:       fmt.Sprintf("p%d", i+1),
			Name:     fmt.Sprintf("Player %d", i+1),
			Number:   i + 1,
			SocketID: fmt.Sprintf("sock%d", i+1),
		}
	}
	return out
}

func launchGame(t *testing.T, e *Engine, n int, s Settings, opts LaunchOptions) {
	t.Helper()
	opts.SkipPreGame = true // countdown of 0 runs synchronously
	res := e.StartGame(testRoster(n), s, opts)
	require.True(t, res.OK, "launch failed: %s", res.Message)
	require.Equal(t, StateActive, e.State())
}

// shakeOut feeds full-intensity samples until the player is dead.
func shakeOut(t *testing.T, e *Engine, playerID string) {
	t.Helper()
	for i := 0; i < 10; i++ {
		if p := e.PlayerByID(playerID); p == nil || !p.IsAlive {
			return
		}
		e.HandleMove(playerID, 1.0)
	}
	t.Fatalf("player %s survived 10 full-intensity samples", playerID)
}

func tickN(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Tick()
	}
}

func TestStartGameValidation(t *testing.T) {
	e, _ := newTestEngine(t)

	t.Run("too few players", func(t *testing.T) {
		res := e.StartGame(testRoster(1), DefaultSettings(), LaunchOptions{})
		require.False(t, res.OK)
		assert.Equal(t, "not-enough-players", res.Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		s := DefaultSettings()
		s.GameMode = "freeze-tag"
		res := e.StartGame(testRoster(2), s, LaunchOptions{})
		require.False(t, res.OK)
		assert.Equal(t, "unknown-mode", res.Code)
	})

	t.Run("double launch", func(t *testing.T) {
		launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})
		res := e.StartGame(testRoster(2), DefaultSettings(), LaunchOptions{})
		require.False(t, res.OK)
		assert.Equal(t, "invalid-state", res.Code)
	})
}

func TestClassicThreeRoundGame(t *testing.T) {
	e, bus := newTestEngine(t)

	var gameEnd *GameEndPayload
	bus.On(events.GameEnd, func(payload any) {
		p := payload.(GameEndPayload)
		gameEnd = &p
	})

	s := DefaultSettings() // classic, 3 rounds
	launchGame(t, e, 3, s, LaunchOptions{})

	// Round 1: player 1 outlasts everyone.
	shakeOut(t, e, "p2")
	shakeOut(t, e, "p3")
	e.Tick()
	require.Equal(t, StateRoundEnded, e.State())
	assert.Equal(t, 1, e.currentRound)
	assert.Equal(t, 1, e.PlayerByID("p1").TotalPoints)
	assert.Equal(t, 0, e.PlayerByID("p1").Points, "round points must fold into totals")

	// Round 2: player 2 wins.
	require.True(t, e.NextRound().OK)
	require.Equal(t, StateActive, e.State())
	assert.Equal(t, 2, e.currentRound)
	assert.Equal(t, int64(0), e.GameTime(), "game time restarts each round")
	shakeOut(t, e, "p1")
	shakeOut(t, e, "p3")
	e.Tick()
	require.Equal(t, StateRoundEnded, e.State())
	assert.Equal(t, 1, e.PlayerByID("p2").TotalPoints)

	// Round 3: player 1 again; the game ends.
	require.True(t, e.NextRound().OK)
	shakeOut(t, e, "p2")
	shakeOut(t, e, "p3")
	e.Tick()
	require.Equal(t, StateFinished, e.State())

	require.NotNil(t, gameEnd)
	assert.Equal(t, "Player 1", gameEnd.Winner)
	require.Len(t, gameEnd.Scores, 3)
	assert.Equal(t, "p1", gameEnd.Scores[0].PlayerID)
	assert.Equal(t, 2, gameEnd.Scores[0].TotalPoints)
	assert.Equal(t, 1, gameEnd.Scores[1].TotalPoints)
	assert.Equal(t, 0, gameEnd.Scores[2].TotalPoints)
}

func TestDisconnectGrace(t *testing.T) {
	t.Run("reconnect within grace keeps the round going", func(t *testing.T) {
		e, _ := newTestEngine(t)
		launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})

		e.HandlePlayerDisconnect("p2")
		tickN(e, 50) // 5s, inside the 10s window
		require.Equal(t, StateActive, e.State())

		require.True(t, e.HandlePlayerReconnect("p2", "sock2b"))
		p2 := e.PlayerByID("p2")
		assert.False(t, p2.IsDisconnected())
		assert.Equal(t, "sock2b", p2.SocketID)
		assert.True(t, p2.IsAlive, "reconnect must not reset round state")

		tickN(e, 100)
		assert.Equal(t, StateActive, e.State())
	})

	t.Run("grace expiry ends a last-alive round", func(t *testing.T) {
		e, _ := newTestEngine(t)
		launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})

		e.HandlePlayerDisconnect("p2") // at game time 0
		tickN(e, 99)
		require.Equal(t, StateActive, e.State(), "still inside grace at 9.9s")

		e.Tick() // 10.0s: beyond grace, player 2 is effectively out
		require.Equal(t, StateRoundEnded, e.State())
		assert.Equal(t, 1, e.PlayerByID("p1").TotalPoints)
	})
}

func TestPreGameReadyFlow(t *testing.T) {
	e, _ := newTestEngine(t)

	res := e.StartGame(testRoster(3), DefaultSettings(), LaunchOptions{CountdownSeconds: 0})
	require.True(t, res.OK)
	require.Equal(t, StatePreGame, e.State())

	require.True(t, e.HandleReady("p1").OK)
	require.True(t, e.HandleReady("p2").OK)
	require.Equal(t, StatePreGame, e.State(), "two of three ready must not start")

	// Toggling off and on again still needs everyone.
	require.True(t, e.HandleReady("p1").OK)
	require.True(t, e.HandleReady("p1").OK)

	require.True(t, e.HandleReady("p3").OK)
	require.Equal(t, StateActive, e.State())
}

func TestReadyDelayRejection(t *testing.T) {
	e, bus := newTestEngine(t)

	readyEvents := 0
	bus.On(events.PlayerReady, func(any) { readyEvents++ })

	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})
	shakeOut(t, e, "p2")
	e.Tick()
	require.Equal(t, StateRoundEnded, e.State())

	e.mu.Lock()
	e.ready.enabled = false
	e.mu.Unlock()

	res := e.HandleReady("p1")
	require.False(t, res.OK)
	assert.Equal(t, "ready-delay", res.Code)
	assert.False(t, e.PlayerByID("p1").IsReady)
	assert.Zero(t, readyEvents, "rejected ready must not broadcast")

	e.mu.Lock()
	e.ready.enabled = true
	e.mu.Unlock()

	require.True(t, e.HandleReady("p1").OK)
	assert.True(t, e.PlayerByID("p1").IsReady)
	assert.Equal(t, 1, readyEvents)
}

func TestAllReadyAdvancesRound(t *testing.T) {
	e, _ := newTestEngine(t)
	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})

	shakeOut(t, e, "p2")
	e.Tick()
	require.Equal(t, StateRoundEnded, e.State())

	require.True(t, e.HandleReady("p1").OK)
	require.True(t, e.HandleReady("p2").OK)
	require.Equal(t, StateActive, e.State())
	assert.Equal(t, 2, e.currentRound)
}

func TestReadyRejectedDuringActivePlay(t *testing.T) {
	e, _ := newTestEngine(t)
	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})

	res := e.HandleReady("p1")
	require.False(t, res.OK)
	assert.Equal(t, "invalid-state", res.Code)
}

func TestStopGame(t *testing.T) {
	e, bus := newTestEngine(t)

	stopped := false
	bus.On(events.GameStopped, func(any) { stopped = true })

	launchGame(t, e, 3, DefaultSettings(), LaunchOptions{})
	tickN(e, 10)

	e.StopGame()
	require.Equal(t, StateWaiting, e.State())
	assert.True(t, stopped)
	assert.Empty(t, e.Roster())
	assert.Equal(t, int64(0), e.GameTime())

	// A fresh launch works after a stop.
	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})
}

func TestMoveHandling(t *testing.T) {
	e, _ := newTestEngine(t)
	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})

	t.Run("unknown player dropped", func(t *testing.T) {
		e.HandleMove("ghost", 1.0)
	})

	t.Run("intensity clamped to one", func(t *testing.T) {
		e.HandleMove("p1", 5.0)
		assert.InDelta(t, 65.0, e.PlayerByID("p1").AccumulatedDamage, 0.001)
	})

	t.Run("below threshold is free", func(t *testing.T) {
		before := e.PlayerByID("p1").AccumulatedDamage
		e.HandleMove("p1", 0.2)
		assert.Equal(t, before, e.PlayerByID("p1").AccumulatedDamage)
	})

	t.Run("dead player dropped", func(t *testing.T) {
		shakeOut(t, e, "p1")
		p := e.PlayerByID("p1")
		dmg := p.AccumulatedDamage
		deaths := p.DeathCount
		e.HandleMove("p1", 1.0)
		assert.Equal(t, dmg, p.AccumulatedDamage)
		assert.Equal(t, deaths, p.DeathCount)
	})
}

func TestEffectGatingThroughMove(t *testing.T) {
	e, _ := newTestEngine(t)
	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})

	p1 := e.PlayerByID("p1")
	p1.ApplyEffect(EffectInvulnerability, 0, 2000, 0)
	e.HandleMove("p1", 1.0)
	assert.Zero(t, p1.AccumulatedDamage)

	p2 := e.PlayerByID("p2")
	p2.ApplyEffect(EffectStunned, 0, 2000, 0)
	e.HandleMove("p2", 1.0)
	assert.Zero(t, p2.AccumulatedDamage)
}

func TestSpeedShiftWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})

	tickN(e, 449)
	assert.Equal(t, 1.0, e.moveScale)

	e.Tick() // 45s: window opens
	require.Equal(t, 1.5, e.moveScale)

	e.HandleMove("p1", 1.0)
	assert.InDelta(t, 97.5, e.PlayerByID("p1").AccumulatedDamage, 0.001)

	tickN(e, 100) // 55s: window closes
	assert.Equal(t, 1.0, e.moveScale)
}

func TestSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)

	snap := e.Snapshot()
	assert.Equal(t, StateWaiting, snap.State)
	assert.Empty(t, snap.Players)

	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})
	tickN(e, 5)

	snap = e.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, "classic", snap.Mode)
	assert.Equal(t, int64(500), snap.GameTime)
	require.Len(t, snap.Players, 2)
}

func TestTeamCycleOnlyInLobby(t *testing.T) {
	e, _ := newTestEngine(t)
	e.teams.Configure(2)

	team, res := e.CycleTeam("p1")
	require.True(t, res.OK)
	assert.GreaterOrEqual(t, team, 0)

	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})
	_, res = e.CycleTeam("p1")
	require.False(t, res.OK)
	assert.Equal(t, "invalid-state", res.Code)
}

func TestRoundEndScoresCarryRoundPoints(t *testing.T) {
	e, bus := newTestEngine(t)

	var roundEnd *RoundEndPayload
	bus.On(events.RoundEnd, func(payload any) {
		p := payload.(RoundEndPayload)
		roundEnd = &p
	})

	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})
	shakeOut(t, e, "p2")
	e.Tick()

	require.NotNil(t, roundEnd)
	require.NotEmpty(t, roundEnd.Scores)
	top := roundEnd.Scores[0]
	assert.Equal(t, "p1", top.PlayerID)
	assert.Equal(t, 1, top.Points, "the round column shows this round's points")
	assert.Equal(t, 1, top.TotalPoints)

	// The fold itself still happened.
	assert.Equal(t, 0, e.PlayerByID("p1").Points)
	assert.Equal(t, 1, e.PlayerByID("p1").TotalPoints)
}
