package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shakeparty/server/events"
)

func TestModeRegistry(t *testing.T) {
	r := NewModeRegistry()

	list := r.List()
	require.Len(t, list, 4)
	assert.Equal(t, "classic", list[0].Key)
	assert.Equal(t, "domination", list[3].Key)

	_, ok := r.Create("classic", DefaultSettings(), NewRoleRegistry())
	assert.True(t, ok)
	_, ok = r.Create("musical-chairs", DefaultSettings(), NewRoleRegistry())
	assert.False(t, ok)
}

func TestClassicDrawRound(t *testing.T) {
	e, _ := newTestEngine(t)
	launchGame(t, e, 2, DefaultSettings(), LaunchOptions{})

	shakeOut(t, e, "p1")
	shakeOut(t, e, "p2")
	e.Tick()

	require.Equal(t, StateRoundEnded, e.State())
	assert.Zero(t, e.PlayerByID("p1").TotalPoints)
	assert.Zero(t, e.PlayerByID("p2").TotalPoints, "a draw awards nobody")
}

func TestDeathCountMode(t *testing.T) {
	e, bus := newTestEngine(t)

	var gameEnd *GameEndPayload
	bus.On(events.GameEnd, func(payload any) {
		p := payload.(GameEndPayload)
		gameEnd = &p
	})

	s := DefaultSettings()
	s.GameMode = "deathcount"
	s.RoundCount = 1
	s.RoundDuration = 2 // seconds; short round for the clock test
	s.DeathCountRespawnTime = 1
	launchGame(t, e, 3, s, LaunchOptions{})

	shakeOut(t, e, "p3")
	p3 := e.PlayerByID("p3")
	require.False(t, p3.IsAlive)

	tickN(e, 10) // 1s: respawn delay elapsed
	require.True(t, p3.IsAlive, "deathcount respawns the fallen")
	assert.True(t, p3.HasEffect(EffectInvulnerability), "respawn protection")

	e.HandleMove("p3", 1.0)
	assert.Zero(t, p3.AccumulatedDamage, "protected right after respawn")

	tickN(e, 10) // 2s: round clock expires
	require.Equal(t, StateFinished, e.State())

	// Fewest deaths wins; ties share the higher score, rank by number.
	require.NotNil(t, gameEnd)
	assert.Equal(t, "Player 1", gameEnd.Winner)
	assert.Equal(t, 2, e.PlayerByID("p1").TotalPoints)
	assert.Equal(t, 2, e.PlayerByID("p2").TotalPoints)
	assert.Zero(t, e.PlayerByID("p3").TotalPoints)
}

func TestDominationMode(t *testing.T) {
	dominationSettings := func() Settings {
		s := DefaultSettings()
		s.GameMode = "domination"
		s.TeamCount = 2
		s.DominationPointTarget = 3
		s.DominationControlInterval = 1
		return s
	}

	t.Run("held base scores to the target", func(t *testing.T) {
		e, bus := newTestEngine(t)

		var gameEnd *GameEndPayload
		bus.On(events.GameEnd, func(payload any) {
			p := payload.(GameEndPayload)
			gameEnd = &p
		})

		launchGame(t, e, 2, dominationSettings(), LaunchOptions{})

		team1, ok := e.teams.TeamOf("p1")
		require.True(t, ok)
		assert.Equal(t, 0, team1)
		team2, ok := e.teams.TeamOf("p2")
		require.True(t, ok)
		assert.Equal(t, 1, team2)

		base := e.HandleBaseJoin("base-1", "bsock1")
		require.NotNil(t, base)
		assert.Equal(t, 1, base.BaseNumber)
		assert.Equal(t, -1, base.OwnerTeamID)

		require.True(t, e.HandleBaseTap("base-1").OK)
		assert.Equal(t, 0, base.OwnerTeamID, "first tap claims for red")

		tickN(e, 29)
		require.Equal(t, StateActive, e.State())

		e.Tick() // third control interval completes
		require.Equal(t, StateFinished, e.State())

		require.NotNil(t, gameEnd)
		assert.Equal(t, 0, gameEnd.WinnerTeam)
		assert.Equal(t, "Red", gameEnd.Winner)
		assert.Equal(t, 3, e.PlayerByID("p1").TotalPoints, "members carry the team score")
		assert.Zero(t, e.PlayerByID("p2").TotalPoints)
	})

	t.Run("disconnected base accrues nothing", func(t *testing.T) {
		e, _ := newTestEngine(t)
		launchGame(t, e, 2, dominationSettings(), LaunchOptions{})

		e.HandleBaseJoin("base-1", "bsock1")
		require.True(t, e.HandleBaseTap("base-1").OK)
		e.HandleBaseDisconnect("bsock1")

		tickN(e, 30)
		require.Equal(t, StateActive, e.State())
		dom := e.mode.(*dominationMode)
		assert.Zero(t, dom.TeamScores()[0])
	})

	t.Run("tap rejected outside active play", func(t *testing.T) {
		e, _ := newTestEngine(t)
		e.HandleBaseJoin("base-1", "bsock1")
		res := e.HandleBaseTap("base-1")
		require.False(t, res.OK)
		assert.Equal(t, "invalid-state", res.Code)
	})
}

func TestDominationTieGoesToLowerTeam(t *testing.T) {
	e, _ := newTestEngine(t)
	s := DefaultSettings()
	s.GameMode = "domination"
	s.TeamCount = 2
	s.DominationPointTarget = 3
	launchGame(t, e, 2, s, LaunchOptions{})

	dom := e.mode.(*dominationMode)
	dom.scores = map[int]int{1: 3, 0: 3}

	cond := dom.CheckWin(e, 0)
	require.True(t, cond.GameEnded)
	assert.Equal(t, 0, cond.WinnerTeam)
}
