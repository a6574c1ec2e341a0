package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayer() *Player {
	return NewPlayer("p1", "Player 1", 1, "sock1", NewEffectRegistry())
}

func TestMovementDamage(t *testing.T) {
	t.Run("below threshold", func(t *testing.T) {
		p := newTestPlayer()
		assert.Zero(t, p.MovementDamage(0.35))
		assert.Zero(t, p.MovementDamage(0.1))
	})

	t.Run("baseline formula", func(t *testing.T) {
		p := newTestPlayer()
		assert.InDelta(t, 65.0, p.MovementDamage(1.0), 0.001)
		assert.InDelta(t, 15.0, p.MovementDamage(0.5), 0.001)
	})

	t.Run("toughness divides", func(t *testing.T) {
		p := newTestPlayer()
		p.Toughness = 2.0
		assert.InDelta(t, 32.5, p.MovementDamage(1.0), 0.001)
	})

	t.Run("berserker and toughened multiply", func(t *testing.T) {
		p := newTestPlayer()
		require.True(t, p.ApplyEffect(EffectBerserker, 0, 0, 1.5))
		assert.InDelta(t, 97.5, p.MovementDamage(1.0), 0.001)

		require.True(t, p.ApplyEffect(EffectToughened, 0, 0, 0.6))
		assert.InDelta(t, 58.5, p.MovementDamage(1.0), 0.001)
	})

	t.Run("stunned and invulnerable gate to zero", func(t *testing.T) {
		p := newTestPlayer()
		p.ApplyEffect(EffectStunned, 0, 1000, 0)
		assert.Zero(t, p.MovementDamage(1.0))

		p.ClearEffect(EffectStunned)
		p.ApplyEffect(EffectInvulnerability, 0, 1000, 0)
		assert.Zero(t, p.MovementDamage(1.0))
	})

	t.Run("dead players take nothing", func(t *testing.T) {
		p := newTestPlayer()
		p.Kill()
		assert.Zero(t, p.MovementDamage(1.0))
	})
}

func TestKillAndRespawn(t *testing.T) {
	p := newTestPlayer()

	p.Kill()
	assert.False(t, p.IsAlive)
	assert.Equal(t, 1, p.DeathCount)

	p.Kill() // idempotent
	assert.Equal(t, 1, p.DeathCount)

	p.AccumulatedDamage = 120
	p.Respawn()
	assert.True(t, p.IsAlive)
	assert.Zero(t, p.AccumulatedDamage)
	assert.Equal(t, 1, p.DeathCount, "deaths survive a respawn")
}

func TestHealFloor(t *testing.T) {
	p := newTestPlayer()
	p.AccumulatedDamage = 10
	p.Heal(25)
	assert.Zero(t, p.AccumulatedDamage)
}

func TestEffectLifecycle(t *testing.T) {
	p := newTestPlayer()

	t.Run("unknown kind rejected", func(t *testing.T) {
		assert.False(t, p.ApplyEffect("confused", 0, 1000, 0))
	})

	t.Run("reapply replaces", func(t *testing.T) {
		p.ApplyEffect(EffectInvulnerability, 0, 1000, 0)
		p.ApplyEffect(EffectInvulnerability, 500, 1000, 0)
		e := p.GetEffect(EffectInvulnerability)
		require.NotNil(t, e)
		assert.Equal(t, int64(1000), e.Remaining(500))
	})

	t.Run("expiry drops the effect", func(t *testing.T) {
		p.TickEffects(1500, 100)
		assert.False(t, p.HasEffect(EffectInvulnerability))
	})

	t.Run("indefinite never expires", func(t *testing.T) {
		p.ApplyEffect(EffectToughened, 0, 0, 0.6)
		p.TickEffects(1_000_000, 100)
		require.True(t, p.HasEffect(EffectToughened))
		assert.Equal(t, int64(-1), p.GetEffect(EffectToughened).Remaining(1_000_000))
	})

	t.Run("sorted by priority", func(t *testing.T) {
		p.ClearAllEffects()
		p.ApplyEffect(EffectRegenerating, 0, 0, 2)
		p.ApplyEffect(EffectStunned, 0, 5000, 0)
		p.ApplyEffect(EffectBerserker, 0, 0, 1.5)
		sorted := p.SortedEffects()
		require.Len(t, sorted, 3)
		assert.Equal(t, EffectStunned, sorted[0].Spec.Kind)
		assert.Equal(t, EffectBerserker, sorted[1].Spec.Kind)
		assert.Equal(t, EffectRegenerating, sorted[2].Spec.Kind)
	})
}

func TestRegenerationHealsPerSecond(t *testing.T) {
	p := newTestPlayer()
	p.AccumulatedDamage = 50
	p.ApplyEffect(EffectRegenerating, 0, 0, 2.0)

	var gt int64
	for i := 0; i < 10; i++ { // one second of ticks
		gt += TickMillis
		p.TickEffects(gt, TickMillis)
	}
	assert.InDelta(t, 48.0, p.AccumulatedDamage, 0.001)

	for i := 0; i < 50; i++ { // five more seconds
		gt += TickMillis
		p.TickEffects(gt, TickMillis)
	}
	assert.InDelta(t, 38.0, p.AccumulatedDamage, 0.001)
}

func TestDisconnectLifecycle(t *testing.T) {
	p := newTestPlayer()
	assert.False(t, p.IsDisconnected())
	assert.False(t, p.EffectivelyOut(0))

	p.SetDisconnected(5000)
	assert.True(t, p.IsDisconnected())
	assert.Equal(t, int64(10000), p.GraceRemaining(5000))
	assert.Equal(t, int64(100), p.GraceRemaining(14900))
	assert.False(t, p.EffectivelyOut(14900))
	assert.True(t, p.EffectivelyOut(15000))
	assert.Zero(t, p.GraceRemaining(20000))

	p.SetReconnected("sock1b")
	assert.False(t, p.IsDisconnected())
	assert.Equal(t, "sock1b", p.SocketID)
	assert.False(t, p.EffectivelyOut(99999))
}

func TestPlayerSnapshot(t *testing.T) {
	p := newTestPlayer()
	p.AccumulatedDamage = 42
	p.ApplyEffect(EffectStunned, 0, 3000, 0)
	p.SetDisconnected(1000)

	team := 1
	snap := p.Snapshot(6000, &team)
	assert.Equal(t, "p1", snap.ID)
	assert.InDelta(t, 42.0, snap.Damage, 0.001)
	assert.True(t, snap.IsDisconnected)
	assert.Equal(t, int64(5000), snap.GraceTimeRemaining)
	require.Len(t, snap.StatusEffects, 1)
	assert.Equal(t, "stunned", snap.StatusEffects[0].Kind)
	require.NotNil(t, snap.TeamID)
	assert.Equal(t, 1, *snap.TeamID)
}
