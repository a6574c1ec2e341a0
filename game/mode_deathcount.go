package game

import "sort"

// Respawned players get a short protection window so they are not killed by
// the shake that killed them.
const respawnProtectionMillis = int64(2000)

// deathCountMode runs timed rounds where players respawn after a delay and
// the scoreboard rewards dying the least. Disconnection does not end the
// round (the clock does); disconnected players simply stop taking damage
// and stop scoring.
type deathCountMode struct {
	baseMode
}

func newDeathCountMode(s Settings) *deathCountMode {
	return &deathCountMode{baseMode{
		key:         "deathcount",
		name:        "Death Count",
		description: "Timed rounds; die as little as possible.",
		settings:    s,
	}}
}

func (m *deathCountMode) RoundDuration() int64 {
	return int64(m.settings.RoundDuration) * 1000
}

func (m *deathCountMode) OnPlayerDeath(e *Engine, victim *Player, gameTime int64) {
	victim.RespawnAt = gameTime + int64(m.settings.DeathCountRespawnTime)*1000
}

func (m *deathCountMode) OnTick(e *Engine, gameTime, delta int64) {
	for _, p := range e.Roster() {
		if !p.IsAlive && p.RespawnAt > 0 && gameTime >= p.RespawnAt {
			p.Respawn()
			p.ApplyEffect(EffectInvulnerability, gameTime, respawnProtectionMillis, 0)
		}
	}
}

func (m *deathCountMode) CheckWin(e *Engine, gameTime int64) WinCondition {
	if gameTime < m.RoundDuration() {
		return WinCondition{}
	}
	cond := WinCondition{RoundEnded: true, Reason: "time"}
	if best := m.ranked(e); len(best) > 0 {
		cond.WinnerID = best[0].ID
	}
	if e.CurrentRound() >= m.RoundCount() {
		cond.GameEnded = true
	}
	return cond
}

// ranked orders the roster by ascending deaths, ties by lower number.
func (m *deathCountMode) ranked(e *Engine) []*Player {
	roster := e.Roster()
	out := make([]*Player, len(roster))
	copy(out, roster)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DeathCount != out[j].DeathCount {
			return out[i].DeathCount < out[j].DeathCount
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// OnRoundEnd scores (#players - rank) per player, with equal death counts
// sharing the higher score.
func (m *deathCountMode) OnRoundEnd(e *Engine, cond WinCondition) bool {
	ranked := m.ranked(e)
	n := len(ranked)
	score := n
	for i, p := range ranked {
		if i > 0 && p.DeathCount > ranked[i-1].DeathCount {
			score = n - i
		}
		p.Points += score - 1
	}
	return false
}
