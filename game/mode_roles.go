package game

import "math/rand"

// rolesMode is last-alive with secret themed roles layered on top. Role
// bonuses (hunter, assassin) accrue into Points as deaths happen; the
// survivor bonus lands at round end.
type rolesMode struct {
	baseMode
	roles *RoleRegistry
	theme string
}

func newRolesMode(s Settings, roles *RoleRegistry) *rolesMode {
	theme := s.Theme
	if _, ok := roles.pools[theme]; !ok {
		theme = "standard"
	}
	return &rolesMode{
		baseMode: baseMode{
			key:         "roles",
			name:        "Roles",
			description: "Last standing, with secret themed roles.",
			settings:    s,
		},
		roles: roles,
		theme: theme,
	}
}

func (m *rolesMode) UsesRoles() bool { return true }

func (m *rolesMode) RolePool(n int, rng *rand.Rand) []RoleKind {
	return m.roles.Draw(m.theme, n, rng)
}

func (m *rolesMode) OnRoundStart(e *Engine, gameTime int64) {
	for _, p := range e.Roster() {
		if p.Role != nil && p.Role.Spec.OnRoundStart != nil {
			p.Role.Spec.OnRoundStart(e, p)
		}
	}
}

func (m *rolesMode) OnPlayerDeath(e *Engine, victim *Player, gameTime int64) {
	for _, p := range e.Roster() {
		if p.Role != nil && p.Role.Spec.OnPlayerDeath != nil {
			p.Role.Spec.OnPlayerDeath(e, p, victim, gameTime)
		}
	}
}

func (m *rolesMode) CheckWin(e *Engine, gameTime int64) WinCondition {
	roster := e.Roster()
	if len(roster) < MinPlayers {
		return WinCondition{}
	}
	in := make([]*Player, 0, len(roster))
	for _, p := range roster {
		if !p.EffectivelyOut(gameTime) {
			in = append(in, p)
		}
	}
	if len(in) > 1 {
		return WinCondition{}
	}
	cond := WinCondition{RoundEnded: true, Reason: "last-alive"}
	if len(in) == 1 {
		cond.WinnerID = in[0].ID
	}
	if e.CurrentRound() >= m.RoundCount() {
		cond.GameEnded = true
	}
	return cond
}

func (m *rolesMode) OnRoundEnd(e *Engine, cond WinCondition) bool {
	if p := e.PlayerByID(cond.WinnerID); p != nil {
		p.Points++
	}
	return false
}
