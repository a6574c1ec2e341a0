package game

import (
	"github.com/shakeparty/server/events"
)

// dominationMode is the team territorial variant: every control interval,
// each owned and connected base earns its team a point; the first team to
// the point target wins. There is a single unbounded round and no role
// layer. Player disconnection never ends the game here; the score does.
type dominationMode struct {
	baseMode
	scores map[int]int
}

func newDominationMode(s Settings) *dominationMode {
	return &dominationMode{
		baseMode: baseMode{
			key:         "domination",
			name:        "Domination",
			description: "Teams hold bases to score; first to the target wins.",
			settings:    s,
		},
		scores: make(map[int]int),
	}
}

// RoundCount is 0: a single unbounded round decided by the target score.
func (m *dominationMode) RoundCount() int { return 0 }

// GameEvents: none; the capture rhythm is the whole game.
func (m *dominationMode) GameEvents() []ModeGameEvent { return nil }

func (m *dominationMode) controlIntervalMillis() int64 {
	return int64(m.settings.DominationControlInterval) * 1000
}

func (m *dominationMode) pointTarget() int {
	if m.settings.DominationPointTarget > 0 {
		return m.settings.DominationPointTarget
	}
	return m.settings.TargetScore
}

func (m *dominationMode) OnModeSelected(e *Engine) {
	e.teams.Configure(m.settings.TeamCount)
}

func (m *dominationMode) OnRoundStart(e *Engine, gameTime int64) {
	m.scores = make(map[int]int)
	e.bases.ResetOwnership()
}

func (m *dominationMode) OnTick(e *Engine, gameTime, delta int64) {
	for team, pts := range e.bases.Tick(gameTime, m.controlIntervalMillis()) {
		m.scores[team] += pts
	}
}

func (m *dominationMode) CheckWin(e *Engine, gameTime int64) WinCondition {
	target := m.pointTarget()
	// Ties go to the lower team id so the outcome never depends on map
	// iteration order.
	bestTeam, bestScore := -1, -1
	for team, score := range m.scores {
		if score > bestScore || (score == bestScore && team < bestTeam) {
			bestTeam, bestScore = team, score
		}
	}
	if bestScore < target {
		return WinCondition{}
	}
	return WinCondition{
		RoundEnded: true,
		GameEnded:  true,
		WinnerTeam: bestTeam,
		Reason:     "target-score",
	}
}

func (m *dominationMode) OnRoundEnd(e *Engine, cond WinCondition) bool {
	// Members carry their team's score so the shared scoreboard shape
	// works for team games too.
	for _, p := range e.Roster() {
		if team, ok := e.teams.TeamOf(p.ID); ok {
			p.Points += m.scores[team]
		}
	}
	if cond.GameEnded {
		e.bus.Emit(events.DominationWin, map[string]any{
			"teamId":   cond.WinnerTeam,
			"teamName": e.teams.TeamName(cond.WinnerTeam),
			"score":    m.scores[cond.WinnerTeam],
		})
	}
	return cond.GameEnded
}

// TeamScores exposes the live scoreboard for state snapshots.
func (m *dominationMode) TeamScores() map[int]int {
	out := make(map[int]int, len(m.scores))
	for k, v := range m.scores {
		out[k] = v
	}
	return out
}
