package game

// classicMode is last-alive over a fixed number of rounds. A player counts
// as out when dead or disconnected beyond grace, so an abandoned phone
// cannot stall the round.
type classicMode struct {
	baseMode
}

func newClassicMode(s Settings) *classicMode {
	return &classicMode{baseMode{
		key:         "classic",
		name:        "Classic",
		description: "Last player standing wins the round.",
		settings:    s,
	}}
}

func (m *classicMode) CheckWin(e *Engine, gameTime int64) WinCondition {
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

func (m *classicMode) OnRoundEnd(e *Engine, cond WinCondition) bool {
	if p := e.PlayerByID(cond.WinnerID); p != nil {
		p.Points++
	}
	return false
}
