package game

import "math/rand"

// Team is one of up to four fixed team slots.
type Team struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

var teamDefs = [4]Team{
	{ID: 0, Name: "Red", Color: "#e74c3c"},
	{ID: 1, Name: "Blue", Color: "#3498db"},
	{ID: 2, Name: "Green", Color: "#2ecc71"},
	{ID: 3, Name: "Yellow", Color: "#f1c40f"},
}

// TeamManager owns the player-to-team assignment map. Mutated only under
// the engine lock.
type TeamManager struct {
	count  int
	assign map[string]int
}

// NewTeamManager starts with two teams and no assignments.
func NewTeamManager() *TeamManager {
	return &TeamManager{count: 2, assign: make(map[string]int)}
}

// Configure sets the team count, clamped to 2..4, and drops assignments to
// teams that no longer exist.
func (t *TeamManager) Configure(count int) {
	if count < 2 {
		count = 2
	}
	if count > 4 {
		count = 4
	}
	t.count = count
	for id, team := range t.assign {
		if team >= count {
			delete(t.assign, id)
		}
	}
}

// Count returns the configured team count.
func (t *TeamManager) Count() int { return t.count }

// Teams lists the active team slots.
func (t *TeamManager) Teams() []Team {
	return append([]Team(nil), teamDefs[:t.count]...)
}

// TeamName returns the display name for a team id.
func (t *TeamManager) TeamName(id int) string {
	if id < 0 || id >= len(teamDefs) {
		return ""
	}
	return teamDefs[id].Name
}

// AssignSequential deals players to teams round-robin in the given order.
func (t *TeamManager) AssignSequential(playerIDs []string) {
	for i, id := range playerIDs {
		t.assign[id] = i % t.count
	}
}

// Shuffle randomizes the order, then deals round-robin so sizes stay
// balanced.
func (t *TeamManager) Shuffle(playerIDs []string, rng *rand.Rand) {
	ids := append([]string(nil), playerIDs...)
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	t.AssignSequential(ids)
}

// Assign places one player on an unassigned team, picking the smallest one.
func (t *TeamManager) Assign(playerID string) int {
	counts := t.Counts()
	best := 0
	for id := 1; id < t.count; id++ {
		if counts[id] < counts[best] {
			best = id
		}
	}
	t.assign[playerID] = best
	return best
}

// Cycle moves a player to the next team and returns the new team id.
func (t *TeamManager) Cycle(playerID string) int {
	cur, ok := t.assign[playerID]
	if !ok {
		return t.Assign(playerID)
	}
	next := (cur + 1) % t.count
	t.assign[playerID] = next
	return next
}

// TeamOf returns a player's team.
func (t *TeamManager) TeamOf(playerID string) (int, bool) {
	id, ok := t.assign[playerID]
	return id, ok
}

// Remove drops a player's assignment.
func (t *TeamManager) Remove(playerID string) {
	delete(t.assign, playerID)
}

// Counts returns members per team id.
func (t *TeamManager) Counts() map[int]int {
	out := make(map[int]int, t.count)
	for id := 0; id < t.count; id++ {
		out[id] = 0
	}
	for _, team := range t.assign {
		out[team]++
	}
	return out
}

// Reset clears all assignments.
func (t *TeamManager) Reset() {
	t.assign = make(map[string]int)
}
