package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamConfigure(t *testing.T) {
	tm := NewTeamManager()

	tm.Configure(1)
	assert.Equal(t, 2, tm.Count(), "clamped up")
	tm.Configure(9)
	assert.Equal(t, 4, tm.Count(), "clamped down")

	tm.AssignSequential([]string{"a", "b", "c", "d"})
	tm.Configure(2)
	_, ok := tm.TeamOf("c")
	assert.False(t, ok, "assignment to a dropped team is cleared")
	team, ok := tm.TeamOf("a")
	require.True(t, ok)
	assert.Equal(t, 0, team)
}

func TestTeamAssignment(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(2)

	t.Run("sequential deals round-robin", func(t *testing.T) {
		tm.AssignSequential([]string{"a", "b", "c"})
		counts := tm.Counts()
		assert.Equal(t, 2, counts[0])
		assert.Equal(t, 1, counts[1])
	})

	t.Run("assign picks the smallest team", func(t *testing.T) {
		team := tm.Assign("d")
		assert.Equal(t, 1, team)
	})

	t.Run("cycle wraps", func(t *testing.T) {
		first, _ := tm.TeamOf("a")
		second := tm.Cycle("a")
		assert.Equal(t, (first+1)%2, second)
		third := tm.Cycle("a")
		assert.Equal(t, first, third)
	})

	t.Run("cycle assigns newcomers", func(t *testing.T) {
		team := tm.Cycle("new-player")
		_, ok := tm.TeamOf("new-player")
		assert.True(t, ok)
		assert.GreaterOrEqual(t, team, 0)
	})

	t.Run("remove and reset", func(t *testing.T) {
		tm.Remove("a")
		_, ok := tm.TeamOf("a")
		assert.False(t, ok)

		tm.Reset()
		assert.Empty(t, tm.Counts()[0]+tm.Counts()[1])
	})
}

func TestTeamShuffleStaysBalanced(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(3)

	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	tm.Shuffle(ids, rand.New(rand.NewSource(42)))

	counts := tm.Counts()
	total := 0
	for team := 0; team < 3; team++ {
		total += counts[team]
		assert.InDelta(t, float64(len(ids))/3, float64(counts[team]), 1.0)
	}
	assert.Equal(t, len(ids), total)
}

func TestTeamNames(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(4)

	teams := tm.Teams()
	require.Len(t, teams, 4)
	assert.Equal(t, "Red", teams[0].Name)
	assert.Equal(t, "Yellow", teams[3].Name)
	assert.Equal(t, "", tm.TeamName(-1))
	assert.Equal(t, "Blue", tm.TeamName(1))
}
