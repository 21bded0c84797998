package brackets

import (
	"testing"

	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDoubles_TeamOrderFollowsFirstMemberSeed(t *testing.T) {
	// p1 and p3 are seeded ahead of their partners; team order should follow
	// whichever member appears first in seed order, not insertion order.
	seeded := []string{"p1", "p2", "p3", "p4"}
	assignments := map[string]string{
		"p1": "teamB",
		"p3": "teamA",
		"p2": "teamB",
		"p4": "teamA",
	}

	bracket, matches := GenerateDoubles(seeded, assignments, "single", 2)

	require.Equal(t, models.TypeDoubles, bracket.Type)
	require.NotNil(t, bracket.Doubles)
	assert.Equal(t, []string{"teamB", "teamA"}, bracket.Doubles.Teams)
	assert.Equal(t, "single", bracket.Doubles.BracketType)
	require.NotNil(t, bracket.Doubles.Single)

	final, ok := matches.Get("m-r1-p0")
	require.True(t, ok)
	assert.Equal(t, [2]string{"teamB", "teamA"}, final.Participants)
}

func TestGenerateDoubles_InnerDoubleEliminationCarriesTeamIDs(t *testing.T) {
	seeded := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	assignments := map[string]string{
		"p1": "t1", "p2": "t1",
		"p3": "t2", "p4": "t2",
		"p5": "t3", "p6": "t3",
	}

	bracket, matches := GenerateDoubles(seeded, assignments, "double", 2)

	require.NotNil(t, bracket.Doubles.Double)
	assert.Equal(t, "double", bracket.Doubles.BracketType)

	w1, ok := matches.Get("w-r1-p0")
	require.True(t, ok)
	for _, pid := range w1.Participants {
		if pid != "" {
			assert.Contains(t, []string{"t1", "t2", "t3"}, pid, "double-elim matches should carry team ids, not participant ids")
		}
	}
}

func TestGenerateDoubles_UnassignedParticipantsExcludedFromTeamOrder(t *testing.T) {
	seeded := []string{"p1", "p2", "p3"}
	assignments := map[string]string{
		"p1": "teamA",
		"p2": "teamA",
	}

	bracket, _ := GenerateDoubles(seeded, assignments, "single", 2)

	assert.Equal(t, []string{"teamA"}, bracket.Doubles.Teams, "p3 has no team assignment and should not appear")
}

func TestGenerateDoubles_UndersizedTeamExcludedFromTeamOrder(t *testing.T) {
	seeded := []string{"p1", "p2", "p3", "p4"}
	assignments := map[string]string{
		"p1": "teamA",
		"p2": "teamA",
		"p3": "teamB", // teamB has only one member and teamSize is 2
	}

	bracket, _ := GenerateDoubles(seeded, assignments, "single", 2)

	assert.Equal(t, []string{"teamA"}, bracket.Doubles.Teams, "teamB has fewer than teamSize members and should be excluded")
	assert.NotContains(t, bracket.Doubles.TeamAssignments, "p3", "p3's team was excluded so its assignment should not carry over")
}
