package brackets

import (
	"testing"

	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSingleElimination_FourPlayersNoByes(t *testing.T) {
	seeded := []string{"p1", "p2", "p3", "p4"}
	bracket, matches := GenerateSingleElimination(seeded)

	require.Equal(t, models.TypeSingle, bracket.Type)
	require.NotNil(t, bracket.Single)
	require.Len(t, bracket.Single.Rounds, 2)

	r1, ok := matches.Get("m-r1-p0")
	require.True(t, ok)
	assert.Equal(t, [2]string{"p1", "p4"}, r1.Participants)

	r1b, ok := matches.Get("m-r1-p1")
	require.True(t, ok)
	assert.Equal(t, [2]string{"p2", "p3"}, r1b.Participants)

	finals, ok := matches.Get("m-r2-p0")
	require.True(t, ok)
	assert.Equal(t, [2]string{"", ""}, finals.Participants, "finals slots are unpopulated until round 1 resolves")
	assert.False(t, finals.IsBye)
}

func TestGenerateSingleElimination_ByeResolvedImmediately(t *testing.T) {
	// 3 entrants round up to a 4-bracket; seed 1 draws a bye.
	seeded := []string{"p1", "p2", "p3"}
	bracket, matches := GenerateSingleElimination(seeded)

	byeMatch, ok := matches.Get("m-r1-p0")
	require.True(t, ok)
	assert.True(t, byeMatch.IsBye)
	assert.Equal(t, "p1", byeMatch.WinnerID)

	finals, ok := matches.Get("m-r2-p0")
	require.True(t, ok)
	assert.Equal(t, "p1", finals.Participants[0], "bye winner should already occupy the next round")
	assert.False(t, bracket.IsComplete(), "single-elim completion is tracked on meta.status, not bracket.isComplete")
}

func TestGenerateSingleElimination_TwoPlayers(t *testing.T) {
	bracket, matches := GenerateSingleElimination([]string{"a", "b"})
	require.Len(t, bracket.Single.Rounds, 1)
	final, ok := matches.Get("m-r1-p0")
	require.True(t, ok)
	assert.Equal(t, [2]string{"a", "b"}, final.Participants)
}
