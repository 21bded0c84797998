package brackets

import (
	"testing"

	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePointsRace_SlidingWindowSchedule(t *testing.T) {
	seeded := []string{"p1", "p2", "p3", "p4"}
	cfg := models.Config{PlayersPerGame: 2, GamesPerPlayer: 2}

	bracket, games := GeneratePointsRace(seeded, cfg)

	require.Equal(t, models.TypeMarioKart, bracket.Type)
	require.NotNil(t, bracket.PointsRace)
	assert.Equal(t, 4, bracket.PointsRace.TotalGames)
	assert.Len(t, bracket.PointsRace.GameIDs, 4)
	assert.Equal(t, []int{2, 1}, bracket.PointsRace.PointsTable)

	g1, ok := games.Get("g1")
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "p2"}, g1.Participants)

	g4, ok := games.Get("g4")
	require.True(t, ok)
	assert.Equal(t, []string{"p4", "p1"}, g4.Participants, "the sliding window wraps around the seed order")
}

func TestGeneratePointsRace_SequentialPointsTableForLargerFields(t *testing.T) {
	seeded := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	cfg := models.Config{PlayersPerGame: 3, GamesPerPlayer: 1, PointsTableKey: models.PointsTableSequential}

	bracket, _ := GeneratePointsRace(seeded, cfg)

	assert.Equal(t, []int{3, 2, 1}, bracket.PointsRace.PointsTable)
}

func TestGeneratePointsRace_ExplicitPointsTableOverridesSequential(t *testing.T) {
	seeded := []string{"p1", "p2", "p3"}
	cfg := models.Config{PlayersPerGame: 3, GamesPerPlayer: 1, PointsTable: []int{10, 5, 1}}

	bracket, _ := GeneratePointsRace(seeded, cfg)

	assert.Equal(t, []int{10, 5, 1}, bracket.PointsRace.PointsTable)
}
