package store

import (
	"testing"

	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRaceDocument() *Document {
	d := New(nil)
	d.Bracket = &models.Bracket{
		Type: models.TypeMarioKart,
		PointsRace: &models.PointsRaceBracket{
			GameIDs:     []string{"g1"},
			TotalGames:  1,
			PointsTable: []int{3, 2, 1},
		},
	}
	d.Games.Set("g1", models.Game{ID: "g1", GameNumber: 1, Participants: []string{"p1", "p2", "p3"}})
	return d
}

func TestApplyRaceResult_NoBracketReturnsError(t *testing.T) {
	d := New(nil)
	_, err := d.ApplyRaceResult("g1", []string{"p1"}, 100)
	assert.ErrorIs(t, err, ErrNoBracket)
}

func TestApplyRaceResult_UnknownGameReturnsError(t *testing.T) {
	d := newRaceDocument()
	_, err := d.ApplyRaceResult("ghost", []string{"p1"}, 100)
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestApplyRaceResult_CompletesTournamentOnLastGame(t *testing.T) {
	d := newRaceDocument()
	d.Meta.Status = models.StatusActive

	ok, err := d.ApplyRaceResult("g1", []string{"p2", "p1", "p3"}, 1000)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StatusComplete, d.Meta.Status, "this was the tournament's only scheduled game")

	p2, _ := d.Standings.Get("p2")
	assert.Equal(t, 3, p2.Points)
}

func TestApplyRaceResult_OutOfOrderCorrectionIsIgnored(t *testing.T) {
	d := newRaceDocument()
	d.Meta.Status = models.StatusActive

	_, err := d.ApplyRaceResult("g1", []string{"p1", "p2", "p3"}, 2000)
	require.NoError(t, err)
	p1, _ := d.Standings.Get("p1")
	require.Equal(t, 3, p1.Points, "p1 finished 1st in the newer report")

	// An older reportedAt arriving after a newer one (e.g. from a replay or a
	// message that took a slower path across the network) must not overwrite
	// the already-applied newer result — mirrors resolveMatchUpdate's LWW gate.
	_, err = d.ApplyRaceResult("g1", []string{"p3", "p2", "p1"}, 1000)
	require.NoError(t, err)

	p1, _ = d.Standings.Get("p1")
	assert.Equal(t, 3, p1.Points, "the stale correction must not reverse the newer credit")
	p3, _ := d.Standings.Get("p3")
	assert.Equal(t, 1, p3.Points)

	game, _ := d.Games.Get("g1")
	assert.Equal(t, int64(2000), game.ReportedAt)
}
