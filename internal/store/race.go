package store

import (
	"github.com/leoherzog/seedless-sub001/internal/advance"
	"github.com/leoherzog/seedless-sub001/internal/models"
)

// ApplyRaceResult records a points-race game's finish order via the
// Advancement Engine's race-specific entry point, then bumps the version
// and, if that was the tournament's last scheduled game, transitions
// meta.status to complete. Unlike ApplyMatchResult, the advance call lives
// inside the mutator: points-race has no verification-override path to
// gate on, so there is no separate "changed" decision for a caller to make.
func (d *Document) ApplyRaceResult(gameID string, orderedParticipantIDs []string, reportedAt int64) (bool, error) {
	if d.Bracket == nil || d.Bracket.PointsRace == nil {
		return false, ErrNoBracket
	}
	if !d.Games.Has(gameID) {
		return false, ErrUnknownGame
	}
	completed := advance.RecordRaceResult(d.Bracket.PointsRace, d.Games, d.Standings, gameID, orderedParticipantIDs, reportedAt)
	d.bump()
	d.Emit(EventChange, ChangePayload{Path: "games." + gameID})
	if completed && d.Meta.Status != models.StatusComplete {
		d.SetMetaStatus(models.StatusComplete)
	}
	return true, nil
}
