package advance

import "github.com/leoherzog/seedless-sub001/internal/models"

// RecordRaceResult resolves one points-race game: it assigns finishing
// positions 1..n from the order of orderedParticipantIDs, credits points per
// bracket.PointsTable, updates
// standings, increments gamesComplete, and sets bracket.IsComplete when
// every scheduled game has been reported (spec.md §4.2 points-race).
//
// If the game already carried a result, the incoming reportedAt must be
// strictly newer than the stored one (LWW, mirroring resolveMatchUpdate)
// or the call is a no-op: the previous credit is reversed and the new one
// applied only when the correction is actually newer, so two replicas that
// see the same two r:result broadcasts in either order converge on the
// same standings. Calling it twice with the same reportedAt and results is
// a true no-op.
func RecordRaceResult(
	bracket *models.PointsRaceBracket,
	games *models.OrderedMap[models.Game],
	standings *models.OrderedMap[models.StandingEntry],
	gameID string,
	orderedParticipantIDs []string,
	reportedAt int64,
) bool {
	if bracket == nil || games == nil || standings == nil {
		return false
	}
	game, ok := games.Get(gameID)
	if !ok {
		return bracket.IsComplete
	}

	if len(game.Results) > 0 {
		if reportedAt <= game.ReportedAt {
			return bracket.IsComplete
		}
		applyCredit(bracket, standings, game.Results, -1)
		bracket.GamesComplete--
	}

	results := make([]models.RaceResult, 0, len(orderedParticipantIDs))
	for i, pid := range orderedParticipantIDs {
		results = append(results, models.RaceResult{ParticipantID: pid, Position: i + 1})
	}
	game.Results = results
	game.ReportedAt = reportedAt
	games.Set(gameID, game)

	applyCredit(bracket, standings, results, 1)
	bracket.GamesComplete++

	bracket.IsComplete = bracket.GamesComplete >= bracket.TotalGames
	return bracket.IsComplete
}

// applyCredit adds (sign=+1) or removes (sign=-1) the point-table credit
// for each result onto standings.
func applyCredit(bracket *models.PointsRaceBracket, standings *models.OrderedMap[models.StandingEntry], results []models.RaceResult, sign int) {
	for _, r := range results {
		pts := 0
		if r.Position-1 < len(bracket.PointsTable) && r.Position >= 1 {
			pts = bracket.PointsTable[r.Position-1]
		}
		entry, ok := standings.Get(r.ParticipantID)
		if !ok {
			entry = models.StandingEntry{}
		}
		entry.Points += sign * pts
		entry.GamesCompleted += sign
		if r.Position == 1 {
			entry.Wins += sign
		}
		standings.Set(r.ParticipantID, entry)
	}
}
