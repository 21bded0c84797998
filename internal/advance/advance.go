// Package advance implements the Advancement Engine (spec.md §4.2): given a
// resolved match, it mutates bracket and match state in place to promote the
// winner, drop the loser, and detect bracket completion (including the
// double-elimination bracket reset).
//
// Advance never touches meta or standings; callers are responsible for
// setting meta.status = complete when Advance reports the bracket finished,
// and for only invoking Advance once per actual change to a match record
// (store mutators report whether a write changed anything) so that a
// duplicate protocol message never double-applies advancement.
package advance

import "github.com/leoherzog/seedless-sub001/internal/models"

// Advance mutates bracket and matches in place for the resolution of
// matchID with the given winnerID. It returns true if this resolution
// completed the overall bracket (single-elim: the match had no next round;
// double-elim: gf1 decided it outright or gf2 concluded; doubles: as per
// its wrapped bracket type). Points-race completion is handled by
// RecordRaceResult, not Advance.
func Advance(bracket *models.Bracket, matches *models.OrderedMap[models.Match], matchID, winnerID string) bool {
	if bracket == nil || matches == nil {
		return false
	}
	match, ok := matches.Get(matchID)
	if !ok {
		return false
	}
	loserID := match.OtherParticipant(winnerID)

	switch bracket.Type {
	case models.TypeSingle:
		return advanceSingle(bracket.Single, matches, match)
	case models.TypeDouble:
		return advanceDouble(bracket.Double, matches, match, winnerID, loserID)
	case models.TypeDoubles:
		if bracket.Doubles == nil {
			return false
		}
		if bracket.Doubles.BracketType == "double" {
			return advanceDouble(bracket.Doubles.Double, matches, match, winnerID, loserID)
		}
		return advanceSingle(bracket.Doubles.Single, matches, match)
	default:
		return false
	}
}

func findRound(rounds []models.Round, number int) (int, bool) {
	for i, r := range rounds {
		if r.Number == number {
			return i, true
		}
	}
	return 0, false
}

func writeSlot(matches *models.OrderedMap[models.Match], matchID string, slot int, participantID string) {
	m, ok := matches.Get(matchID)
	if !ok {
		return
	}
	m.Participants[slot] = participantID
	matches.Set(matchID, m)
}

// advanceSingle advances a single-elimination-style bracket (also used for
// the winners side structurally, but winners-side routing is handled by
// advanceDouble because it must also route the loser and detect the
// winners-bracket-final -> gf1 transition).
func advanceSingle(b *models.SingleBracket, matches *models.OrderedMap[models.Match], match models.Match) bool {
	if b == nil {
		return false
	}
	nextRoundNum := match.Round + 1
	idx, ok := findRound(b.Rounds, nextRoundNum)
	if !ok {
		return true // no next round: this was the final
	}
	nextIndex := match.Position / 2
	slot := match.Position % 2
	if nextIndex >= len(b.Rounds[idx].Matches) {
		return false
	}
	writeSlot(matches, b.Rounds[idx].Matches[nextIndex], slot, match.WinnerID)
	return false
}

func advanceDouble(b *models.DoubleBracket, matches *models.OrderedMap[models.Match], match models.Match, winnerID, loserID string) bool {
	if b == nil {
		return false
	}
	switch match.Bracket {
	case models.BracketWinners:
		return advanceWinnersMatch(b, matches, match, winnerID, loserID)
	case models.BracketLosers:
		return advanceLosersMatch(b, matches, match, winnerID)
	case models.BracketGrandFinals:
		return advanceGrandFinals(b, matches, match, winnerID)
	}
	return false
}

func advanceWinnersMatch(b *models.DoubleBracket, matches *models.OrderedMap[models.Match], match models.Match, winnerID, loserID string) bool {
	nextRoundNum := match.Round + 1
	if idx, ok := findRound(b.Winners.Rounds, nextRoundNum); ok {
		nextIndex := match.Position / 2
		slot := match.Position % 2
		if nextIndex < len(b.Winners.Rounds[idx].Matches) {
			writeSlot(matches, b.Winners.Rounds[idx].Matches[nextIndex], slot, winnerID)
		}
	} else {
		// winners bracket final: winner goes to gf1 slot 0.
		writeSlot(matches, b.GrandFinals.Match, 0, winnerID)
	}

	if b.LosersRounds == 0 {
		// degenerate 2-entrant bracket: there is no losers bracket to drop
		// into, the winners-final loser goes straight to grand finals.
		if !match.IsBye && loserID != "" {
			writeSlot(matches, b.GrandFinals.Match, 1, loserID)
		}
		return false
	}

	if match.DropsTo != nil && !match.IsBye && loserID != "" {
		losersIdx, ok := findRound(b.Losers.Rounds, match.DropsTo.Round)
		if ok && match.DropsTo.Position < len(b.Losers.Rounds[losersIdx].Matches) {
			writeSlot(matches, b.Losers.Rounds[losersIdx].Matches[match.DropsTo.Position], match.DropsTo.Slot, loserID)
		}
	}
	return false
}

func advanceLosersMatch(b *models.DoubleBracket, matches *models.OrderedMap[models.Match], match models.Match, winnerID string) bool {
	if match.Round == b.LosersRounds {
		// losers-bracket final: winner goes to gf1 slot 1.
		writeSlot(matches, b.GrandFinals.Match, 1, winnerID)
		return false
	}
	isMinor := match.Round%2 == 1
	nextRoundNum := match.Round + 1
	idx, ok := findRound(b.Losers.Rounds, nextRoundNum)
	if !ok {
		return false
	}
	if isMinor {
		// minor round winner advances to slot 0 of the next (major) match
		// at the same position.
		if match.Position < len(b.Losers.Rounds[idx].Matches) {
			writeSlot(matches, b.Losers.Rounds[idx].Matches[match.Position], 0, winnerID)
		}
		return false
	}
	// major round winner advances to the next minor match, paired off.
	nextIndex := match.Position / 2
	slot := match.Position % 2
	if nextIndex < len(b.Losers.Rounds[idx].Matches) {
		writeSlot(matches, b.Losers.Rounds[idx].Matches[nextIndex], slot, winnerID)
	}
	return false
}

func advanceGrandFinals(b *models.DoubleBracket, matches *models.OrderedMap[models.Match], match models.Match, winnerID string) bool {
	if match.ID == b.GrandFinals.Match {
		if winnerID == match.Participants[0] {
			b.IsComplete = true
			return true
		}
		// losers-bracket champion won gf1: the bracket resets.
		gf2, ok := matches.Get(b.GrandFinals.Reset)
		if ok {
			gf2.Participants = match.Participants
			gf2.RequiresPlay = true
			matches.Set(b.GrandFinals.Reset, gf2)
		}
		return false
	}
	if match.ID == b.GrandFinals.Reset {
		b.IsComplete = true
		return true
	}
	return false
}
