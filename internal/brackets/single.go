package brackets

import (
	"fmt"

	"github.com/leoherzog/seedless-sub001/internal/advance"
	"github.com/leoherzog/seedless-sub001/internal/models"
)

// skeleton builds an empty single-elimination tree for n entrants: rounds of
// matches with ids of the form "<prefix>-r<round>-p<position>", 0-based
// positions within a round. Round 1 matches are prefilled with the seeded
// entrants per bracketPositions; a slot with no entrant (size > n) is left
// empty, which designates the match as a bye once its sibling slot is
// populated.
func skeleton(seeded []string, prefix string, bracketKind models.BracketKind) (models.SingleBracket, *models.OrderedMap[models.Match]) {
	n := len(seeded)
	size := nextPowerOfTwo(n)
	rounds := log2(size)
	positions := bracketPositions(size)

	matches := models.NewOrderedMap[models.Match]()
	sb := models.SingleBracket{Rounds: make([]Round, 0, rounds)}

	roundMatchIDs := make([][]string, rounds+1)
	for r := 1; r <= rounds; r++ {
		matchesInRound := size / (1 << r)
		ids := make([]string, matchesInRound)
		for p := 0; p < matchesInRound; p++ {
			id := fmt.Sprintf("%s-r%d-p%d", prefix, r, p)
			ids[p] = id
			m := models.Match{
				ID:       id,
				Bracket:  bracketKind,
				Round:    r,
				Position: p,
			}
			if r == 1 {
				seedA := positions[p*2]
				seedB := positions[p*2+1]
				if seedA < n {
					m.Participants[0] = seeded[seedA]
				}
				if seedB < n {
					m.Participants[1] = seeded[seedB]
				}
			}
			matches.Set(id, m)
		}
		roundMatchIDs[r] = ids
		sb.Rounds = append(sb.Rounds, Round{Number: r, Name: roundName(r, rounds), Matches: ids})
	}
	return sb, matches
}

// Round mirrors models.Round; aliased here for package-local skeleton
// building before conversion to the wire model.
type Round = models.Round

// resolveByes marks any round-1 match missing one participant as a decided
// bye and runs it through Advance immediately, so the populated side is
// already sitting in round 2 once the bracket is handed back (spec.md §4.1).
func resolveByes(bracket *models.Bracket, sb *models.SingleBracket, matches *models.OrderedMap[models.Match]) {
	for _, id := range sb.Rounds[0].Matches {
		m, _ := matches.Get(id)
		a, b := m.Participants[0], m.Participants[1]
		if a == "" && b == "" {
			continue
		}
		if a == "" || b == "" {
			winner := a
			if winner == "" {
				winner = b
			}
			m.IsBye = true
			m.WinnerID = winner
			matches.Set(id, m)
			advance.Advance(bracket, matches, id, winner)
		}
	}
}

// GenerateSingleElimination builds a complete single-elimination bracket for
// the given seeded participant ids (index 0 = seed 1). N must be >= 2.
func GenerateSingleElimination(seeded []string) (*models.Bracket, *models.OrderedMap[models.Match]) {
	sb, matches := skeleton(seeded, "m", models.BracketSingleKind)
	bracket := &models.Bracket{Type: models.TypeSingle, Single: &sb}
	resolveByes(bracket, bracket.Single, matches)
	return bracket, matches
}
