package brackets

import (
	"fmt"

	"github.com/leoherzog/seedless-sub001/internal/advance"
	"github.com/leoherzog/seedless-sub001/internal/models"
)

// GenerateDoubleElimination builds winners and losers brackets plus a
// two-match grand finals (gf1 always played, gf2 the bracket reset, only
// played if the losers-bracket champion wins gf1) for the seeded entrants
// (spec.md §4.1 double-elimination).
func GenerateDoubleElimination(seeded []string) (*models.Bracket, *models.OrderedMap[models.Match]) {
	n := len(seeded)
	size := nextPowerOfTwo(n)
	winnersRounds := log2(size)

	wb, matches := skeleton(seeded, "w", models.BracketWinners)

	losersRoundCount := 2 * (winnersRounds - 1)
	lb := buildLosersSkeleton(matches, size, losersRoundCount)

	gf1ID, gf2ID := "gf1", "gf2"
	matches.Set(gf1ID, models.Match{ID: gf1ID, Bracket: models.BracketGrandFinals, Round: 1, Position: 0, RequiresPlay: true})
	matches.Set(gf2ID, models.Match{ID: gf2ID, Bracket: models.BracketGrandFinals, Round: 2, Position: 0, RequiresPlay: false})

	double := &models.DoubleBracket{
		Winners:       wb,
		Losers:        lb,
		GrandFinals:   models.GrandFinals{Match: gf1ID, Reset: gf2ID},
		BracketSize:   size,
		WinnersRounds: winnersRounds,
		LosersRounds:  losersRoundCount,
	}
	bracket := &models.Bracket{Type: models.TypeDouble, Double: double}

	resolveDoubleByes(bracket, double, matches)
	return bracket, matches
}

func buildLosersSkeleton(matches *models.OrderedMap[models.Match], size, losersRoundCount int) models.SingleBracket {
	lb := models.SingleBracket{Rounds: make([]Round, 0, losersRoundCount)}
	for lr := 1; lr <= losersRoundCount; lr++ {
		pair := (lr + 1) / 2
		count := size / (1 << uint(pair+1))
		if count < 1 {
			count = 1
		}
		ids := make([]string, count)
		for p := 0; p < count; p++ {
			id := fmt.Sprintf("l-r%d-p%d", lr, p)
			ids[p] = id
			matches.Set(id, models.Match{ID: id, Bracket: models.BracketLosers, Round: lr, Position: p})
		}
		lb.Rounds = append(lb.Rounds, Round{Number: lr, Name: fmt.Sprintf("Losers Round %d", lr), Matches: ids})
	}
	return lb
}

// resolveDoubleByes wires the DropsTo pointers of every winners round, then
// resolves any winners-round-1 byes the same way single-elimination does:
// advancing immediately so the populated side is waiting in round 2. A bye
// drops no loser, so its losers-bracket slot stays empty; losers-bracket
// matches are not resolved as byes here.
func resolveDoubleByes(bracket *models.Bracket, b *models.DoubleBracket, matches *models.OrderedMap[models.Match]) {
	for _, id := range b.Winners.Rounds[0].Matches {
		m, _ := matches.Get(id)
		m.DropsTo = &models.DropsTo{Round: 1, Position: m.Position / 2, Slot: m.Position % 2}
		matches.Set(id, m)
	}
	for r := 2; r <= b.WinnersRounds; r++ {
		idx, ok := findRoundIdx(b.Losers.Rounds, 2*(r-1))
		if !ok {
			continue
		}
		roundIdx := r - 1
		for _, id := range b.Winners.Rounds[roundIdx].Matches {
			m, _ := matches.Get(id)
			if m.Position < len(b.Losers.Rounds[idx].Matches) {
				m.DropsTo = &models.DropsTo{Round: b.Losers.Rounds[idx].Number, Position: m.Position, Slot: 1}
				matches.Set(id, m)
			}
		}
	}

	for _, id := range b.Winners.Rounds[0].Matches {
		m, _ := matches.Get(id)
		a, bb := m.Participants[0], m.Participants[1]
		if a == "" && bb == "" {
			continue
		}
		if a == "" || bb == "" {
			winner := a
			if winner == "" {
				winner = bb
			}
			m.IsBye = true
			m.WinnerID = winner
			matches.Set(id, m)
			advance.Advance(bracket, matches, id, winner)
		}
	}
}

func findRoundIdx(rounds []models.Round, number int) (int, bool) {
	for i, r := range rounds {
		if r.Number == number {
			return i, true
		}
	}
	return 0, false
}
