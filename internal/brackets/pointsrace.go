package brackets

import (
	"fmt"

	"github.com/leoherzog/seedless-sub001/internal/models"
)

// GeneratePointsRace schedules a Mario-Kart-style points race: totalGames =
// ceil(N*gamesPerPlayer/playersPerGame) games, each seating playersPerGame
// participants drawn by a sliding window over the seed order so that every
// participant's set of opponents varies from game to game (spec.md §4.1
// points-race / GLOSSARY Games-per-player).
func GeneratePointsRace(seeded []string, cfg models.Config) (*models.Bracket, *models.OrderedMap[models.Game]) {
	n := len(seeded)
	k := cfg.PlayersPerGame
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}
	gamesPerPlayer := cfg.GamesPerPlayer
	if gamesPerPlayer < 1 {
		gamesPerPlayer = 1
	}

	totalGames := (n*gamesPerPlayer + k - 1) / k
	if totalGames < 1 {
		totalGames = 1
	}

	games := models.NewOrderedMap[models.Game]()
	ids := make([]string, 0, totalGames)
	for g := 0; g < totalGames; g++ {
		id := fmt.Sprintf("g%d", g+1)
		ids = append(ids, id)
		players := make([]string, k)
		for i := 0; i < k; i++ {
			players[i] = seeded[(g+i)%n]
		}
		games.Set(id, models.Game{ID: id, GameNumber: g + 1, Participants: players})
	}

	pointsTable := resolvePointsTable(cfg.PointsTable, cfg.PointsTableKey == models.PointsTableSequential, k)

	bracket := &models.Bracket{
		Type: models.TypeMarioKart,
		PointsRace: &models.PointsRaceBracket{
			GameIDs:     ids,
			TotalGames:  totalGames,
			PointsTable: pointsTable,
		},
	}
	return bracket, games
}
