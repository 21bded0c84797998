package brackets

import "github.com/leoherzog/seedless-sub001/internal/models"

// teamOrder derives the team seeding order from participant seed order: a
// team's seed position is the seed position of its first-listed member
// (spec.md §4.1 doubles). Teams with fewer than teamSize members are
// excluded entirely (spec.md §4.1 "teams shorter than teamSize are
// excluded"); teamSize <= 0 disables the check.
func teamOrder(seededParticipantIDs []string, teamAssignments map[string]string, teamSize int) []string {
	counts := make(map[string]int, len(teamAssignments))
	for _, tid := range teamAssignments {
		if tid != "" {
			counts[tid]++
		}
	}

	seen := make(map[string]bool)
	teams := make([]string, 0, len(teamAssignments))
	for _, pid := range seededParticipantIDs {
		tid, ok := teamAssignments[pid]
		if !ok || tid == "" || seen[tid] {
			continue
		}
		if teamSize > 0 && counts[tid] < teamSize {
			continue
		}
		seen[tid] = true
		teams = append(teams, tid)
	}
	return teams
}

// GenerateDoubles builds a bracket of the given inner type ("single" or
// "double") where each entrant is a team id rather than a participant id;
// matches carry team ids in their Participants slots. teamAssignments maps
// participant id -> team id (spec.md §3 teamAssignments). teamSize gates
// out incomplete teams before the inner bracket is generated; pass 0 to
// skip the check.
func GenerateDoubles(seededParticipantIDs []string, teamAssignments map[string]string, innerBracketType string, teamSize int) (*models.Bracket, *models.OrderedMap[models.Match]) {
	teams := teamOrder(seededParticipantIDs, teamAssignments, teamSize)
	teamSet := make(map[string]bool, len(teams))
	for _, tid := range teams {
		teamSet[tid] = true
	}

	assignmentsCopy := make(map[string]string, len(teamAssignments))
	for pid, tid := range teamAssignments {
		if teamSet[tid] {
			assignmentsCopy[pid] = tid
		}
	}

	doubles := &models.DoublesBracket{
		BracketType:     innerBracketType,
		Teams:           teams,
		TeamAssignments: assignmentsCopy,
	}

	var inner *models.Bracket
	var matches *models.OrderedMap[models.Match]
	if innerBracketType == "double" {
		inner, matches = GenerateDoubleElimination(teams)
		doubles.Double = inner.Double
	} else {
		inner, matches = GenerateSingleElimination(teams)
		doubles.Single = inner.Single
	}

	return &models.Bracket{Type: models.TypeDoubles, Doubles: doubles}, matches
}
