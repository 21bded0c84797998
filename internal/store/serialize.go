package store

import "github.com/leoherzog/seedless-sub001/internal/models"

// Snapshot is the transport-safe, order-stable form of a Document
// (spec.md §4.3 serialize/deserialize, §6 "Persisted record shape"). Maps
// are carried as ordered [key, value] pair lists so insertion order survives
// JSON round-trips. SavedAt is populated only by the persistence adapter,
// never by Serialize itself.
type Snapshot struct {
	Meta            models.Meta                        `json:"meta"`
	Participants    []models.Pair[models.Participant]   `json:"participants"`
	Matches         []models.Pair[models.Match]         `json:"matches"`
	Games           []models.Pair[models.Game]          `json:"games"`
	Standings       []models.Pair[models.StandingEntry] `json:"standings"`
	TeamAssignments []models.Pair[string]               `json:"teamAssignments"`
	Teams           []models.Pair[models.Team]          `json:"teams"`
	Bracket         *models.Bracket                     `json:"bracket,omitempty"`
	SavedAt         int64                               `json:"savedAt,omitempty"`
}

// Serialize returns an order-stable snapshot of the replicated fields of d.
// Meta is cloned and the pair lists are fresh slices, but Bracket is the
// same pointer d holds, not a copy. Local state (spec.md §3 "Local (not replicated)") is excluded.
func (d *Document) Serialize() Snapshot {
	return Snapshot{
		Meta:            d.Meta.Clone(),
		Participants:    d.Participants.Pairs(),
		Matches:         d.Matches.Pairs(),
		Games:           d.Games.Pairs(),
		Standings:       d.Standings.Pairs(),
		TeamAssignments: d.TeamAssignments.Pairs(),
		Teams:           d.Teams.Pairs(),
		Bracket:         d.Bracket,
	}
}

// Deserialize replaces every replicated field of d with snap's contents and
// emits EventSync followed by the standard change events, per spec.md §4.3.
// Local state is left untouched.
func (d *Document) Deserialize(snap Snapshot) {
	d.Meta = snap.Meta.Clone()
	d.Participants.FromPairs(snap.Participants)
	d.Matches.FromPairs(snap.Matches)
	d.Games.FromPairs(snap.Games)
	d.Standings.FromPairs(snap.Standings)
	d.TeamAssignments.FromPairs(snap.TeamAssignments)
	d.Teams.FromPairs(snap.Teams)
	d.Bracket = snap.Bracket

	d.Emit(EventSync, snap)
	d.Emit(EventChange, ChangePayload{Path: ""})
}
