package store

import "github.com/leoherzog/seedless-sub001/internal/models"

// bump increments meta.version, the spec.md §4.3 invariant that every
// non-local mutation strictly increases it.
func (d *Document) bump() {
	d.Meta.Version++
}

// SetMetaStatus sets the tournament status and emits a change event
// (spec.md §4.4 "State machine (tournament status)").
func (d *Document) SetMetaStatus(status models.RoomStatus) {
	old := d.Meta.Status
	d.Meta.Status = status
	d.bump()
	d.Emit(EventChange, ChangePayload{Path: "meta.status", Value: status, OldValue: old})
}

// StartTournament records the generated bracket/matches, sets status
// active, and bumps version (spec.md §6 startTournament).
func (d *Document) StartTournament(cfg models.Config, bracket *models.Bracket, matches *models.OrderedMap[models.Match], games *models.OrderedMap[models.Game]) {
	d.Meta.Config = cfg
	d.Bracket = bracket
	d.Matches = matches
	if games != nil {
		d.Games = games
	}
	d.deriveTeams()
	d.Meta.Status = models.StatusActive
	d.bump()
	d.Emit(EventChange, ChangePayload{Path: "meta.status", Value: models.StatusActive})
}

// deriveTeams rebuilds d.Teams from the current bracket's doubles roster and
// teamAssignments (spec.md §3 Team — "derived from teamAssignments... at
// tournament start"). Non-doubles brackets, or a nil bracket, leave it empty.
// Every replica that has converged on the same Bracket and Participants
// derives the same Teams, so this never needs its own wire representation.
func (d *Document) deriveTeams() {
	teams := models.NewOrderedMap[models.Team]()
	if d.Bracket != nil && d.Bracket.Doubles != nil {
		members := make(map[string][]string, len(d.Bracket.Doubles.Teams))
		for _, pair := range d.Participants.Pairs() {
			tid, ok := d.Bracket.Doubles.TeamAssignments[pair.Key]
			if !ok {
				continue
			}
			members[tid] = append(members[tid], pair.Key)
		}
		for _, tid := range d.Bracket.Doubles.Teams {
			teams.Set(tid, models.Team{ID: tid, Name: tid, Members: members[tid]})
		}
	}
	d.Teams = teams
}

// ResetTournament clears bracket/matches/games/standings and returns status
// to lobby (spec.md §6 resetTournament — "participants and adminship
// preserved").
func (d *Document) ResetTournament() {
	d.Bracket = nil
	d.Matches = models.NewOrderedMap[models.Match]()
	d.Games = models.NewOrderedMap[models.Game]()
	d.Standings = models.NewOrderedMap[models.StandingEntry]()
	d.Teams = models.NewOrderedMap[models.Team]()
	d.Meta.Status = models.StatusLobby
	d.bump()
	d.Emit(EventReset, nil)
	d.Emit(EventChange, ChangePayload{Path: "meta.status", Value: models.StatusLobby})
}

// UpsertParticipant inserts a new participant record or, if id is already
// present, overlays the newer fields onto it (mirrors the OR-Set+LWW rule
// used for remote merges, applied here to a single locally-authorized
// p:join/p:upd message). Returns the stored record and whether it changed.
func (d *Document) UpsertParticipant(p models.Participant) (models.Participant, bool) {
	existing, ok := d.Participants.Get(p.ID)
	if !ok {
		d.Participants.Set(p.ID, p)
		d.bump()
		d.Emit(EventParticipantJoin, p)
		d.Emit(EventChange, ChangePayload{Path: "participants." + p.ID, Value: p})
		return p, true
	}
	if p.JoinedAt < existing.JoinedAt {
		return existing, false
	}
	merged := existing
	overlayParticipant(&merged, p)
	d.Participants.Set(p.ID, merged)
	d.bump()
	d.Emit(EventParticipantUpdate, merged)
	d.Emit(EventChange, ChangePayload{Path: "participants." + p.ID, Value: merged, OldValue: existing})
	return merged, true
}

// RemoveParticipant deletes a participant record (spec.md §6
// removeParticipant / p:leave removal). The caller (internal/room, via
// internal/sync's authorization table) is responsible for refusing to
// remove meta.AdminID.
func (d *Document) RemoveParticipant(id string) bool {
	if !d.Participants.Has(id) {
		return false
	}
	p, _ := d.Participants.Get(id)
	d.Participants.Delete(id)
	d.bump()
	d.Emit(EventParticipantLeave, p)
	d.Emit(EventChange, ChangePayload{Path: "participants." + id})
	return true
}

// SetParticipantConnected updates the isConnected flag for a transport-level
// join/leave event without touching joinedAt (spec.md §5 "Cancellation and
// timeouts" — disconnects preserve the record).
func (d *Document) SetParticipantConnected(id string, connected bool) bool {
	p, ok := d.Participants.Get(id)
	if !ok {
		return false
	}
	p.IsConnected = connected
	d.Participants.Set(id, p)
	d.bump()
	d.Emit(EventParticipantUpdate, p)
	d.Emit(EventChange, ChangePayload{Path: "participants." + id + ".isConnected", Value: connected})
	return true
}

// ApplyManualSeeding reassigns Seed 1..N following orderedParticipantIDs,
// the sole seeding entry point the UI uses per spec.md §9.
func (d *Document) ApplyManualSeeding(orderedParticipantIDs []string) {
	for i, id := range orderedParticipantIDs {
		p, ok := d.Participants.Get(id)
		if !ok {
			continue
		}
		p.Seed = i + 1
		d.Participants.Set(id, p)
	}
	d.bump()
	d.Emit(EventChange, ChangePayload{Path: "participants"})
}

// ApplyMatchResult applies a single inbound (or locally authored) match
// result using the same LWW-with-verification-override rule Merge applies
// per-entry, so two replicas that observe the same sequence of accepted
// m:result/m:verify messages converge identically (spec.md §8 scenarios 3-4).
// The returned bool reports whether the stored match actually changed,
// which is what gates whether the caller should invoke the Advancement
// Engine (spec.md: Advance must be a no-op when called twice for the same
// resolution).
func (d *Document) ApplyMatchResult(matchID string, scores [2]int, winnerID, reportedBy string, reportedAt int64, verifiedBy string) (models.Match, bool, error) {
	existing, ok := d.Matches.Get(matchID)
	if !ok {
		return models.Match{}, false, ErrUnknownMatch
	}
	incoming := existing
	incoming.Scores = scores
	incoming.WinnerID = winnerID
	if winnerID != "" {
		incoming.LoserID = incoming.OtherParticipant(winnerID)
	} else {
		incoming.LoserID = ""
	}
	incoming.ReportedBy = reportedBy
	incoming.ReportedAt = reportedAt
	incoming.VerifiedBy = verifiedBy
	incoming.Version = existing.Version + 1

	resolved, changed := resolveMatchUpdate(existing, incoming)
	if !changed {
		return existing, false, nil
	}
	d.Matches.Set(matchID, resolved)
	d.bump()
	d.Emit(EventMatchUpdate, resolved)
	d.Emit(EventChange, ChangePayload{Path: "matches." + matchID, Value: resolved, OldValue: existing})
	return resolved, true, nil
}

// SetStandings overwrites the standings map wholesale (spec.md §4.4 s:upd,
// admin-only, derived-state-overwrite semantics matching Merge's standings
// rule).
func (d *Document) SetStandings(standings *models.OrderedMap[models.StandingEntry]) {
	d.Standings = standings
	d.bump()
	d.Emit(EventChange, ChangePayload{Path: "standings"})
}

// SetTeamAssignments overwrites teamAssignments wholesale (admin-only,
// spec.md §4.3).
func (d *Document) SetTeamAssignments(assignments *models.OrderedMap[string]) {
	d.TeamAssignments = assignments
	d.bump()
	d.Emit(EventChange, ChangePayload{Path: "teamAssignments"})
}

// ApplyAdvancement bumps the version and emits a change event after a
// caller has mutated d.Bracket/d.Matches directly via the Advancement
// Engine (internal/advance operates on the exported fields in place, so it
// has no Document handle of its own to bump through). If completed is
// true, meta.status also transitions to complete (spec.md §4.4 "State
// machine").
func (d *Document) ApplyAdvancement(completed bool) {
	d.bump()
	d.Emit(EventChange, ChangePayload{Path: "matches"})
	if completed && d.Meta.Status != models.StatusComplete {
		d.SetMetaStatus(models.StatusComplete)
	}
}

// ClaimManualSlot attaches claimedBy to a previously unclaimed manual
// participant slot and marks it connected (spec.md §4.4 "manual-slot claim
// permitted when name matches case-insensitively and slot is unclaimed").
func (d *Document) ClaimManualSlot(slotID, claimedBy string) bool {
	p, ok := d.Participants.Get(slotID)
	if !ok {
		return false
	}
	p.ClaimedBy = claimedBy
	p.IsConnected = true
	d.Participants.Set(slotID, p)
	d.bump()
	d.Emit(EventParticipantUpdate, p)
	d.Emit(EventChange, ChangePayload{Path: "participants." + slotID, Value: p})
	return true
}

// UpdateParticipantFields applies a partial p:upd field update (name and/or
// seed) to an existing participant record.
func (d *Document) UpdateParticipantFields(id string, name *string, seed *int) bool {
	p, ok := d.Participants.Get(id)
	if !ok {
		return false
	}
	if name != nil {
		p.Name = *name
	}
	if seed != nil {
		p.Seed = *seed
	}
	d.Participants.Set(id, p)
	d.bump()
	d.Emit(EventParticipantUpdate, p)
	d.Emit(EventChange, ChangePayload{Path: "participants." + id, Value: p})
	return true
}
