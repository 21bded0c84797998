package store

import "github.com/leoherzog/seedless-sub001/internal/models"

// Merge applies spec.md §4.3's CRDT join rules, folding remote (a snapshot
// received via st:res or embedded in a late-join exchange) into d. remoteAdminID
// is the sender-resolved persistent user id claimed as remote.Meta.AdminID's
// author; it is supplied by the sync layer, which is responsible for
// resolving peerId -> localUserId before calling Merge (spec.md §4.4
// "Peer identity mapping").
func (d *Document) Merge(remote Snapshot, remoteAdminID string) {
	isRemoteAdmin := remoteAdminID != "" && remoteAdminID == remote.Meta.AdminID

	if isRemoteAdmin || remote.Meta.Version > d.Meta.Version {
		d.Meta = remote.Meta.Clone()
	}

	mergeParticipants(d.Participants, remote.Participants)
	mergeMatches(d.Matches, remote.Matches)
	mergeGames(d.Games, remote.Games)

	// standings: derived state, remote (admin-computed) always wins
	// (spec.md §4.3 "standings: overwrite with remote" — documented hazard,
	// see DESIGN.md Open Questions).
	d.Standings.FromPairs(remote.Standings)

	if isRemoteAdmin {
		d.TeamAssignments.FromPairs(remote.TeamAssignments)
		d.Teams.FromPairs(remote.Teams)
		if remote.Bracket != nil {
			d.Bracket = remote.Bracket
		}
	}

	d.Emit(EventMerge, remote)
	d.Emit(EventChange, ChangePayload{Path: ""})
}

// mergeParticipants implements the OR-Set-with-per-entry-LWW rule: remote
// additions are always adopted; existing entries adopt remote fields only
// when remote.JoinedAt is strictly newer, overlaid onto the local record.
func mergeParticipants(local *models.OrderedMap[models.Participant], remote []models.Pair[models.Participant]) {
	for _, pair := range remote {
		existing, ok := local.Get(pair.Key)
		if !ok {
			local.Set(pair.Key, pair.Value)
			continue
		}
		if pair.Value.JoinedAt > existing.JoinedAt {
			merged := existing
			overlayParticipant(&merged, pair.Value)
			local.Set(pair.Key, merged)
		}
	}
}

// overlayParticipant writes newer's non-identity fields onto base.
func overlayParticipant(base *models.Participant, newer models.Participant) {
	base.PeerID = newer.PeerID
	base.Name = newer.Name
	base.Seed = newer.Seed
	base.TeamID = newer.TeamID
	base.IsConnected = newer.IsConnected
	base.IsManual = newer.IsManual
	base.ClaimedBy = newer.ClaimedBy
	base.JoinedAt = newer.JoinedAt
}

// mergeMatches implements the LWW-with-verification-override rule shared by
// Merge and the single-message application path in mutators.go.
func mergeMatches(local *models.OrderedMap[models.Match], remote []models.Pair[models.Match]) {
	for _, pair := range remote {
		existing, ok := local.Get(pair.Key)
		if !ok {
			local.Set(pair.Key, pair.Value)
			continue
		}
		resolved, changed := resolveMatchUpdate(existing, pair.Value)
		if changed {
			local.Set(pair.Key, resolved)
		}
	}
}

// resolveMatchUpdate decides whether incoming should replace existing under
// spec.md §4.3's match merge rule, and returns the winning value plus
// whether it differs from existing (so callers can gate Advance invocation).
func resolveMatchUpdate(existing, incoming models.Match) (models.Match, bool) {
	existingVerified := existing.VerifiedBy != ""
	incomingVerified := incoming.VerifiedBy != ""

	switch {
	case incomingVerified && !existingVerified:
		return incoming, true
	case existingVerified && !incomingVerified:
		return existing, false
	default:
		if incoming.ReportedAt > existing.ReportedAt {
			return incoming, true
		}
		return existing, false
	}
}

// mergeGames applies the same LWW-by-reportedAt rule matches use, without a
// verification override (points-race games are never admin-verified).
func mergeGames(local *models.OrderedMap[models.Game], remote []models.Pair[models.Game]) {
	for _, pair := range remote {
		existing, ok := local.Get(pair.Key)
		if !ok {
			local.Set(pair.Key, pair.Value)
			continue
		}
		if pair.Value.ReportedAt > existing.ReportedAt {
			local.Set(pair.Key, pair.Value)
		}
	}
}
