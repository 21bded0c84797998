package sync

import (
	"strings"

	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/leoherzog/seedless-sub001/internal/store"
)

// isAdmin reports whether userID is the document's current admin.
func isAdmin(doc *store.Document, userID string) bool {
	return userID != "" && userID == doc.Meta.AdminID
}

func validName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len(name) <= MaxNameLength
}

func validMatchID(id string) bool {
	return id != "" && len(id) <= MaxMatchIDLength
}

func validScores(scores [2]int) bool {
	return scores[0] >= 0 && scores[1] >= 0
}

// authorizeJoin implements the p:join row of spec.md §4.4's authorization
// table: a valid, non-empty trimmed name; the claimed localUserId must not
// collide with meta.adminId unless the sender actually is the admin; and no
// conflicting live connected claim on the same id from a different peer
// (stale connections from a previous tab don't block a reconnect).
func authorizeJoin(doc *store.Document, payload ParticipantJoinPayload, senderIsAdmin bool, senderPeerID string, peers *PeerMap) bool {
	if !validName(payload.Name) || payload.LocalUserID == "" {
		return false
	}
	if payload.LocalUserID == doc.Meta.AdminID && !senderIsAdmin {
		return false
	}
	existing, ok := doc.Participants.Get(payload.LocalUserID)
	if ok && existing.IsConnected {
		if holderPeer, hasPeer := peers.PeerID(payload.LocalUserID); hasPeer && holderPeer != senderPeerID {
			return false
		}
	}
	return true
}

// claimableManualSlot returns the id of an unclaimed manual participant
// slot whose name matches name case-insensitively, if one exists (spec.md
// §4.4 "manual-slot claim permitted when name matches case-insensitively
// and slot is unclaimed"). The protocol layer uses this to rewrite the
// manual slot in place rather than inserting a second participant.
func claimableManualSlot(doc *store.Document, name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	var found string
	doc.Participants.Each(func(key string, p models.Participant) {
		if found != "" {
			return
		}
		if p.IsManual && p.ClaimedBy == "" && strings.EqualFold(p.Name, trimmed) {
			found = key
		}
	})
	return found, found != ""
}

// authorizeUpdate implements p:upd: the sender must be the target user, or
// admin. targetID defaults to senderUserID when the payload omits id.
func authorizeUpdate(targetID, senderUserID string, senderIsAdmin bool) bool {
	return targetID == senderUserID || senderIsAdmin
}

// authorizeLeave implements p:leave: self-leave always passes; a removal
// (removedID set) requires admin.
func authorizeLeave(removedID string, senderIsAdmin bool) bool {
	if removedID == "" {
		return true
	}
	return senderIsAdmin
}

// authorizeAdminOnly implements the shared rule for t:start, t:reset,
// m:verify, s:upd.
func authorizeAdminOnly(senderIsAdmin bool) bool {
	return senderIsAdmin
}

// authorizeMatchResult implements m:result: matchId known, scores
// non-negative, winnerId occupies a match slot, sender is a participant of
// the match (directly, or via team membership in doubles mode) or admin,
// and state must already be initialized.
func authorizeMatchResult(doc *store.Document, payload MatchResultPayload, senderUserID string, senderIsAdmin, stateInitialized bool) bool {
	if !stateInitialized {
		return false
	}
	if !validMatchID(payload.MatchID) || !validScores(payload.Scores) {
		return false
	}
	match, ok := doc.Matches.Get(payload.MatchID)
	if !ok {
		return false
	}
	if payload.WinnerID != "" && !match.HasParticipant(payload.WinnerID) {
		return false
	}
	if senderIsAdmin {
		return true
	}
	return isMatchParticipant(doc, match, senderUserID)
}

func isMatchParticipant(doc *store.Document, match models.Match, userID string) bool {
	if match.HasParticipant(userID) {
		return true
	}
	if teamID, ok := doc.TeamAssignments.Get(userID); ok {
		return match.HasParticipant(teamID)
	}
	return false
}

// authorizeRaceResult implements r:result: sender is a participant of the
// game, or admin.
func authorizeRaceResult(doc *store.Document, game models.Game, senderUserID string, senderIsAdmin, stateInitialized bool) bool {
	if !stateInitialized {
		return false
	}
	if senderIsAdmin {
		return true
	}
	for _, p := range game.Participants {
		if p == senderUserID {
			return true
		}
	}
	return false
}
