package sync

import (
	"strings"
	"testing"

	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/leoherzog/seedless-sub001/internal/store"
	"github.com/stretchr/testify/assert"
)

func newAuthDoc(adminID string) *store.Document {
	d := store.New(nil)
	d.Meta.AdminID = adminID
	return d
}

func TestAuthorizeJoin_RejectsEmptyOrOversizedName(t *testing.T) {
	d := newAuthDoc("admin1")
	peers := NewPeerMap()

	assert.False(t, authorizeJoin(d, ParticipantJoinPayload{Name: "   ", LocalUserID: "u1"}, false, "peer1", peers))
	assert.False(t, authorizeJoin(d, ParticipantJoinPayload{Name: "", LocalUserID: "u1"}, false, "peer1", peers))
	assert.False(t, authorizeJoin(d, ParticipantJoinPayload{Name: strings.Repeat("a", MaxNameLength+1), LocalUserID: "u1"}, false, "peer1", peers))
}

func TestAuthorizeJoin_RejectsClaimingAdminIdentityWithoutBeingAdmin(t *testing.T) {
	d := newAuthDoc("admin1")
	peers := NewPeerMap()

	ok := authorizeJoin(d, ParticipantJoinPayload{Name: "Mallory", LocalUserID: "admin1"}, false, "peer1", peers)
	assert.False(t, ok)
}

func TestAuthorizeJoin_AllowsTheActualAdminToClaimItsOwnIdentity(t *testing.T) {
	d := newAuthDoc("admin1")
	peers := NewPeerMap()

	ok := authorizeJoin(d, ParticipantJoinPayload{Name: "Admin", LocalUserID: "admin1"}, true, "peer1", peers)
	assert.True(t, ok)
}

func TestAuthorizeJoin_RejectsIDCollisionWithADifferentLiveConnectedPeer(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Participants.Set("u1", models.Participant{ID: "u1", Name: "Alice", IsConnected: true})
	peers := NewPeerMap()
	peers.Set("peer-original", "u1")

	ok := authorizeJoin(d, ParticipantJoinPayload{Name: "Alice", LocalUserID: "u1"}, false, "peer-impersonator", peers)
	assert.False(t, ok)
}

func TestAuthorizeJoin_AllowsReconnectFromTheSamePeer(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Participants.Set("u1", models.Participant{ID: "u1", Name: "Alice", IsConnected: true})
	peers := NewPeerMap()
	peers.Set("peer-original", "u1")

	ok := authorizeJoin(d, ParticipantJoinPayload{Name: "Alice", LocalUserID: "u1"}, false, "peer-original", peers)
	assert.True(t, ok)
}

func TestAuthorizeJoin_AllowsStaleDisconnectedRecordToBeReclaimed(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Participants.Set("u1", models.Participant{ID: "u1", Name: "Alice", IsConnected: false})
	peers := NewPeerMap()

	ok := authorizeJoin(d, ParticipantJoinPayload{Name: "Alice", LocalUserID: "u1"}, false, "peer-new", peers)
	assert.True(t, ok)
}

func TestClaimableManualSlot_MatchesCaseInsensitivelyWhenUnclaimed(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Participants.Set("slot1", models.Participant{ID: "slot1", Name: "Player One", IsManual: true})

	id, ok := claimableManualSlot(d, "player one")
	assert.True(t, ok)
	assert.Equal(t, "slot1", id)
}

func TestClaimableManualSlot_SkipsAlreadyClaimedSlots(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Participants.Set("slot1", models.Participant{ID: "slot1", Name: "Player One", IsManual: true, ClaimedBy: "u1"})

	_, ok := claimableManualSlot(d, "Player One")
	assert.False(t, ok)
}

func TestAuthorizeUpdate_SelfOrAdminOnly(t *testing.T) {
	assert.True(t, authorizeUpdate("u1", "u1", false))
	assert.True(t, authorizeUpdate("u2", "u1", true))
	assert.False(t, authorizeUpdate("u2", "u1", false))
}

func TestAuthorizeLeave_SelfLeaveAlwaysAllowedRemovalRequiresAdmin(t *testing.T) {
	assert.True(t, authorizeLeave("", false))
	assert.False(t, authorizeLeave("u2", false))
	assert.True(t, authorizeLeave("u2", true))
}

func TestAuthorizeMatchResult_RejectsWhenStateNotInitialized(t *testing.T) {
	d := newAuthDoc("admin1")
	ok := authorizeMatchResult(d, MatchResultPayload{MatchID: "m1", Scores: [2]int{1, 0}}, "u1", false, false)
	assert.False(t, ok)
}

func TestAuthorizeMatchResult_RejectsNegativeScores(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Matches.Set("m1", models.Match{ID: "m1", Participants: [2]string{"u1", "u2"}})
	ok := authorizeMatchResult(d, MatchResultPayload{MatchID: "m1", Scores: [2]int{-1, 0}}, "u1", false, true)
	assert.False(t, ok)
}

func TestAuthorizeMatchResult_AllowsMatchParticipantNotAdmin(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Matches.Set("m1", models.Match{ID: "m1", Participants: [2]string{"u1", "u2"}})
	ok := authorizeMatchResult(d, MatchResultPayload{MatchID: "m1", Scores: [2]int{1, 0}, WinnerID: "u1"}, "u1", false, true)
	assert.True(t, ok)
}

func TestAuthorizeMatchResult_RejectsNonParticipantNonAdmin(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Matches.Set("m1", models.Match{ID: "m1", Participants: [2]string{"u1", "u2"}})
	ok := authorizeMatchResult(d, MatchResultPayload{MatchID: "m1", Scores: [2]int{1, 0}, WinnerID: "u1"}, "bystander", false, true)
	assert.False(t, ok)
}

func TestAuthorizeMatchResult_AllowsTeammateViaTeamAssignmentInDoublesMode(t *testing.T) {
	d := newAuthDoc("admin1")
	d.Matches.Set("m1", models.Match{ID: "m1", Participants: [2]string{"teamA", "teamB"}})
	d.TeamAssignments.Set("u1", "teamA")

	ok := authorizeMatchResult(d, MatchResultPayload{MatchID: "m1", Scores: [2]int{1, 0}, WinnerID: "teamA"}, "u1", false, true)
	assert.True(t, ok)
}

func TestAuthorizeRaceResult_AllowsGameParticipantOrAdmin(t *testing.T) {
	d := newAuthDoc("admin1")
	game := models.Game{ID: "g1", Participants: []string{"u1", "u2", "u3"}}

	assert.True(t, authorizeRaceResult(d, game, "u2", false, true))
	assert.True(t, authorizeRaceResult(d, game, "anyone", true, true))
	assert.False(t, authorizeRaceResult(d, game, "bystander", false, true))
	assert.False(t, authorizeRaceResult(d, game, "u1", false, false), "state must be initialized")
}
