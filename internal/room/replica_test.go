package room

import (
	"testing"
	"time"

	"github.com/leoherzog/seedless-sub001/internal/kv"
	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/leoherzog/seedless-sub001/internal/peerchannel"
	"github.com/leoherzog/seedless-sub001/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAdapter gives each simulated browser its own KV backend and local-user-id,
// the way distinct origins/localStorage namespaces would in the real gateway.
func newAdapter() *persistence.Adapter {
	return persistence.NewAdapter(kv.NewMemoryStore(), "", 24*time.Hour, time.Hour, nil, nil)
}

func TestCreateRoomThenJoinRoom_HandshakeConverges(t *testing.T) {
	net := peerchannel.NewMemoryRoom()

	admin, err := CreateRoom(net.Join("peer-admin"), newAdapter(), nil, "room1", "Cup", "Admin", models.TypeSingle)
	require.NoError(t, err)

	player, err := JoinRoom(net.Join("peer-player"), newAdapter(), nil, "room1", "Player")
	require.NoError(t, err)

	assert.True(t, admin.IsAdmin())
	assert.False(t, player.IsAdmin())
	assert.Equal(t, admin.Document().Meta.AdminID, player.Document().Meta.AdminID)
	assert.True(t, player.Document().Participants.Has(admin.LocalUserID()))
	assert.True(t, admin.Document().Participants.Has(player.LocalUserID()), "the admin must learn of the joiner via p:join")
}

func TestJoinRoom_ReclaimsAdminWhenStoredTokenMatchesPersistedSnapshot(t *testing.T) {
	net := peerchannel.NewMemoryRoom()
	adminPersist := newAdapter()

	admin, err := CreateRoom(net.Join("peer-admin"), adminPersist, nil, "room1", "Cup", "Admin", models.TypeSingle)
	require.NoError(t, err)
	adminPersist.Flush("room1") // bypass the debounce window so the snapshot is readable immediately

	// The admin's tab reloads: a fresh Replica is built against the same
	// persistence backend (same localStorage-equivalent), so LocalUserID()
	// and the stored admin token both resolve to the original admin's.
	reconnected, err := JoinRoom(net.Join("peer-admin-2"), adminPersist, nil, "room1", "Admin")
	require.NoError(t, err)

	assert.True(t, reconnected.IsAdmin(), "a matching admin token must reclaim admin rights on rejoin")
	assert.Equal(t, admin.LocalUserID(), reconnected.LocalUserID())
}

func TestJoinRoom_ReconnectPreservesSeedAndJoinedAtFromPersistedSnapshot(t *testing.T) {
	net := peerchannel.NewMemoryRoom()

	_, err := CreateRoom(net.Join("peer-admin"), newAdapter(), nil, "room1", "Cup", "Admin", models.TypeSingle)
	require.NoError(t, err)

	playerPersist := newAdapter()
	player, err := JoinRoom(net.Join("peer-player"), playerPersist, nil, "room1", "Player")
	require.NoError(t, err)

	p, ok := player.Document().Participants.Get(player.LocalUserID())
	require.True(t, ok)
	p.Seed = 3
	p.TeamID = "teamA"
	originalJoinedAt := p.JoinedAt
	player.Document().UpsertParticipant(p) // emits a change, so autosave captures Seed/TeamID
	playerPersist.Flush("room1")

	// the player's browser tab refreshes: a fresh Replica reloads the
	// persisted snapshot, which still has the player's own pre-refresh
	// record (Seed/TeamID/JoinedAt untouched by this local reconnect).
	reconnected, err := JoinRoom(net.Join("peer-player-2"), playerPersist, nil, "room1", "Player Renamed")
	require.NoError(t, err)

	rp, ok := reconnected.Document().Participants.Get(player.LocalUserID())
	require.True(t, ok)
	assert.True(t, rp.IsConnected)
	assert.Equal(t, "Player Renamed", rp.Name, "a supplied display name still updates")
	assert.Equal(t, 3, rp.Seed, "reconnecting must keep the persisted seed")
	assert.Equal(t, originalJoinedAt, rp.JoinedAt, "reconnecting must not bump JoinedAt past peers' copies")
}

func TestReplica_MatchResultAdvancesBracketAndPersistsAcrossReplicas(t *testing.T) {
	net := peerchannel.NewMemoryRoom()

	admin, err := CreateRoom(net.Join("peer-admin"), newAdapter(), nil, "room1", "Cup", "Admin", models.TypeSingle)
	require.NoError(t, err)
	playerPersist := newAdapter()
	player, err := JoinRoom(net.Join("peer-player"), playerPersist, nil, "room1", "Player")
	require.NoError(t, err)

	require.NoError(t, admin.StartTournament(models.Config{SeedingMode: string(models.SeedingManual)}))
	assert.Equal(t, models.StatusActive, player.Document().Meta.Status, "t:start must reach the joiner")

	var matchID string
	admin.Document().Matches.Each(func(id string, m models.Match) {
		if m.HasParticipant(player.LocalUserID()) {
			matchID = id
		}
	})
	require.NotEmpty(t, matchID, "a 2-entrant single-elim bracket must give the joiner a match")

	require.NoError(t, player.ReportMatchResult(matchID, [2]int{2, 1}, player.LocalUserID()))

	m, ok := admin.Document().Matches.Get(matchID)
	require.True(t, ok)
	assert.Equal(t, player.LocalUserID(), m.WinnerID)
	assert.Equal(t, models.StatusComplete, admin.Document().Meta.Status, "a 2-entrant bracket completes in its one match")

	playerPersist.Flush("room1")
	snap, ok := playerPersist.Load("room1")
	require.True(t, ok)
	assert.Equal(t, models.StatusComplete, snap.Meta.Status, "the joiner's own replica must autosave its merged state")
}

func TestReplica_RemoveParticipantIsAdminOnlyAndProtectsAdminSeat(t *testing.T) {
	net := peerchannel.NewMemoryRoom()

	admin, err := CreateRoom(net.Join("peer-admin"), newAdapter(), nil, "room1", "Cup", "Admin", models.TypeSingle)
	require.NoError(t, err)
	player, err := JoinRoom(net.Join("peer-player"), newAdapter(), nil, "room1", "Player")
	require.NoError(t, err)

	assert.ErrorIs(t, player.RemoveParticipant(admin.LocalUserID()), ErrNotAdmin)
	assert.ErrorIs(t, admin.RemoveParticipant(admin.LocalUserID()), ErrUnauthorized)

	require.NoError(t, admin.RemoveParticipant(player.LocalUserID()))
	assert.False(t, admin.Document().Participants.Has(player.LocalUserID()))
}

func TestReplica_AddParticipantCreatesClaimableManualSlot(t *testing.T) {
	net := peerchannel.NewMemoryRoom()

	admin, err := CreateRoom(net.Join("peer-admin"), newAdapter(), nil, "room1", "Cup", "Admin", models.TypeSingle)
	require.NoError(t, err)

	slot, err := admin.AddParticipant("Walk-up Wendy")
	require.NoError(t, err)
	assert.True(t, slot.IsManual)

	player, err := JoinRoom(net.Join("peer-player"), newAdapter(), nil, "room1", "walk-up wendy")
	require.NoError(t, err)

	// the joiner's display name case-insensitively matches the manual slot,
	// so its own p:join is expected to be claimed rather than inserted fresh
	// by the admin's handleParticipantJoin (spec.md §4.4 manual-slot claim).
	claimed, ok := admin.Document().Participants.Get(slot.ID)
	require.True(t, ok)
	assert.Equal(t, player.LocalUserID(), claimed.ClaimedBy)
}
