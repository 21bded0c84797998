package room

import (
	"encoding/json"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/leoherzog/seedless-sub001/internal/advance"
	"github.com/leoherzog/seedless-sub001/internal/brackets"
	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/leoherzog/seedless-sub001/internal/peerchannel"
	"github.com/leoherzog/seedless-sub001/internal/persistence"
	"github.com/leoherzog/seedless-sub001/internal/store"
	"github.com/leoherzog/seedless-sub001/internal/sync"
	"github.com/leoherzog/seedless-sub001/internal/utils"
)

// Replica is one room's live control surface over a store.Document,
// wiring it to the sync Protocol and the persistence Adapter.
type Replica struct {
	doc      *store.Document
	protocol *sync.Protocol
	persist  *persistence.Adapter
	channel  peerchannel.Channel
	logger   *log.Logger
	roomID   string
}

// Document exposes the underlying replicated state for read access and
// event subscription by the embedding gateway.
func (r *Replica) Document() *store.Document { return r.doc }

// RoomID returns the room's slug.
func (r *Replica) RoomID() string { return r.roomID }

// IsAdmin reports whether this replica currently holds admin rights.
func (r *Replica) IsAdmin() bool { return r.doc.Local.IsAdmin }

// LocalUserID returns this replica's persistent user id.
func (r *Replica) LocalUserID() string { return r.doc.Local.LocalUserID }

// Snapshot returns the document's current serialized form.
func (r *Replica) Snapshot() store.Snapshot { return r.doc.Serialize() }

func wireAutosave(r *Replica) {
	r.doc.Subscribe(store.EventChange, func(interface{}) {
		r.persist.Save(r.roomID, r.doc.Serialize())
	})
}

// CreateRoom mints a new room: the caller becomes admin, an admin token is
// generated and persisted, and the replica's own participant record is
// inserted (spec.md §6 createRoom).
func CreateRoom(channel peerchannel.Channel, persist *persistence.Adapter, logger *log.Logger, roomID, roomName, displayName string, tournamentType models.TournamentType) (*Replica, error) {
	if logger == nil {
		logger = log.Default()
	}
	localUserID := persist.LocalUserID()
	now := time.Now().UnixMilli()

	doc := store.New(logger)
	doc.Meta = models.Meta{
		Version:   1,
		ID:        roomID,
		Name:      roomName,
		Type:      tournamentType,
		Status:    models.StatusLobby,
		AdminID:   localUserID,
		CreatedAt: now,
	}
	doc.Local = store.Local{LocalUserID: localUserID, IsAdmin: true}
	doc.Participants.Set(localUserID, models.Participant{
		ID: localUserID, Name: strings.TrimSpace(displayName), IsConnected: true, JoinedAt: now,
	})

	adminToken := utils.GenerateSecureToken()
	doc.Meta.AdminToken = adminToken
	if err := persist.SaveAdminToken(roomID, localUserID, adminToken); err != nil {
		logger.Printf("room: save admin token failed room=%s: %v", roomID, err)
	}

	protocol := sync.New(doc, channel, logger)
	protocol.MarkInitialized() // the creator's state is authoritative from the start

	r := &Replica{doc: doc, protocol: protocol, persist: persist, channel: channel, logger: logger, roomID: roomID}
	wireAutosave(r)
	persist.Save(roomID, doc.Serialize())
	return r, nil
}

// JoinRoom joins an existing room. If this endpoint previously persisted a
// snapshot for roomID (this gateway process, or another sharing the same
// KVStore backend, saved one), it is loaded as a head start before the P2P
// merge exchange completes; if the locally stored admin token matches the
// snapshot's meta.adminToken, admin rights are reclaimed immediately
// (spec.md §4.5 rejoin-reclaim). Either way, Bootstrap() then runs the
// full late-joiner handshake against whichever peers are already present.
func JoinRoom(channel peerchannel.Channel, persist *persistence.Adapter, logger *log.Logger, roomID, displayName string) (*Replica, error) {
	if logger == nil {
		logger = log.Default()
	}
	localUserID := persist.LocalUserID()
	now := time.Now().UnixMilli()

	doc := store.New(logger)
	doc.Meta.ID = roomID
	doc.Local = store.Local{LocalUserID: localUserID}

	if snap, ok := persist.Load(roomID); ok {
		doc.Deserialize(snap)
		doc.Local = store.Local{LocalUserID: localUserID}
		if token, ok2 := persist.LoadAdminToken(roomID); ok2 && token != "" && token == snap.Meta.AdminToken {
			doc.Local.IsAdmin = true
		}
	}

	// Reconnecting under an id the persisted snapshot already knows about
	// must only flip connection state, not discard the roster entry's
	// Seed/TeamID/ClaimedBy/IsManual history by replacing it wholesale —
	// doing so would also bump JoinedAt past every peer's copy and make
	// the loss permanent under LWW (mergeParticipants only overlays a
	// remote record when its JoinedAt is strictly newer).
	existing, hadExisting := doc.Participants.Get(localUserID)
	if !hadExisting {
		existing = models.Participant{ID: localUserID, JoinedAt: now}
	}
	existing.IsConnected = true
	if name := strings.TrimSpace(displayName); name != "" {
		existing.Name = name
	}
	doc.Participants.Set(localUserID, existing)

	protocol := sync.New(doc, channel, logger)
	if doc.Local.IsAdmin {
		protocol.MarkInitialized()
	}

	r := &Replica{doc: doc, protocol: protocol, persist: persist, channel: channel, logger: logger, roomID: roomID}
	wireAutosave(r)
	protocol.Bootstrap()
	return r, nil
}

// StartHeartbeat begins the admin's periodic v:check broadcast. No-op for
// non-admin replicas.
func (r *Replica) StartHeartbeat(interval time.Duration) { r.protocol.StartHeartbeat(interval) }

// StopHeartbeat halts a previously started heartbeat.
func (r *Replica) StopHeartbeat() { r.protocol.StopHeartbeat() }

// Leave broadcasts a best-effort p:leave then leaves the transport
// (spec.md §6 leave()).
func (r *Replica) Leave() error {
	broadcastErr := r.protocol.BroadcastLeave(sync.ParticipantLeavePayload{})
	r.protocol.StopHeartbeat()
	r.persist.Flush(r.roomID)
	if leaveErr := r.channel.Leave(); leaveErr != nil {
		return leaveErr
	}
	return broadcastErr
}

// AddParticipant creates a manual (walk-up) participant slot, claimable
// later by a real joiner whose display name matches case-insensitively
// (spec.md §6 addParticipant, §4.4 manual-slot claim).
func (r *Replica) AddParticipant(name string) (models.Participant, error) {
	if !r.doc.Local.IsAdmin {
		return models.Participant{}, ErrNotAdmin
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > sync.MaxNameLength {
		return models.Participant{}, ErrInvalidConfig
	}
	id := "manual-" + utils.GenerateSecureToken()[:12]
	stored, _ := r.doc.UpsertParticipant(models.Participant{
		ID: id, Name: trimmed, IsManual: true, JoinedAt: time.Now().UnixMilli(),
	})
	if err := r.protocol.BroadcastJoin(sync.ParticipantJoinPayload{
		Name: trimmed, LocalUserID: id, JoinedAt: stored.JoinedAt, IsManual: true,
	}); err != nil {
		r.logger.Printf("room: broadcast manual p:join failed: %v", err)
	}
	return stored, nil
}

// RemoveParticipant deletes a participant and broadcasts the removal
// (spec.md §6 removeParticipant). The admin's own record cannot be removed
// this way (spec.md §8 invariant).
func (r *Replica) RemoveParticipant(id string) error {
	if !r.doc.Local.IsAdmin {
		return ErrNotAdmin
	}
	if id == r.doc.Meta.AdminID {
		return ErrUnauthorized
	}
	if !r.doc.RemoveParticipant(id) {
		return store.ErrUnknownParticipant
	}
	return r.protocol.BroadcastLeave(sync.ParticipantLeavePayload{RemovedID: id})
}

// ApplyManualSeeding reassigns seed numbers 1..N following
// orderedParticipantIDs and broadcasts each change as a p:upd (spec.md §9
// "the UI's sole seeding entry point").
func (r *Replica) ApplyManualSeeding(orderedParticipantIDs []string) error {
	if !r.doc.Local.IsAdmin {
		return ErrNotAdmin
	}
	r.doc.ApplyManualSeeding(orderedParticipantIDs)
	for i, id := range orderedParticipantIDs {
		seed := i + 1
		if err := r.protocol.BroadcastUpdate(sync.ParticipantUpdatePayload{TargetID: id, Seed: &seed}); err != nil {
			r.logger.Printf("room: broadcast seed p:upd failed id=%s: %v", id, err)
		}
	}
	return nil
}

// AssignTeam records which team a participant belongs to ahead of a
// doubles startTournament call. teamAssignments is admin-authoritative and
// propagates to other replicas the same way bracket does: via Merge on the
// next state exchange, rather than its own broadcast code (spec.md §4.4's
// message table has no dedicated team-assignment action).
func (r *Replica) AssignTeam(participantID, teamID string) error {
	if !r.doc.Local.IsAdmin {
		return ErrNotAdmin
	}
	if !r.doc.Participants.Has(participantID) {
		return store.ErrUnknownParticipant
	}
	assignments := r.doc.TeamAssignments.Clone()
	assignments.Set(participantID, teamID)
	r.doc.SetTeamAssignments(assignments)
	return nil
}

// StartTournament generates a bracket for the current roster and config,
// applies it locally, and broadcasts t:start (spec.md §6 startTournament).
func (r *Replica) StartTournament(cfg models.Config) error {
	if !r.doc.Local.IsAdmin {
		return ErrNotAdmin
	}
	if r.doc.Meta.Status == models.StatusActive {
		return ErrAlreadyStarted
	}
	if r.doc.Participants.Len() < 2 {
		return ErrInsufficientParticipants
	}

	seeded := r.orderedSeeds(cfg)

	var bracket *models.Bracket
	matches := models.NewOrderedMap[models.Match]()
	games := models.NewOrderedMap[models.Game]()

	switch r.doc.Meta.Type {
	case models.TypeSingle:
		bracket, matches = brackets.GenerateSingleElimination(seeded)
	case models.TypeDouble:
		bracket, matches = brackets.GenerateDoubleElimination(seeded)
	case models.TypeMarioKart:
		if cfg.PlayersPerGame <= 0 || cfg.GamesPerPlayer <= 0 {
			return ErrInvalidConfig
		}
		bracket, games = brackets.GeneratePointsRace(seeded, cfg)
	case models.TypeDoubles:
		if cfg.TeamSize <= 0 {
			return ErrInvalidConfig
		}
		assignments := flattenTeamAssignments(r.doc.TeamAssignments)
		if len(assignments) == 0 {
			return ErrInsufficientParticipants
		}
		teamCounts := make(map[string]int, len(assignments))
		for _, tid := range assignments {
			teamCounts[tid]++
		}
		completeTeams := 0
		for _, n := range teamCounts {
			if n >= cfg.TeamSize {
				completeTeams++
			}
		}
		if completeTeams < 2 {
			return ErrInsufficientParticipants
		}
		bracket, matches = brackets.GenerateDoubles(seeded, assignments, cfg.BracketType, cfg.TeamSize)
	default:
		return ErrInvalidConfig
	}

	r.doc.StartTournament(cfg, bracket, matches, games)

	bracketJSON, err := json.Marshal(bracket)
	if err != nil {
		return err
	}
	matchesJSON, err := json.Marshal(matches.Pairs())
	if err != nil {
		return err
	}
	gamesJSON, err := json.Marshal(games.Pairs())
	if err != nil {
		return err
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return r.protocol.BroadcastStart(sync.TournamentStartPayload{
		Bracket: bracketJSON, Matches: matchesJSON, Games: gamesJSON, Config: cfgJSON,
	})
}

// ResetTournament clears the bracket/matches/games/standings and returns
// to lobby (spec.md §6 resetTournament).
func (r *Replica) ResetTournament() error {
	if !r.doc.Local.IsAdmin {
		return ErrNotAdmin
	}
	r.doc.ResetTournament()
	return r.protocol.BroadcastReset()
}

// ReportMatchResult applies a match result locally, runs the Advancement
// Engine, and broadcasts m:result (spec.md §6 reportMatchResult).
func (r *Replica) ReportMatchResult(matchID string, scores [2]int, winnerID string) error {
	if r.doc.Meta.Status != models.StatusActive {
		return ErrBracketNotStarted
	}
	match, ok := r.doc.Matches.Get(matchID)
	if !ok {
		return store.ErrUnknownMatch
	}
	if winnerID != "" && !match.HasParticipant(winnerID) {
		return ErrInvalidConfig
	}
	if !r.doc.Local.IsAdmin && !r.isMatchParticipant(match) {
		return ErrUnauthorized
	}

	reportedAt := time.Now().UnixMilli()
	updated, changed, err := r.doc.ApplyMatchResult(matchID, scores, winnerID, r.doc.Local.LocalUserID, reportedAt, "")
	if err != nil {
		return err
	}
	if changed && r.doc.Bracket != nil {
		completed := advance.Advance(r.doc.Bracket, r.doc.Matches, updated.ID, updated.WinnerID)
		r.doc.ApplyAdvancement(completed)
	}
	return r.protocol.BroadcastMatchResult(sync.MatchResultPayload{
		MatchID: matchID, Scores: scores, WinnerID: winnerID, ReportedAt: reportedAt, Version: updated.Version,
	})
}

// VerifyMatchResult sets verifiedBy on a match's current result and
// broadcasts m:verify (spec.md §6 verifyMatchResult, admin only).
func (r *Replica) VerifyMatchResult(matchID string) error {
	if !r.doc.Local.IsAdmin {
		return ErrNotAdmin
	}
	existing, ok := r.doc.Matches.Get(matchID)
	if !ok {
		return store.ErrUnknownMatch
	}
	updated, changed, err := r.doc.ApplyMatchResult(matchID, existing.Scores, existing.WinnerID, existing.ReportedBy, existing.ReportedAt, r.doc.Local.LocalUserID)
	if err != nil {
		return err
	}
	if changed && r.doc.Bracket != nil {
		completed := advance.Advance(r.doc.Bracket, r.doc.Matches, updated.ID, updated.WinnerID)
		r.doc.ApplyAdvancement(completed)
	}
	return r.protocol.BroadcastVerify(sync.MatchVerifyPayload{
		MatchID: matchID, Scores: updated.Scores, WinnerID: updated.WinnerID,
	})
}

// ReportRaceResult records a points-race game's finish order and broadcasts
// r:result (spec.md §6 reportRaceResult).
func (r *Replica) ReportRaceResult(gameID string, orderedParticipantIDs []string) error {
	if r.doc.Meta.Status != models.StatusActive {
		return ErrBracketNotStarted
	}
	game, ok := r.doc.Games.Get(gameID)
	if !ok {
		return store.ErrUnknownGame
	}
	if !r.doc.Local.IsAdmin && !containsString(game.Participants, r.doc.Local.LocalUserID) {
		return ErrUnauthorized
	}
	reportedAt := time.Now().UnixMilli()
	if _, err := r.doc.ApplyRaceResult(gameID, orderedParticipantIDs, reportedAt); err != nil {
		return err
	}
	return r.protocol.BroadcastRaceResult(sync.RaceResultPayload{
		GameID: gameID, Results: orderedParticipantIDs, ReportedAt: reportedAt,
	})
}

func (r *Replica) isMatchParticipant(match models.Match) bool {
	userID := r.doc.Local.LocalUserID
	if match.HasParticipant(userID) {
		return true
	}
	if teamID, ok := r.doc.TeamAssignments.Get(userID); ok {
		return match.HasParticipant(teamID)
	}
	return false
}

func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func flattenTeamAssignments(m *models.OrderedMap[string]) map[string]string {
	out := make(map[string]string, m.Len())
	m.Each(func(key, value string) { out[key] = value })
	return out
}

// orderedSeeds produces the seed order startTournament hands to the
// bracket engines: manual mode sorts by each participant's stored seed
// (unseeded entries, seed == 0, sort last and keep roster order among
// themselves); any other mode shuffles (spec.md §4.1 "an implementation
// may use a shuffle keyed by seed for variety but MUST be deterministic"
// is satisfied trivially here since the admin computes the order exactly
// once and transmits the resulting bracket/matches verbatim via t:start —
// other replicas never re-derive it).
func (r *Replica) orderedSeeds(cfg models.Config) []string {
	ids := append([]string{}, r.doc.Participants.Keys()...)
	if cfg.SeedingMode == string(models.SeedingManual) {
		sort.SliceStable(ids, func(i, j int) bool {
			pi, _ := r.doc.Participants.Get(ids[i])
			pj, _ := r.doc.Participants.Get(ids[j])
			si, sj := pi.Seed, pj.Seed
			if si == 0 {
				si = len(ids) + 1
			}
			if sj == 0 {
				sj = len(ids) + 1
			}
			return si < sj
		})
		return ids
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}
