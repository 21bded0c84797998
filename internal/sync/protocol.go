package sync

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/leoherzog/seedless-sub001/internal/advance"
	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/leoherzog/seedless-sub001/internal/peerchannel"
	"github.com/leoherzog/seedless-sub001/internal/store"
)

// Protocol implements spec.md §4.4 over a store.Document and a
// peerchannel.Channel: it decodes inbound actions, authorizes them, applies
// them to the document, and re-broadcasts/invokes the Advancement Engine as
// required.
//
// The spec's "single logical task queue" per replica is realized here as a
// mutex rather than an actor goroutine: PeerChannel implementations may
// invoke OnAction callbacks from arbitrary goroutines (the websocket hub
// dispatches from whichever connection's read loop is sending), so
// Protocol serializes document access itself rather than relying on the
// transport to do it.
type Protocol struct {
	mu    sync.Mutex
	doc   *store.Document
	ch    peerchannel.Channel
	peers *PeerMap

	logger *log.Logger

	stateInitialized bool
	heartbeatStop    chan struct{}
}

// New wires a Protocol to doc and ch and registers its action handlers.
// Call Bootstrap once doc.Local and the caller's own participant record are
// populated to perform the spec's join/state-request handshake.
func New(doc *store.Document, ch peerchannel.Channel, logger *log.Logger) *Protocol {
	if logger == nil {
		logger = log.Default()
	}
	p := &Protocol{doc: doc, ch: ch, peers: NewPeerMap(), logger: logger}
	p.registerHandlers()
	return p
}

// StateInitialized reports whether this replica has merged its first
// admin-originated st:res.
func (p *Protocol) StateInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateInitialized
}

// MarkInitialized is used by the admin replica itself, which never
// receives its own st:res and must consider its state initialized
// immediately upon creating the room.
func (p *Protocol) MarkInitialized() {
	p.mu.Lock()
	p.stateInitialized = true
	p.mu.Unlock()
}

func (p *Protocol) registerHandlers() {
	p.ch.OnAction(CodeStateRequest, p.handleStateRequest)
	p.ch.OnAction(CodeStateResponse, p.handleStateResponse)
	p.ch.OnAction(CodeParticipantJoin, p.handleParticipantJoin)
	p.ch.OnAction(CodeParticipantUpdate, p.handleParticipantUpdate)
	p.ch.OnAction(CodeParticipantLeave, p.handleParticipantLeave)
	p.ch.OnAction(CodeTournamentStart, p.handleTournamentStart)
	p.ch.OnAction(CodeTournamentReset, p.handleTournamentReset)
	p.ch.OnAction(CodeMatchResult, p.handleMatchResult)
	p.ch.OnAction(CodeMatchVerify, p.handleMatchVerify)
	p.ch.OnAction(CodeStandingsUpdate, p.handleStandingsUpdate)
	p.ch.OnAction(CodeRaceResult, p.handleRaceResult)
	p.ch.OnAction(CodeVersionCheck, p.handleVersionCheck)
	p.ch.OnPeerLeave(p.handlePeerLeave)
}

// Bootstrap performs the spec's late-joiner handshake: announce self, then
// request state from whoever is already in the room.
func (p *Protocol) Bootstrap() {
	p.mu.Lock()
	self, ok := p.doc.Participants.Get(p.doc.Local.LocalUserID)
	p.mu.Unlock()
	payload := ParticipantJoinPayload{LocalUserID: p.doc.Local.LocalUserID}
	if ok {
		payload.Name = self.Name
		payload.JoinedAt = self.JoinedAt
		payload.IsManual = self.IsManual
	}
	if p.doc.Local.IsAdmin {
		payload.AdminToken = p.doc.Meta.AdminToken
	}
	p.peers.Set(p.ch.SelfID(), p.doc.Local.LocalUserID)
	if err := p.ch.Broadcast(CodeParticipantJoin, payload); err != nil {
		p.logger.Printf("sync: broadcast p:join failed: %v", err)
	}
	if err := p.ch.Broadcast(CodeStateRequest, StateRequestPayload{}); err != nil {
		p.logger.Printf("sync: broadcast st:req failed: %v", err)
	}
}

// StartHeartbeat launches the admin's periodic v:check broadcast (spec.md
// §4.4 "Version heartbeat"). No-op for non-admin replicas.
func (p *Protocol) StartHeartbeat(interval time.Duration) {
	if !p.doc.Local.IsAdmin {
		return
	}
	p.heartbeatStop = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-p.heartbeatStop:
				return
			case <-ticker.C:
				p.mu.Lock()
				version := p.doc.Meta.Version
				p.mu.Unlock()
				if err := p.ch.Broadcast(CodeVersionCheck, VersionCheckPayload{Version: version}); err != nil {
					p.logger.Printf("sync: broadcast v:check failed: %v", err)
				}
			}
		}
	}()
}

// StopHeartbeat halts a previously started heartbeat.
func (p *Protocol) StopHeartbeat() {
	if p.heartbeatStop != nil {
		close(p.heartbeatStop)
		p.heartbeatStop = nil
	}
}

// --- outbound helpers, called by internal/room's control surface ---

func (p *Protocol) BroadcastJoin(payload ParticipantJoinPayload) error {
	return p.ch.Broadcast(CodeParticipantJoin, payload)
}

func (p *Protocol) BroadcastUpdate(payload ParticipantUpdatePayload) error {
	return p.ch.Broadcast(CodeParticipantUpdate, payload)
}

func (p *Protocol) BroadcastLeave(payload ParticipantLeavePayload) error {
	return p.ch.Broadcast(CodeParticipantLeave, payload)
}

func (p *Protocol) BroadcastStart(payload TournamentStartPayload) error {
	return p.ch.Broadcast(CodeTournamentStart, payload)
}

func (p *Protocol) BroadcastReset() error {
	return p.ch.Broadcast(CodeTournamentReset, TournamentResetPayload{})
}

func (p *Protocol) BroadcastMatchResult(payload MatchResultPayload) error {
	return p.ch.Broadcast(CodeMatchResult, payload)
}

func (p *Protocol) BroadcastVerify(payload MatchVerifyPayload) error {
	return p.ch.Broadcast(CodeMatchVerify, payload)
}

func (p *Protocol) BroadcastStandings(payload StandingsUpdatePayload) error {
	return p.ch.Broadcast(CodeStandingsUpdate, payload)
}

func (p *Protocol) BroadcastRaceResult(payload RaceResultPayload) error {
	return p.ch.Broadcast(CodeRaceResult, payload)
}

// --- inbound handlers ---

func (p *Protocol) handleStateRequest(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	p.mu.Lock()
	snap := p.doc.Serialize()
	isAdminSelf := p.doc.Local.IsAdmin
	p.mu.Unlock()

	snapBytes, err := json.Marshal(snap)
	if err != nil {
		p.logger.Printf("sync: marshal snapshot failed: %v", err)
		return
	}
	resp := StateResponsePayload{Snapshot: snapBytes, IsAdmin: isAdminSelf}
	if err := p.ch.SendTo(CodeStateResponse, resp, []string{peerID}); err != nil {
		p.logger.Printf("sync: send st:res failed peer=%s: %v", peerID, err)
	}
}

func (p *Protocol) handleStateResponse(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var resp StateResponsePayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		p.logger.Printf("sync: st:res decode failed: %v", err)
		return
	}
	var snap store.Snapshot
	if err := json.Unmarshal(resp.Snapshot, &snap); err != nil {
		p.logger.Printf("sync: st:res snapshot decode failed: %v", err)
		return
	}

	senderUserID, _ := p.peers.UserID(peerID)
	remoteAdminID := ""
	if senderUserID != "" && senderUserID == snap.Meta.AdminID {
		remoteAdminID = senderUserID
	}

	p.mu.Lock()
	p.doc.Merge(snap, remoteAdminID)
	wasInitialized := p.stateInitialized
	if remoteAdminID != "" {
		p.stateInitialized = true
	}
	becameInitialized := !wasInitialized && p.stateInitialized
	self, ok := p.doc.Participants.Get(p.doc.Local.LocalUserID)
	p.mu.Unlock()

	if becameInitialized {
		rejoin := ParticipantJoinPayload{LocalUserID: p.doc.Local.LocalUserID}
		if ok {
			rejoin.Name = self.Name
			rejoin.JoinedAt = self.JoinedAt
			rejoin.IsManual = self.IsManual
		}
		if p.doc.Local.IsAdmin {
			rejoin.AdminToken = p.doc.Meta.AdminToken
		}
		if err := p.ch.Broadcast(CodeParticipantJoin, rejoin); err != nil {
			p.logger.Printf("sync: re-broadcast p:join failed: %v", err)
		}
	}
}

func (p *Protocol) handleParticipantJoin(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var join ParticipantJoinPayload
	if err := json.Unmarshal(payload, &join); err != nil {
		p.logger.Printf("sync: p:join decode failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// join.LocalUserID is a bare self-report; only an AdminToken matching
	// this replica's own doc.Meta.AdminToken (set by the real admin's
	// Bootstrap call) proves the sender actually holds admin authority, as
	// opposed to simply naming the already-public adminId.
	senderIsAdmin := join.LocalUserID == p.doc.Meta.AdminID &&
		join.AdminToken != "" && join.AdminToken == p.doc.Meta.AdminToken
	if !authorizeJoin(p.doc, join, senderIsAdmin, peerID, p.peers) {
		p.logger.Printf("sync: rejected p:join from peer=%s", peerID)
		return
	}
	p.peers.Set(peerID, join.LocalUserID)

	if slotID, ok := claimableManualSlot(p.doc, join.Name); ok && slotID != join.LocalUserID {
		p.doc.ClaimManualSlot(slotID, join.LocalUserID)
		return
	}

	name := strings.TrimSpace(join.Name)
	if existing, ok := p.doc.Participants.Get(join.LocalUserID); ok {
		existing.IsConnected = true
		existing.Name = name
		if join.JoinedAt > 0 {
			existing.JoinedAt = join.JoinedAt
		}
		p.doc.UpsertParticipant(existing)
		return
	}
	p.doc.UpsertParticipant(models.Participant{
		ID:          join.LocalUserID,
		Name:        name,
		IsConnected: true,
		IsManual:    join.IsManual,
		JoinedAt:    join.JoinedAt,
	})
}

func (p *Protocol) handleParticipantUpdate(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var upd ParticipantUpdatePayload
	if err := json.Unmarshal(payload, &upd); err != nil {
		p.logger.Printf("sync: p:upd decode failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	senderUserID := p.peers.Resolve(peerID)
	targetID := upd.TargetID
	if targetID == "" {
		targetID = senderUserID
	}
	senderIsAdmin := isAdmin(p.doc, senderUserID)
	if !authorizeUpdate(targetID, senderUserID, senderIsAdmin) {
		p.logger.Printf("sync: rejected p:upd from user=%s target=%s", senderUserID, targetID)
		return
	}
	if upd.Name != nil && !validName(*upd.Name) {
		p.logger.Printf("sync: rejected p:upd invalid name from user=%s", senderUserID)
		return
	}
	if !p.doc.UpdateParticipantFields(targetID, upd.Name, upd.Seed) {
		p.logger.Printf("sync: p:upd unknown target=%s", targetID)
	}
}

func (p *Protocol) handleParticipantLeave(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var leave ParticipantLeavePayload
	if err := json.Unmarshal(payload, &leave); err != nil {
		p.logger.Printf("sync: p:leave decode failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	senderUserID := p.peers.Resolve(peerID)
	senderIsAdmin := isAdmin(p.doc, senderUserID)
	if !authorizeLeave(leave.RemovedID, senderIsAdmin) {
		p.logger.Printf("sync: rejected p:leave from user=%s", senderUserID)
		return
	}
	targetID := leave.RemovedID
	if targetID == "" {
		targetID = senderUserID
	}
	if targetID == p.doc.Meta.AdminID && leave.RemovedID != "" {
		// invariant: admin cannot be deleted by any inbound message
		// (spec.md §8); self-leave of the admin is not routed through
		// removedId so it is unaffected by this guard.
		p.logger.Printf("sync: rejected attempt to remove admin via p:leave")
		return
	}
	p.doc.RemoveParticipant(targetID)
}

func (p *Protocol) handleTournamentStart(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var start TournamentStartPayload
	if err := json.Unmarshal(payload, &start); err != nil {
		p.logger.Printf("sync: t:start decode failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	senderUserID := p.peers.Resolve(peerID)
	if !authorizeAdminOnly(isAdmin(p.doc, senderUserID)) {
		p.logger.Printf("sync: rejected t:start from non-admin user=%s", senderUserID)
		return
	}

	var bracket models.Bracket
	if err := json.Unmarshal(start.Bracket, &bracket); err != nil {
		p.logger.Printf("sync: t:start bracket decode failed: %v", err)
		return
	}
	var matchPairs []models.Pair[models.Match]
	if err := json.Unmarshal(start.Matches, &matchPairs); err != nil {
		p.logger.Printf("sync: t:start matches decode failed: %v", err)
		return
	}
	matches := models.NewOrderedMap[models.Match]()
	matches.FromPairs(matchPairs)

	games := models.NewOrderedMap[models.Game]()
	if len(start.Games) > 0 {
		var gamePairs []models.Pair[models.Game]
		if err := json.Unmarshal(start.Games, &gamePairs); err == nil {
			games.FromPairs(gamePairs)
		}
	}

	var cfg models.Config
	if len(start.Config) > 0 {
		_ = json.Unmarshal(start.Config, &cfg)
	}

	p.doc.StartTournament(cfg, &bracket, matches, games)
}

func (p *Protocol) handleTournamentReset(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	senderUserID := p.peers.Resolve(peerID)
	if !authorizeAdminOnly(isAdmin(p.doc, senderUserID)) {
		p.logger.Printf("sync: rejected t:reset from non-admin user=%s", senderUserID)
		return
	}
	p.doc.ResetTournament()
}

func (p *Protocol) handleMatchResult(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var result MatchResultPayload
	if err := json.Unmarshal(payload, &result); err != nil {
		p.logger.Printf("sync: m:result decode failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	senderUserID := p.peers.Resolve(peerID)
	senderIsAdmin := isAdmin(p.doc, senderUserID)
	if !authorizeMatchResult(p.doc, result, senderUserID, senderIsAdmin, p.stateInitialized) {
		p.logger.Printf("sync: rejected m:result matchId=%s from user=%s", result.MatchID, senderUserID)
		return
	}

	match, changed, err := p.doc.ApplyMatchResult(result.MatchID, result.Scores, result.WinnerID, senderUserID, result.ReportedAt, "")
	if err != nil {
		p.logger.Printf("sync: m:result apply failed matchId=%s: %v", result.MatchID, err)
		return
	}
	if !changed || p.doc.Bracket == nil {
		return
	}
	completed := advance.Advance(p.doc.Bracket, p.doc.Matches, match.ID, match.WinnerID)
	p.doc.ApplyAdvancement(completed)
}

func (p *Protocol) handleMatchVerify(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var verify MatchVerifyPayload
	if err := json.Unmarshal(payload, &verify); err != nil {
		p.logger.Printf("sync: m:verify decode failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	senderUserID := p.peers.Resolve(peerID)
	if !authorizeAdminOnly(isAdmin(p.doc, senderUserID)) {
		p.logger.Printf("sync: rejected m:verify from non-admin user=%s", senderUserID)
		return
	}
	existing, ok := p.doc.Matches.Get(verify.MatchID)
	if !ok {
		p.logger.Printf("sync: m:verify unknown matchId=%s", verify.MatchID)
		return
	}
	if existing.ReportedBy == "" && existing.ReportedAt == 0 {
		// This replica hasn't observed the underlying m:result yet (reorder
		// or loss in transit). Stamping a verification now would freeze
		// ReportedBy/ReportedAt blank forever: once verified, the later
		// arriving m:result is unverified and can never win resolveMatchUpdate's
		// tie-break. Drop and wait for the result to land via retry or merge.
		p.logger.Printf("sync: m:verify for matchId=%s arrived before any reported result, dropping", verify.MatchID)
		return
	}
	match, changed, err := p.doc.ApplyMatchResult(verify.MatchID, verify.Scores, verify.WinnerID, existing.ReportedBy, existing.ReportedAt, senderUserID)
	if err != nil {
		p.logger.Printf("sync: m:verify apply failed matchId=%s: %v", verify.MatchID, err)
		return
	}
	if !changed || p.doc.Bracket == nil {
		return
	}
	completed := advance.Advance(p.doc.Bracket, p.doc.Matches, match.ID, match.WinnerID)
	p.doc.ApplyAdvancement(completed)
}

func (p *Protocol) handleStandingsUpdate(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var upd StandingsUpdatePayload
	if err := json.Unmarshal(payload, &upd); err != nil {
		p.logger.Printf("sync: s:upd decode failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	senderUserID := p.peers.Resolve(peerID)
	if !authorizeAdminOnly(isAdmin(p.doc, senderUserID)) {
		p.logger.Printf("sync: rejected s:upd from non-admin user=%s", senderUserID)
		return
	}
	var pairs []models.Pair[models.StandingEntry]
	if err := json.Unmarshal(upd.Standings, &pairs); err != nil {
		p.logger.Printf("sync: s:upd standings decode failed: %v", err)
		return
	}
	standings := models.NewOrderedMap[models.StandingEntry]()
	standings.FromPairs(pairs)
	p.doc.SetStandings(standings)
}

func (p *Protocol) handleRaceResult(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var result RaceResultPayload
	if err := json.Unmarshal(payload, &result); err != nil {
		p.logger.Printf("sync: r:result decode failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	senderUserID := p.peers.Resolve(peerID)
	senderIsAdmin := isAdmin(p.doc, senderUserID)
	game, ok := p.doc.Games.Get(result.GameID)
	if !ok {
		p.logger.Printf("sync: r:result unknown gameId=%s", result.GameID)
		return
	}
	if !authorizeRaceResult(p.doc, game, senderUserID, senderIsAdmin, p.stateInitialized) {
		p.logger.Printf("sync: rejected r:result gameId=%s from user=%s", result.GameID, senderUserID)
		return
	}
	if _, err := p.doc.ApplyRaceResult(result.GameID, result.Results, result.ReportedAt); err != nil {
		p.logger.Printf("sync: r:result apply failed gameId=%s: %v", result.GameID, err)
	}
}

func (p *Protocol) handleVersionCheck(payload json.RawMessage, peerID string, envelope peerchannel.Envelope) {
	var check VersionCheckPayload
	if err := json.Unmarshal(payload, &check); err != nil {
		return
	}
	p.mu.Lock()
	behind := check.Version > p.doc.Meta.Version
	p.mu.Unlock()
	if !behind {
		return
	}
	if err := p.ch.SendTo(CodeStateRequest, StateRequestPayload{}, []string{peerID}); err != nil {
		p.logger.Printf("sync: unicast st:req after v:check failed: %v", err)
	}
}

func (p *Protocol) handlePeerLeave(peerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.peers.UserID(peerID)
	p.peers.Remove(peerID)
	if !ok {
		return
	}
	p.doc.SetParticipantConnected(userID, false)
}
