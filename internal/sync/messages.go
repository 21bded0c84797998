package sync

import "encoding/json"

// StateRequestPayload ("st:req") carries no fields.
type StateRequestPayload struct{}

// StateResponsePayload ("st:res") carries a full snapshot plus the
// sender's advisory admin claim; spec.md §4.4 makes clear the claim is
// advisory only, and Merge independently verifies remoteAdminID.
type StateResponsePayload struct {
	Snapshot json.RawMessage `json:"snapshot"`
	IsAdmin  bool            `json:"isAdmin"`
}

// ParticipantJoinPayload ("p:join") self-announces a participant.
//
// The wire field is localUserId, but an older client dialect in the wild
// sends odocalUserId for the same value (a documented quirk, not a typo
// this codebase should repeat) — UnmarshalJSON accepts either on input;
// MarshalJSON (the default, struct-tag-driven one) always emits
// localUserId only.
type ParticipantJoinPayload struct {
	Name        string `json:"name"`
	LocalUserID string `json:"localUserId"`
	JoinedAt    int64  `json:"joinedAt"`
	IsManual    bool   `json:"isManual,omitempty"`

	// AdminToken proves the sender is the room's real admin device: it is
	// set only when the broadcasting replica holds doc.Local.IsAdmin, and
	// is checked against the receiving replica's own doc.Meta.AdminToken
	// rather than trusted as a self-report (spec.md §4.4 admin-impersonation
	// guard — a bare localUserId claim is not proof of identity).
	AdminToken string `json:"adminToken,omitempty"`
}

func (p *ParticipantJoinPayload) UnmarshalJSON(data []byte) error {
	type alias ParticipantJoinPayload
	aux := struct {
		*alias
		OdocalUserID string `json:"odocalUserId"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.LocalUserID == "" && aux.OdocalUserID != "" {
		p.LocalUserID = aux.OdocalUserID
	}
	return nil
}

// ParticipantUpdatePayload ("p:upd") updates one participant's fields.
// TargetID is optional; when empty the update applies to the sender's own
// mapped user id (spec.md §4.4 "admin may target another id").
type ParticipantUpdatePayload struct {
	TargetID string `json:"id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Seed     *int    `json:"seed,omitempty"`
}

// ParticipantLeavePayload ("p:leave"). Empty for self-leave, RemovedID set
// for admin removal.
type ParticipantLeavePayload struct {
	RemovedID string `json:"removedId,omitempty"`
}

// TournamentStartPayload ("t:start") carries the generated bracket and its
// matches (and, for points-race/doubles-over-points-race, games), plus the
// config that produced them so non-admin replicas don't have to wait for a
// full merge to learn meta.config.
type TournamentStartPayload struct {
	Bracket json.RawMessage `json:"bracket"`
	Matches json.RawMessage `json:"matches"`
	Games   json.RawMessage `json:"games,omitempty"`
	Config  json.RawMessage `json:"config"`
}

// TournamentResetPayload ("t:reset") carries no fields.
type TournamentResetPayload struct{}

// MatchResultPayload ("m:result").
type MatchResultPayload struct {
	MatchID    string `json:"matchId"`
	Scores     [2]int `json:"scores"`
	WinnerID   string `json:"winnerId"`
	ReportedAt int64  `json:"reportedAt"`
	Version    int    `json:"version"`
}

// MatchVerifyPayload ("m:verify", admin only).
type MatchVerifyPayload struct {
	MatchID  string `json:"matchId"`
	Scores   [2]int `json:"scores"`
	WinnerID string `json:"winnerId"`
}

// StandingsUpdatePayload ("s:upd", admin only) overwrites standings
// wholesale.
type StandingsUpdatePayload struct {
	Standings json.RawMessage `json:"standings"`
}

// RaceResultPayload ("r:result") reports one points-race game's finish
// order, already position-ranked (index 0 finished first).
type RaceResultPayload struct {
	GameID     string   `json:"gameId"`
	Results    []string `json:"results"`
	ReportedAt int64    `json:"reportedAt"`
}

// VersionCheckPayload ("v:check", admin heartbeat).
type VersionCheckPayload struct {
	Version int `json:"version"`
}
