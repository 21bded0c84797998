// Package room implements the control-surface (CLI-analog) operations
// spec.md §6 exposes to the embedding UI: createRoom, joinRoom, leave,
// addParticipant, removeParticipant, startTournament, resetTournament,
// reportMatchResult, verifyMatchResult, reportRaceResult, and the manual
// seeding entry point from §9 — wiring together internal/store,
// internal/sync, internal/brackets, internal/advance, and
// internal/persistence into one replica.
package room

import "errors"

var (
	// ErrNotAdmin is returned by admin-only control-surface operations
	// when called by a non-admin replica.
	ErrNotAdmin = errors.New("room: caller is not admin")
	// ErrUnauthorized is returned when a non-admin caller targets a
	// match/game they are not a participant of, or attempts to remove
	// the admin's own participant record.
	ErrUnauthorized = errors.New("room: caller is not authorized for this action")
	// ErrBracketNotStarted is returned by match/race operations when
	// meta.status is not active.
	ErrBracketNotStarted = errors.New("room: tournament is not active")
	// ErrAlreadyStarted is returned by startTournament when the room is
	// already active.
	ErrAlreadyStarted = errors.New("room: tournament already started")
	// ErrInvalidConfig is returned when startTournament's config is
	// missing fields its tournament type requires.
	ErrInvalidConfig = errors.New("room: invalid tournament config")
	// ErrInsufficientParticipants is returned when too few participants
	// (or, for doubles, too few complete teams) are present to start.
	ErrInsufficientParticipants = errors.New("room: insufficient participants to start")
)
