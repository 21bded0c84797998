package store

import "errors"

var (
	// ErrUnknownMatch is returned by mutators that target a matchId not
	// present in the document.
	ErrUnknownMatch = errors.New("store: unknown match")
	// ErrUnknownParticipant is returned by mutators that target a
	// participant id not present in the document.
	ErrUnknownParticipant = errors.New("store: unknown participant")
	// ErrUnknownGame is returned by mutators that target a gameId not
	// present in the document (points-race mode).
	ErrUnknownGame = errors.New("store: unknown game")
	// ErrNoBracket is returned by ApplyRaceResult when the document has no
	// points-race bracket (before startTournament, or in another mode).
	ErrNoBracket = errors.New("store: no bracket generated")
)
