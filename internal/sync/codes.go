// Package sync implements the Sync Protocol (spec.md §4.4): the 12 message
// codes, their authorization table, peerId<->localUserId mapping, the
// bootstrap/late-joiner exchange, version heartbeat, and post-merge
// advancement invocation.
package sync

// Message codes, spec.md §4.4's table. Each is ASCII, <= 12 bytes.
const (
	CodeStateRequest      = "st:req"
	CodeStateResponse     = "st:res"
	CodeParticipantJoin   = "p:join"
	CodeParticipantUpdate = "p:upd"
	CodeParticipantLeave  = "p:leave"
	CodeTournamentStart   = "t:start"
	CodeTournamentReset   = "t:reset"
	CodeMatchResult       = "m:result"
	CodeMatchVerify       = "m:verify"
	CodeStandingsUpdate   = "s:upd"
	CodeRaceResult        = "r:result"
	CodeVersionCheck      = "v:check"
)

// Validation limits, spec.md §4.4 "Validation limits".
const (
	MaxNameLength    = 100
	MaxMatchIDLength = 50
)
