package store

import (
	"strings"

	"github.com/leoherzog/seedless-sub001/internal/models"
)

// GetPath is the generic debug/test accessor spec.md §9 keeps "only for
// tests or debug" now that strongly-typed mutators are the primary API. It
// understands a small set of dotted paths sufficient for introspection and
// assertions; it does not attempt to cover every field reachable through
// the typed mutators.
func (d *Document) GetPath(path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	switch parts[0] {
	case "meta":
		return getMetaPath(d, parts[1:])
	case "local":
		return getLocalPath(d, parts[1:])
	case "participants":
		if len(parts) < 2 {
			return nil, false
		}
		p, ok := d.Participants.Get(parts[1])
		if !ok {
			return nil, false
		}
		if len(parts) == 2 {
			return p, true
		}
		return getParticipantField(p, parts[2])
	case "matches":
		if len(parts) < 2 {
			return nil, false
		}
		m, ok := d.Matches.Get(parts[1])
		if !ok {
			return nil, false
		}
		if len(parts) == 2 {
			return m, true
		}
		return getMatchField(m, parts[2])
	}
	return nil, false
}

// SetPath writes a handful of debug/test-relevant leaf paths, bumping
// meta.version and emitting EventChange like any other mutator. It is not a
// general reflective setter — strongly-typed mutators remain the primary
// API (spec.md §9 "Path-based set(...) API -> strongly-typed accessors").
func (d *Document) SetPath(path string, value interface{}) bool {
	parts := strings.Split(path, ".")
	switch {
	case path == "meta.status":
		if s, ok := value.(models.RoomStatus); ok {
			d.SetMetaStatus(s)
			return true
		}
	case path == "local.localUserId":
		if s, ok := value.(string); ok {
			d.Local.LocalUserID = s
			return true
		}
	case path == "local.isAdmin":
		if b, ok := value.(bool); ok {
			d.Local.IsAdmin = b
			return true
		}
	case len(parts) == 3 && parts[0] == "participants" && parts[2] == "seed":
		if n, ok := value.(int); ok {
			p, found := d.Participants.Get(parts[1])
			if !found {
				return false
			}
			p.Seed = n
			d.Participants.Set(parts[1], p)
			d.bump()
			d.Emit(EventChange, ChangePayload{Path: path, Value: n})
			return true
		}
	}
	return false
}

func getMetaPath(d *Document, rest []string) (interface{}, bool) {
	if len(rest) == 0 {
		return d.Meta, true
	}
	switch rest[0] {
	case "version":
		return d.Meta.Version, true
	case "id":
		return d.Meta.ID, true
	case "name":
		return d.Meta.Name, true
	case "type":
		return d.Meta.Type, true
	case "status":
		return d.Meta.Status, true
	case "adminId":
		return d.Meta.AdminID, true
	}
	return nil, false
}

func getLocalPath(d *Document, rest []string) (interface{}, bool) {
	if len(rest) == 0 {
		return d.Local, true
	}
	switch rest[0] {
	case "localUserId":
		return d.Local.LocalUserID, true
	case "isAdmin":
		return d.Local.IsAdmin, true
	}
	return nil, false
}

func getParticipantField(p models.Participant, field string) (interface{}, bool) {
	switch field {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "seed":
		return p.Seed, true
	case "teamId":
		return p.TeamID, true
	case "isConnected":
		return p.IsConnected, true
	case "isManual":
		return p.IsManual, true
	case "claimedBy":
		return p.ClaimedBy, true
	case "joinedAt":
		return p.JoinedAt, true
	}
	return nil, false
}

func getMatchField(m models.Match, field string) (interface{}, bool) {
	switch field {
	case "id":
		return m.ID, true
	case "round":
		return m.Round, true
	case "position":
		return m.Position, true
	case "winnerId":
		return m.WinnerID, true
	case "loserId":
		return m.LoserID, true
	case "scores":
		return m.Scores, true
	case "verifiedBy":
		return m.VerifiedBy, true
	case "isBye":
		return m.IsBye, true
	}
	return nil, false
}
