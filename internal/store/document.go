// Package store implements the replicated State Document (spec.md §3-§4.3):
// a keyed, event-emitting document with typed mutators, a stable
// serialize/deserialize wire format, and the CRDT merge algorithm that lets
// independent replicas converge.
//
// Document is not internally mutex-guarded for its replicated fields — like
// the teacher's Hub, it assumes single-owner, single-logical-queue access
// (spec.md §5). Only the embedded Emitter is safe for concurrent use, the
// same way websocket.Hub guards its connection maps.
package store

import (
	"log"

	"github.com/leoherzog/seedless-sub001/internal/models"
)

// Local holds state that is never replicated, serialized, or persisted
// (spec.md §3 "Local (not replicated)").
type Local struct {
	LocalUserID string
	IsAdmin     bool
}

// Document is one replica's copy of the tournament's replicated state.
type Document struct {
	Emitter

	Meta            models.Meta
	Participants    *models.OrderedMap[models.Participant]
	Matches         *models.OrderedMap[models.Match]
	Games           *models.OrderedMap[models.Game]
	Standings       *models.OrderedMap[models.StandingEntry]
	TeamAssignments *models.OrderedMap[string]
	Teams           *models.OrderedMap[models.Team]
	Bracket         *models.Bracket

	Local Local

	logger *log.Logger
}

// New constructs an empty Document ready for createRoom/joinRoom to
// populate. logger may be nil, in which case log.Default() is used.
func New(logger *log.Logger) *Document {
	if logger == nil {
		logger = log.Default()
	}
	return &Document{
		Participants:    models.NewOrderedMap[models.Participant](),
		Matches:         models.NewOrderedMap[models.Match](),
		Games:           models.NewOrderedMap[models.Game](),
		Standings:       models.NewOrderedMap[models.StandingEntry](),
		TeamAssignments: models.NewOrderedMap[string](),
		Teams:           models.NewOrderedMap[models.Team](),
		logger:          logger,
	}
}
