package models

import (
	"time"

	"github.com/google/uuid"
)

// InteractionKind is what the attendee did with a session.
type InteractionKind string

// Interaction kinds recorded by the attendee app.
const (
	InteractionViewed InteractionKind = "viewed"
	InteractionSaved  InteractionKind = "saved"
	InteractionRated  InteractionKind = "rated"
)

// Interaction is one attendee action on a session.
type Interaction struct {
	ProfileID uuid.UUID       `json:"profile_id"`
	SessionID uuid.UUID       `json:"session_id"`
	TrackID   uuid.UUID       `json:"track_id"`
	Kind      InteractionKind `json:"kind"`
	At        time.Time       `json:"at"`
}

// InteractionHistory is the attendee's interactions within one conference, summarized for ranking.
type InteractionHistory struct {
	// TrackCounts counts interactions per track.
	TrackCounts map[uuid.UUID]int
	// Seen holds every session the attendee has interacted with.
	Seen map[uuid.UUID]struct{}
	// Saved holds sessions the attendee saved. They are never recommended.
	Saved map[uuid.UUID]struct{}
}

// NewInteractionHistory summarizes interactions into track counts and seen/saved sets.
func NewInteractionHistory(interactions []Interaction) InteractionHistory {
	h := InteractionHistory{
		TrackCounts: make(map[uuid.UUID]int),
		Seen:        make(map[uuid.UUID]struct{}, len(interactions)),
		Saved:       make(map[uuid.UUID]struct{}),
	}

	for _, in := range interactions {
		h.TrackCounts[in.TrackID]++
		h.Seen[in.SessionID] = struct{}{}

		if in.Kind == InteractionSaved {
			h.Saved[in.SessionID] = struct{}{}
		}
	}

	return h
}

// HasSeen reports whether the attendee interacted with the session.
func (h InteractionHistory) HasSeen(id uuid.UUID) bool {
	_, ok := h.Seen[id]

	return ok
}

// HasSaved reports whether the attendee saved the session.
func (h InteractionHistory) HasSaved(id uuid.UUID) bool {
	_, ok := h.Saved[id]

	return ok
}
