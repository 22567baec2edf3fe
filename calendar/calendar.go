// Package calendar is the port to the externally owned club calendar.
// Makeup days are mirrored there as a convenience; every call is
// best-effort from the scheduler's point of view.
package calendar

import (
	"context"
	"time"
)

// EventTypeMakeupDay is the event category the club calendar uses for
// inhaaldagen.
const EventTypeMakeupDay = "inhaaldag"

type EventInput struct {
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Type         string    `json:"type"`
	Datum        time.Time `json:"datum"`
	Startuur     string    `json:"startuur"`
	TournamentID int       `json:"tournament_id"`
}

// EventPatch carries the fields to change; nil fields stay untouched.
type EventPatch struct {
	Title    *string    `json:"title,omitempty"`
	Datum    *time.Time `json:"datum,omitempty"`
	Startuur *string    `json:"startuur,omitempty"`
}

type Sync interface {
	// CreateEvent returns the id of the created calendar entry.
	CreateEvent(ctx context.Context, input EventInput) (string, error)
	UpdateEvent(ctx context.Context, eventID string, patch EventPatch) error
	// DeleteEvent tolerates an already-deleted entry.
	DeleteEvent(ctx context.Context, eventID string) error
}
