package services

import "context"

// EmailMessage is one outgoing notification mail.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// NotificationDispatcher delivers best-effort mail. Failures are logged
// by the caller and never fail the scheduling operation they accompany.
type NotificationDispatcher interface {
	SendCustomEmail(ctx context.Context, msg EmailMessage) error
}

// ScheduleBroadcaster pushes schedule changes to live viewers of a
// tournament. Implemented by live.Hub.
type ScheduleBroadcaster interface {
	BroadcastSchedule(tournamentID int, eventType string, payload interface{})
}

// Event types sent through the ScheduleBroadcaster.
const (
	EventRoundCreated       = "ROUND_CREATED"
	EventRoundRescheduled   = "ROUND_RESCHEDULED"
	EventRoundDeleted       = "ROUND_DELETED"
	EventGamePostponed      = "GAME_POSTPONED"
	EventPostponementUndone = "POSTPONEMENT_UNDONE"
	EventGameAdded          = "GAME_ADDED"
)
