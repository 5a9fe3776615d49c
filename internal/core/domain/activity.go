package domain

import "time"

// ActivityAction names the kind of change recorded for a ticket.
type ActivityAction string

const (
	ActivityCreated  ActivityAction = "created"
	ActivityUpdated  ActivityAction = "updated"
	ActivityAssigned ActivityAction = "assigned"
	ActivityDeleted  ActivityAction = "deleted"
)

// Activity is one entry of a ticket's audit trail.
type Activity struct {
	TicketID   int64
	Action     ActivityAction
	ActorID    string
	Changes    map[string]any
	OccurredAt time.Time
}
