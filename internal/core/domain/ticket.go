package domain

import "time"

// TitleMaxLength bounds the length of a ticket title, in characters.
const TitleMaxLength = 200

// TicketStatus is the workflow state of a ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// TicketPriority ranks how urgently a ticket needs attention.
type TicketPriority string

const (
	PriorityLow      TicketPriority = "low"
	PriorityMedium   TicketPriority = "medium"
	PriorityHigh     TicketPriority = "high"
	PriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Ticket is a tracked issue. CreatedByID never changes after creation;
// AssignedToID is nil while the ticket is unassigned.
type Ticket struct {
	ID           int64
	Title        string
	Description  string
	Content      string
	Status       TicketStatus
	Priority     TicketPriority
	CreatedByID  string
	CreatedBy    *Account
	AssignedToID *string
	AssignedTo   *Account
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ResolvedAt   *time.Time
}
