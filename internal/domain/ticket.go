package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "OPEN"
	TicketStatusWaiting TicketStatus = "WAITING"
	TicketStatusClosed  TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for support requests. SubmitterID is set at
// creation and never changes; ClosedAt is non-nil exactly when the
// status is CLOSED.
type Ticket struct {
	ID          string
	ExternalKey string
	SubmitterID string
	CategoryID  string
	AssigneeID  *string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:    {TicketStatusWaiting, TicketStatusClosed},
	TicketStatusWaiting: {TicketStatusOpen, TicketStatusClosed},
	TicketStatusClosed:  {TicketStatusOpen},
}

// CanTransition reports whether a status change is legal. Reopening
// (CLOSED -> OPEN) is only reachable through the dedicated reopen
// operation, but the edge itself lives here so the table is complete.
func CanTransition(current, next TicketStatus) bool {
	if current == next {
		return false
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// ValidStatus reports whether the value is a known status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusWaiting, TicketStatusClosed:
		return true
	}
	return false
}
