package events

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// EventType enumerates supported event identifiers. These values also
// key the notification rule table.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketReopened        EventType = "ticket_reopened"
	EventTicketMarkedDuplicate EventType = "ticket_marked_duplicate"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketDueDateChanged  EventType = "ticket_due_date_changed"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
)

// Event represents a domain event emitted after a committed mutation.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	TicketID    string      `json:"ticket_id"`
	TicketTitle string      `json:"ticket_title"`
	ActorID     string      `json:"actor_id"`
	ActorName   string      `json:"actor_name,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Message     string      `json:"message"`
	Payload     interface{} `json:"payload"`

	// ExplicitRecipients are added to whatever the matched rules
	// resolve, bypassing selector lookup.
	ExplicitRecipients []string `json:"explicit_recipients,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CategoryID string                `json:"category_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	ReopenedBy string `json:"reopened_by"`
}

// TicketMarkedDuplicatePayload payload.
type TicketMarkedDuplicatePayload struct {
	OriginalTicketID string `json:"original_ticket_id"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID *string `json:"new_assignee_id,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketDueDateChangedPayload payload.
type TicketDueDateChangedPayload struct {
	OldDueDate *time.Time `json:"old_due_date,omitempty"`
	NewDueDate *time.Time `json:"new_due_date,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string  `json:"comment_id"`
	AuthorID    *string `json:"author_id,omitempty"`
	IsPrivate   bool    `json:"is_private"`
	BodyPreview string  `json:"body_preview"`
}
