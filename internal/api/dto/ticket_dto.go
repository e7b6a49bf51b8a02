package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CategoryID  string                `json:"category_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	DueDate     *time.Time            `json:"due_date"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// MarkDuplicateRequest payload.
type MarkDuplicateRequest struct {
	OriginalTicketID string `json:"original_ticket_id"`
}

// AssignRequest payload. A null assignee clears the assignment.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// SetPriorityRequest payload.
type SetPriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// SetDueDateRequest payload. A null due date clears it.
type SetDueDateRequest struct {
	DueDate *time.Time `json:"due_date"`
}

// TicketResponse is the wire shape of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	SubmitterID string                `json:"submitter_id"`
	CategoryID  string                `json:"category_id"`
	AssigneeID  *string               `json:"assignee_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	DueDate     *time.Time            `json:"due_date"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
}

// FromTicket maps the domain model.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		ExternalKey: t.ExternalKey,
		SubmitterID: t.SubmitterID,
		CategoryID:  t.CategoryID,
		AssigneeID:  t.AssigneeID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ClosedAt:    t.ClosedAt,
	}
}

// FromTickets maps a slice.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, FromTicket(&tickets[i]))
	}
	return out
}

// HistoryEntryResponse is the wire shape of an audit entry.
type HistoryEntryResponse struct {
	ID          string               `json:"id"`
	TicketID    string               `json:"ticket_id"`
	ActorID     string               `json:"actor_id"`
	Action      domain.HistoryAction `json:"action"`
	FieldName   *string              `json:"field_name,omitempty"`
	OldValue    *string              `json:"old_value,omitempty"`
	NewValue    *string              `json:"new_value,omitempty"`
	Description string               `json:"description"`
	CreatedAt   time.Time            `json:"created_at"`
}

// FromHistory maps a slice of entries.
func FromHistory(entries []domain.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, HistoryEntryResponse{
			ID:          entry.ID,
			TicketID:    entry.TicketID,
			ActorID:     entry.ActorID,
			Action:      entry.Action,
			FieldName:   entry.FieldName,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return out
}
