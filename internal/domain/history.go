package domain

import "time"

// HistoryAction captures what kind of mutation a history entry records.
type HistoryAction string

const (
	HistoryActionCreated        HistoryAction = "CREATED"
	HistoryActionStatusChanged  HistoryAction = "STATUS_CHANGED"
	HistoryActionPriorityChange HistoryAction = "PRIORITY_CHANGED"
	HistoryActionAssigned       HistoryAction = "ASSIGNED"
	HistoryActionDueDateChanged HistoryAction = "DUE_DATE_CHANGED"
	HistoryActionReopened       HistoryAction = "REOPENED"
	HistoryActionDuplicated     HistoryAction = "DUPLICATED"
)

// HistoryEntry is an immutable audit record of one accepted mutation.
// Entries are append-only and total-ordered by CreatedAt with insertion
// sequence breaking ties.
type HistoryEntry struct {
	ID          string
	TicketID    string
	ActorID     string
	Action      HistoryAction
	FieldName   *string
	OldValue    *string
	NewValue    *string
	Description string
	CreatedAt   time.Time
}
