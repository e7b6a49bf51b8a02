package domain

import "time"

// RecipientSelector names a class of notification recipients.
type RecipientSelector string

const (
	SelectorSubmitter    RecipientSelector = "SUBMITTER"
	SelectorAssignee     RecipientSelector = "ASSIGNEE"
	SelectorAllAdmins    RecipientSelector = "ALL_ADMINS"
	SelectorAllEmployees RecipientSelector = "ALL_EMPLOYEES"
)

// NotificationRule routes an event type to recipient classes. Rules are
// read-only at dispatch time; administrators manage them separately.
type NotificationRule struct {
	ID                 string
	EventType          string
	RecipientSelectors []RecipientSelector
	Enabled            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
