package domain

import "time"

// Category groups tickets for triage. Tickets must reference an active
// category at creation.
type Category struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
