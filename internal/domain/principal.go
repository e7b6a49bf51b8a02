package domain

import "time"

// Role enumerates the access tiers of authenticated callers.
type Role string

const (
	RoleUser     Role = "USER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
	RoleOwner    Role = "OWNER"
)

// IsStaff reports whether the role belongs to internal personnel.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin || r == RoleOwner
}

// IsElevated reports whether the role has unrestricted ticket access.
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleOwner
}

// Principal is the authenticated actor behind a request. It is supplied
// per call and never read from ambient state.
type Principal struct {
	ProfileID string
	Role      Role
}

// ProfileStatus represents lifecycle states for a profile.
type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "ACTIVE"
	ProfileStatusSuspended ProfileStatus = "SUSPENDED"
)

// Profile is the persisted directory record backing a principal.
type Profile struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       ProfileStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal derives the request-scoped principal for a profile.
func (p *Profile) Principal() Principal {
	return Principal{ProfileID: p.ID, Role: p.Role}
}
