package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is an issued token plus the profile it belongs to.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	ProfileID string      `json:"profile_id"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
}

// RuleResponse is the wire shape of a notification rule.
type RuleResponse struct {
	ID                 string   `json:"id"`
	EventType          string   `json:"event_type"`
	RecipientSelectors []string `json:"recipient_selectors"`
	Enabled            bool     `json:"enabled"`
}

// FromRule maps the domain model.
func FromRule(rule *domain.NotificationRule) RuleResponse {
	selectors := make([]string, 0, len(rule.RecipientSelectors))
	for _, s := range rule.RecipientSelectors {
		selectors = append(selectors, string(s))
	}
	return RuleResponse{
		ID:                 rule.ID,
		EventType:          rule.EventType,
		RecipientSelectors: selectors,
		Enabled:            rule.Enabled,
	}
}

// ToggleRuleRequest payload.
type ToggleRuleRequest struct {
	Enabled bool `json:"enabled"`
}

// CategoryResponse is the wire shape of a category.
type CategoryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
