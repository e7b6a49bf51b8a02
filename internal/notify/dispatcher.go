// Package notify maps domain events to notification recipients and
// hands them to the delivery channel. Dispatch runs on its own failure
// domain: nothing here ever surfaces an error to a mutation caller.
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/mail"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

// RuleSource yields the enabled rules for an event type. The pg
// repository satisfies it directly; RuleCache wraps it with redis.
type RuleSource interface {
	ListEnabledByEvent(ctx context.Context, eventType string) ([]domain.NotificationRule, error)
}

// DeliveryFailure records one failed send.
type DeliveryFailure struct {
	Recipient string
	Err       error
}

// DispatchResult summarizes one dispatch. Failures are informational;
// they have already been logged and are never retried synchronously.
type DispatchResult struct {
	EventType    events.EventType
	MatchedRules int
	Recipients   []string
	Delivered    int
	Failures     []DeliveryFailure
	NoOp         bool
}

// Dispatcher resolves recipients and sends once per unique address.
type Dispatcher struct {
	rules    RuleSource
	tickets  repository.TicketRepository
	profiles repository.ProfileRepository
	sender   mail.Sender
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(rules RuleSource, tickets repository.TicketRepository, profiles repository.ProfileRepository, sender mail.Sender, logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		rules:    rules,
		tickets:  tickets,
		profiles: profiles,
		sender:   sender,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch looks up enabled rules for the event type, resolves their
// recipient selectors, de-duplicates, and delivers once per recipient.
// With no enabled rule it returns a no-op result without touching the
// delivery channel.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) DispatchResult {
	result := DispatchResult{EventType: event.Type}

	rules, err := d.rules.ListEnabledByEvent(ctx, string(event.Type))
	if err != nil {
		d.logger.Warn("notification rule lookup failed",
			zap.String("event_type", string(event.Type)), zap.Error(err))
		result.NoOp = true
		return result
	}
	result.MatchedRules = len(rules)
	if len(rules) == 0 && len(event.ExplicitRecipients) == 0 {
		result.NoOp = true
		return result
	}

	recipients := d.resolveRecipients(ctx, event, rules)
	result.Recipients = recipients
	if len(recipients) == 0 {
		result.NoOp = true
		return result
	}

	subject := fmt.Sprintf("[%s] %s", event.TicketTitle, humanize(event.Type))
	body := renderBody(event)
	for _, addr := range recipients {
		if err := d.sender.Send(ctx, addr, subject, body); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("recipient", addr),
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
			result.Failures = append(result.Failures, DeliveryFailure{Recipient: addr, Err: err})
			continue
		}
		result.Delivered++
	}
	d.metrics.RecordDispatch(string(event.Type), result.Delivered, len(result.Failures))
	return result
}

func (d *Dispatcher) resolveRecipients(ctx context.Context, event events.Event, rules []domain.NotificationRule) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			return
		}
		if _, dup := seen[addr]; dup {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	needTicket := false
	for _, rule := range rules {
		for _, selector := range rule.RecipientSelectors {
			if selector == domain.SelectorSubmitter || selector == domain.SelectorAssignee {
				needTicket = true
			}
		}
	}

	var ticket *domain.Ticket
	if needTicket {
		t, err := d.tickets.GetByID(ctx, event.TicketID)
		if err != nil {
			d.logger.Warn("ticket lookup for dispatch failed",
				zap.String("ticket_id", event.TicketID), zap.Error(err))
		} else {
			ticket = t
		}
	}

	for _, rule := range rules {
		for _, selector := range rule.RecipientSelectors {
			switch selector {
			case domain.SelectorSubmitter:
				if ticket != nil {
					add(d.emailFor(ctx, ticket.SubmitterID))
				}
			case domain.SelectorAssignee:
				if ticket != nil && ticket.AssigneeID != nil {
					add(d.emailFor(ctx, *ticket.AssigneeID))
				}
			case domain.SelectorAllAdmins:
				for _, profile := range d.listByRoles(ctx, domain.RoleAdmin, domain.RoleOwner) {
					add(profile.Email)
				}
			case domain.SelectorAllEmployees:
				for _, profile := range d.listByRoles(ctx, domain.RoleEmployee) {
					add(profile.Email)
				}
			}
		}
	}
	for _, addr := range event.ExplicitRecipients {
		add(addr)
	}
	return out
}

func (d *Dispatcher) emailFor(ctx context.Context, profileID string) string {
	profile, err := d.profiles.GetByID(ctx, profileID)
	if err != nil {
		d.logger.Warn("profile lookup for dispatch failed",
			zap.String("profile_id", profileID), zap.Error(err))
		return ""
	}
	if profile.Status != domain.ProfileStatusActive {
		return ""
	}
	return profile.Email
}

func (d *Dispatcher) listByRoles(ctx context.Context, roles ...domain.Role) []domain.Profile {
	profiles, err := d.profiles.ListActiveByRoles(ctx, roles...)
	if err != nil {
		d.logger.Warn("directory lookup for dispatch failed", zap.Error(err))
		return nil
	}
	return profiles
}

func renderBody(event events.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", event.Message)
	if event.ActorName != "" {
		fmt.Fprintf(&b, "<p>By: %s</p>", event.ActorName)
	}
	fmt.Fprintf(&b, "<p>Ticket: %s</p>", event.TicketTitle)
	return b.String()
}

func humanize(eventType events.EventType) string {
	return strings.ReplaceAll(strings.TrimPrefix(string(eventType), "ticket_"), "_", " ")
}
