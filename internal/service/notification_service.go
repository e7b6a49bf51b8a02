package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/notify"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// NotificationService bridges domain events into the notification
// dispatcher and exposes the administrative rule surface.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   *notify.Dispatcher
	rules      repository.NotificationRuleRepository
	cache      *notify.RuleCache
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier *notify.Dispatcher, rules repository.NotificationRuleRepository, cache *notify.RuleCache, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		rules:      rules,
		cache:      cache,
		logger:     logger,
	}
}

// RegisterHandlers subscribes the notifier to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.notifier == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketReopened,
		events.EventTicketMarkedDuplicate,
		events.EventTicketAssigned,
		events.EventTicketPriorityChanged,
		events.EventTicketDueDateChanged,
		events.EventTicketCommentAdded,
	} {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	result := n.notifier.Dispatch(ctx, event)
	if result.NoOp {
		n.logger.Debug("notification no-op",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		return nil
	}
	n.logger.Info("notifications dispatched",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", len(result.Failures)))
	return nil
}

// ListRules returns every routing rule for the admin surface.
func (n *NotificationService) ListRules(ctx context.Context) ([]domain.NotificationRule, error) {
	rules, err := n.rules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// SetRuleEnabled toggles a rule and drops its cache entry.
func (n *NotificationService) SetRuleEnabled(ctx context.Context, id string, enabled bool) (*domain.NotificationRule, error) {
	rule, err := n.rules.SetEnabled(ctx, id, enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("notification rule", map[string]any{"rule_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if n.cache != nil {
		n.cache.Invalidate(ctx, rule.EventType)
	}
	return rule, nil
}
