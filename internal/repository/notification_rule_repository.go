package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// NotificationRuleRepository stores event-to-recipient routing rules.
type NotificationRuleRepository interface {
	ListEnabledByEvent(ctx context.Context, eventType string) ([]domain.NotificationRule, error)
	List(ctx context.Context) ([]domain.NotificationRule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*domain.NotificationRule, error)
}

type notificationRuleRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRuleRepository instantiates repository.
func NewNotificationRuleRepository(pool *pgxpool.Pool) NotificationRuleRepository {
	return &notificationRuleRepository{pool: pool}
}

func (r *notificationRuleRepository) ListEnabledByEvent(ctx context.Context, eventType string) ([]domain.NotificationRule, error) {
	const query = `
        SELECT id, event_type, recipient_selectors, enabled, created_at, updated_at
        FROM notification_rules WHERE event_type=$1 AND enabled ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *notificationRuleRepository) List(ctx context.Context) ([]domain.NotificationRule, error) {
	const query = `
        SELECT id, event_type, recipient_selectors, enabled, created_at, updated_at
        FROM notification_rules ORDER BY event_type ASC, created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *notificationRuleRepository) SetEnabled(ctx context.Context, id string, enabled bool) (*domain.NotificationRule, error) {
	const query = `
        UPDATE notification_rules SET enabled=$1, updated_at=NOW() WHERE id=$2
        RETURNING id, event_type, recipient_selectors, enabled, created_at, updated_at`
	var rule domain.NotificationRule
	var selectors []string
	if err := r.pool.QueryRow(ctx, query, enabled, id).Scan(
		&rule.ID,
		&rule.EventType,
		&selectors,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.RecipientSelectors = toSelectors(selectors)
	return &rule, nil
}

func scanRules(rows pgx.Rows) ([]domain.NotificationRule, error) {
	var result []domain.NotificationRule
	for rows.Next() {
		var rule domain.NotificationRule
		var selectors []string
		if err := rows.Scan(
			&rule.ID,
			&rule.EventType,
			&selectors,
			&rule.Enabled,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rule.RecipientSelectors = toSelectors(selectors)
		result = append(result, rule)
	}
	return result, rows.Err()
}

func toSelectors(values []string) []domain.RecipientSelector {
	selectors := make([]domain.RecipientSelector, 0, len(values))
	for _, v := range values {
		selectors = append(selectors, domain.RecipientSelector(v))
	}
	return selectors
}
