package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

const ruleCachePrefix = "notify:rules:"

// RuleCache fronts a RuleSource with a short-TTL redis cache so the
// dispatcher does not hit postgres for every event. Cache failures
// degrade to the underlying source, never to a dispatch error.
type RuleCache struct {
	client *redis.Client
	inner  RuleSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewRuleCache constructs the cache.
func NewRuleCache(client *redis.Client, inner RuleSource, ttl time.Duration, logger *zap.Logger) *RuleCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RuleCache{client: client, inner: inner, ttl: ttl, logger: logger}
}

// ListEnabledByEvent serves from redis when possible.
func (c *RuleCache) ListEnabledByEvent(ctx context.Context, eventType string) ([]domain.NotificationRule, error) {
	if c.client == nil {
		return c.inner.ListEnabledByEvent(ctx, eventType)
	}
	key := ruleCachePrefix + eventType

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var rules []domain.NotificationRule
		if err := json.Unmarshal([]byte(cached), &rules); err == nil {
			return rules, nil
		}
		// corrupt entry; fall through and rebuild
	} else if err != redis.Nil {
		c.logger.Warn("rule cache read failed", zap.String("key", key), zap.Error(err))
	}

	rules, err := c.inner.ListEnabledByEvent(ctx, eventType)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(rules); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("rule cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return rules, nil
}

// Invalidate drops the cached rules for an event type, called after an
// administrator toggles a rule.
func (c *RuleCache) Invalidate(ctx context.Context, eventType string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, ruleCachePrefix+eventType).Err(); err != nil {
		c.logger.Warn("rule cache invalidate failed", zap.String("event_type", eventType), zap.Error(err))
	}
}
