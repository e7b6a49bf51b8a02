package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

func cacheRules() []domain.NotificationRule {
	return []domain.NotificationRule{{
		ID:                 "rule-1",
		EventType:          "ticket_created",
		RecipientSelectors: []domain.RecipientSelector{domain.SelectorAllAdmins},
		Enabled:            true,
	}}
}

func TestRuleCacheMissFillsRedis(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &stubRules{rules: cacheRules()}
	cache := NewRuleCache(client, inner, time.Minute, zap.NewNop())

	payload, err := json.Marshal(cacheRules())
	require.NoError(t, err)
	mock.ExpectGet("notify:rules:ticket_created").RedisNil()
	mock.ExpectSet("notify:rules:ticket_created", payload, time.Minute).SetVal("OK")

	rules, err := cache.ListEnabledByEvent(context.Background(), "ticket_created")
	require.NoError(t, err)
	assert.Equal(t, cacheRules(), rules)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleCacheHitSkipsSource(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &stubRules{rules: cacheRules()}
	cache := NewRuleCache(client, inner, time.Minute, zap.NewNop())

	payload, err := json.Marshal(cacheRules())
	require.NoError(t, err)
	mock.ExpectGet("notify:rules:ticket_created").SetVal(string(payload))

	rules, err := cache.ListEnabledByEvent(context.Background(), "ticket_created")
	require.NoError(t, err)
	assert.Equal(t, cacheRules(), rules)
	assert.Equal(t, 0, inner.calls, "a cache hit must not touch postgres")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleCacheCorruptEntryRebuilds(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &stubRules{rules: cacheRules()}
	cache := NewRuleCache(client, inner, time.Minute, zap.NewNop())

	payload, err := json.Marshal(cacheRules())
	require.NoError(t, err)
	mock.ExpectGet("notify:rules:ticket_created").SetVal("{not json")
	mock.ExpectSet("notify:rules:ticket_created", payload, time.Minute).SetVal("OK")

	rules, err := cache.ListEnabledByEvent(context.Background(), "ticket_created")
	require.NoError(t, err)
	assert.Equal(t, cacheRules(), rules)
	assert.Equal(t, 1, inner.calls)
}

func TestRuleCacheNilClientDelegates(t *testing.T) {
	inner := &stubRules{rules: cacheRules()}
	cache := NewRuleCache(nil, inner, time.Minute, zap.NewNop())

	rules, err := cache.ListEnabledByEvent(context.Background(), "ticket_created")
	require.NoError(t, err)
	assert.Equal(t, cacheRules(), rules)
	assert.Equal(t, 1, inner.calls)
}

func TestRuleCacheInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRuleCache(client, &stubRules{}, time.Minute, zap.NewNop())

	mock.ExpectDel("notify:rules:ticket_created").SetVal(1)
	cache.Invalidate(context.Background(), "ticket_created")
	assert.NoError(t, mock.ExpectationsWereMet())
}
