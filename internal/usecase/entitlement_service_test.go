package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adapterRepo "github.com/wekeepgrowing/medvoa-backend/internal/adapter/repository"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
	"github.com/wekeepgrowing/medvoa-backend/internal/usage"
	"go.uber.org/zap"
)

func newEntitlementService(t *testing.T, subscribers *adapterRepo.MemoryRepository) *EntitlementService {
	t.Helper()
	tables, err := entitlement.DefaultTables()
	require.NoError(t, err)
	query := NewSubscriptionQueryService(subscribers, nil, zap.NewNop())
	return NewEntitlementService(query, entitlement.NewResolver(tables), usage.NewMemoryStore(), time.UTC)
}

func TestEntitlementService_FreeAndPremium(t *testing.T) {
	ctx := context.Background()
	store := adapterRepo.NewMemoryRepository()
	s := newEntitlementService(t, store)

	snap, set, err := s.Entitlements(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TierFree, snap.Tier)
	assert.False(t, set.Can("flashcards_ai"))

	seedRecord(t, store, entity.RecordInput{Email: testEmail, Status: entity.StatusActive})
	snap, set, err = s.Entitlements(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TierPremium, snap.Tier)
	assert.True(t, set.Can("flashcards_ai"))
}

func TestEntitlementService_LedgerUsesTier(t *testing.T) {
	ctx := context.Background()
	s := newEntitlementService(t, adapterRepo.NewMemoryRepository())

	ledger, err := s.Ledger(ctx, testUser)
	require.NoError(t, err)
	_, err = ledger.Increment(ctx, "games", entitlement.WindowDaily)
	require.NoError(t, err)

	ok, err := ledger.CanUse(ctx, "games", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntitlementService_QueryErrorFailsLedger(t *testing.T) {
	tables, err := entitlement.DefaultTables()
	require.NoError(t, err)
	query := NewSubscriptionQueryService(brokenSubscribers{adapterRepo.NewMemoryRepository()}, nil, zap.NewNop())
	s := NewEntitlementService(query, entitlement.NewResolver(tables), usage.NewMemoryStore(), time.UTC)

	snap, set, err := s.Entitlements(context.Background(), testUser)
	assert.Error(t, err)
	assert.Equal(t, entity.TierFree, snap.Tier)
	assert.False(t, set.Can("pdf_export"))

	_, err = s.Ledger(context.Background(), testUser)
	assert.Error(t, err)
}
