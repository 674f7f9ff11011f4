package usecase

import (
	"context"
	"time"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
	"github.com/wekeepgrowing/medvoa-backend/internal/usage"
)

// EntitlementService combines the caller's subscription snapshot with the
// entitlement tables and usage counters.
type EntitlementService struct {
	query    *SubscriptionQueryService
	resolver *entitlement.Resolver
	store    usage.Store
	location *time.Location
	now      func() time.Time
}

// NewEntitlementService creates a new entitlement service
func NewEntitlementService(query *SubscriptionQueryService, resolver *entitlement.Resolver, store usage.Store, location *time.Location) *EntitlementService {
	return &EntitlementService{
		query:    query,
		resolver: resolver,
		store:    store,
		location: location,
		now:      time.Now,
	}
}

// Entitlements resolves the caller's tier and its entitlement set. On a
// query error the free set is returned with the error.
func (s *EntitlementService) Entitlements(ctx context.Context, user AuthenticatedUser) (entity.SubscriptionSnapshot, entitlement.Set, error) {
	snapshot, err := s.query.GetSnapshot(ctx, user)
	return snapshot, s.resolver.Resolve(snapshot.Tier), err
}

// Ledger returns a usage ledger bound to the caller's current tier.
func (s *EntitlementService) Ledger(ctx context.Context, user AuthenticatedUser) (*usage.Ledger, error) {
	snapshot, set, err := s.Entitlements(ctx, user)
	if err != nil {
		return nil, err
	}
	return usage.NewLedger(user.ID, snapshot.Tier, set, s.store,
		usage.WithClock(s.now),
		usage.WithLocation(s.location)), nil
}
